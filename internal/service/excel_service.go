package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"crm-web/internal/importer"
	"crm-web/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	templateSheet    = "Clients"
	templateMaxRows  = 1000
	errorReportSheet = "Import Errors"
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// IsSupportedImportFile reports whether filename has an accepted extension.
func IsSupportedImportFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// ReadImportFile reads the first sheet of a spreadsheet, or a CSV file, as
// rows of strings.
func (s *ExcelService) ReadImportFile(filePath string) ([][]string, error) {
	name := filepath.Base(filePath)
	if !IsSupportedImportFile(filePath) {
		return nil, &importer.FileShapeError{Filename: name, Err: importer.ErrUnsupportedFile}
	}

	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		rows, err := readCSV(data)
		if err != nil {
			return nil, &importer.FileShapeError{Filename: name, Err: err}
		}
		return rows, nil
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, &importer.FileShapeError{Filename: name, Err: fmt.Errorf("unable to read spreadsheet: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &importer.FileShapeError{Filename: name, Err: importer.ErrNoSheets}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		// Keep row numbers aligned with file lines; the reader drops empty lines.
		line, _ := r.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ParseClientFile reads and validates an import file.
func (s *ExcelService) ParseClientFile(filePath string) (*models.ClientImportResult, error) {
	rows, err := s.ReadImportFile(filePath)
	if err != nil {
		return nil, err
	}
	return importer.ParseRows(rows)
}

// GenerateClientTemplate writes the import template: one sheet whose first row
// is the template header row, with drop-downs for the option columns.
func (s *ExcelService) GenerateClientTemplate(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(templateSheet)
	if err != nil {
		return err
	}

	headers := importer.TemplateHeaders()
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &headerRow); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetCellStyle(templateSheet, "A1", lastCol+"1", headerStyle)
	f.SetColWidth(templateSheet, "A", lastCol, 22)

	dropDowns := map[string][]string{
		importer.HeaderSource:          importer.ClientSources,
		importer.HeaderClientType:      importer.ClientTypes,
		importer.HeaderClientGeography: importer.ClientGeographies,
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		sqref := fmt.Sprintf("%s2:%s%d", col, col, templateMaxRows)

		if options, ok := dropDowns[h]; ok {
			dv := excelize.NewDataValidation(true)
			dv.Sqref = sqref
			if err := dv.SetDropList(options); err != nil {
				return err
			}
			if err := f.AddDataValidation(templateSheet, dv); err != nil {
				return err
			}
		}
		if h == importer.HeaderPaymentOffering {
			dv := excelize.NewDataValidation(true)
			dv.Sqref = sqref
			dv.SetInput(h, "Comma separated, e.g. "+strings.Join(importer.PaymentOfferings[:2], ", "))
			if err := f.AddDataValidation(templateSheet, dv); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// GenerateImportErrorReport writes every validation error of a rejected file.
func (s *ExcelService) GenerateImportErrorReport(result *models.ClientImportResult, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(errorReportSheet)
	if err != nil {
		return err
	}

	headers := []interface{}{"Row Number", "Field", "Error Message"}
	if err := f.SetSheetRow(errorReportSheet, "A1", &headers); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	f.SetCellStyle(errorReportSheet, "A1", "C1", headerStyle)

	for i, ve := range result.ValidationErrors {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{ve.Row, ve.Field, ve.Message}
		if err := f.SetSheetRow(errorReportSheet, cell, &values); err != nil {
			return err
		}
	}

	f.SetColWidth(errorReportSheet, "A", "A", 12)
	f.SetColWidth(errorReportSheet, "B", "B", 20)
	f.SetColWidth(errorReportSheet, "C", "C", 50)

	summaryRow := len(result.ValidationErrors) + 4
	f.SetCellValue(errorReportSheet, fmt.Sprintf("A%d", summaryRow), "Rows checked:")
	f.SetCellValue(errorReportSheet, fmt.Sprintf("B%d", summaryRow), result.TotalRows)
	f.SetCellValue(errorReportSheet, fmt.Sprintf("A%d", summaryRow+1), "Errors found:")
	f.SetCellValue(errorReportSheet, fmt.Sprintf("B%d", summaryRow+1), len(result.ValidationErrors))

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}
