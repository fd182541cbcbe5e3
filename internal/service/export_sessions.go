package service

import (
	"fmt"
	"sort"

	"crm-web/internal/models"

	"github.com/xuri/excelize/v2"
)

var sessionExportHeaders = []interface{}{
	"Session Code", "User ID", "Filename", "Total Rows", "Submitted",
	"Failed Row", "Status", "Error Message", "Created At", "Updated At",
}

var statusFills = map[string]string{
	models.ImportStatusCompleted:  "#D4EDDA",
	models.ImportStatusFailed:     "#F8D7DA",
	models.ImportStatusSubmitting: "#FFF3CD",
	models.ImportStatusQueued:     "#FFF3CD",
}

// ExportSessionsList exports import sessions to Excel.
func (s *ExcelService) ExportSessionsList(sessions []models.ImportSession, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Sessions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	if err := f.SetSheetRow(sheetName, "A1", &sessionExportHeaders); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(sessionExportHeaders))

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 12},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: border,
	})
	f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Vertical: "center"},
	})

	statusStyles := make(map[string]int, len(statusFills))
	for status, color := range statusFills {
		style, _ := f.NewStyle(&excelize.Style{
			Border: border,
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		statusStyles[status] = style
	}

	statusCounts := make(map[string]int)
	for i, session := range sessions {
		row := i + 2
		var failedRow interface{}
		if session.FailedRow != nil {
			failedRow = *session.FailedRow
		}

		values := []interface{}{
			session.SessionCode,
			session.UserID,
			session.Filename,
			session.TotalRows,
			session.SubmittedRows,
			failedRow,
			session.Status,
			session.ErrorMessage,
			session.CreatedAt.Format("2006-01-02 15:04:05"),
			session.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
		f.SetCellStyle(sheetName, cell, fmt.Sprintf("%s%d", lastCol, row), dataStyle)

		if style, ok := statusStyles[session.Status]; ok {
			statusCell := fmt.Sprintf("G%d", row)
			f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
		statusCounts[session.Status]++
	}

	f.SetColWidth(sheetName, "A", lastCol, 15)
	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "C", "C", 25)
	f.SetColWidth(sheetName, "H", "H", 40)
	f.SetColWidth(sheetName, "I", "J", 20)

	if len(sessions) > 0 {
		summaryRow := len(sessions) + 3
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Summary:")
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("Total Sessions: %d", len(sessions)))

		statuses := make([]string, 0, len(statusCounts))
		for status := range statusCounts {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)

		row := summaryRow + 1
		for _, status := range statuses {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("%s: %d", status, statusCounts[status]))
			row++
		}

		summaryStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F0F0"}, Pattern: 1},
		})
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("A%d", summaryRow), summaryStyle)
	}

	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}
