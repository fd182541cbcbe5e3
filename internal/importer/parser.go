package importer

import (
	"crm-web/internal/models"
)

// ParseRows converts a sheet (header row followed by data rows) into import
// rows. Blank rows are skipped; a sheet with no non-blank data row is a
// FileShapeError. When any row fails validation the result holds
// only the errors; callers must not import anything in that case.
func ParseRows(rows [][]string) (*models.ClientImportResult, error) {
	if len(rows) < 2 {
		return nil, newFileShapeError("", ErrTooFewRows)
	}

	index := NewHeaderIndex(rows[0])
	result := &models.ClientImportResult{
		Rows:             []models.ImportClientRow{},
		ValidationErrors: []models.ImportValidationError{},
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			result.SkippedRows++
			continue
		}
		result.TotalRows++

		rowNum := i + 1
		parsed, rowErrors := parseRow(index, row, rowNum)
		if len(rowErrors) > 0 {
			result.ValidationErrors = append(result.ValidationErrors, rowErrors...)
			continue
		}
		result.Rows = append(result.Rows, parsed)
	}

	if result.TotalRows == 0 {
		return nil, newFileShapeError("", ErrTooFewRows)
	}

	if result.HasErrors() {
		result.Rows = []models.ImportClientRow{}
	}

	return result, nil
}

func parseRow(index HeaderIndex, row []string, rowNum int) (models.ImportClientRow, []models.ImportValidationError) {
	clientName, ok := index.Lookup(row, HeaderClientName)
	if !ok {
		return models.ImportClientRow{}, []models.ImportValidationError{{
			Row:     rowNum,
			Field:   HeaderClientName,
			Message: HeaderClientName + " is required",
		}}
	}

	return models.ImportClientRow{
		Row:             rowNum,
		ClientName:      clientName,
		Source:          index.Optional(row, HeaderSource),
		SourceValue:     index.Optional(row, HeaderSourceValue),
		ClientType:      index.Optional(row, HeaderClientType),
		PaymentOffering: index.Optional(row, HeaderPaymentOffering),
		Website:         index.Optional(row, HeaderWebsite),
		ClientGeography: index.Optional(row, HeaderClientGeography),
		TxnVolume:       index.Optional(row, HeaderTxnVolume),
		ProductTagInfo:  index.Optional(row, HeaderProductTagInfo),
		StreetAddress:   index.Optional(row, HeaderStreetAddress),
		City:            index.Optional(row, HeaderCity),
		State:           index.Optional(row, HeaderState),
		Country:         index.Optional(row, HeaderCountry),
		Contact:         parseContact(index, row),
	}, nil
}

// parseContact returns nil when every contact column is blank.
func parseContact(index HeaderIndex, row []string) *models.Contact {
	var c models.Contact
	var found bool
	set := func(dst *string, header string) {
		if v, ok := index.Lookup(row, header); ok {
			*dst = v
			found = true
		}
	}
	set(&c.Name, HeaderContactName)
	set(&c.Designation, HeaderDesignation)
	set(&c.Phone, HeaderContactPhone)
	set(&c.Email, HeaderContactEmail)
	set(&c.LinkedIn, HeaderLinkedIn)

	// A prefix on its own is the template default, not a contact.
	if !found {
		return nil
	}
	if v, ok := index.Lookup(row, HeaderPhonePrefix); ok {
		c.PhonePrefix = v
	}
	return &c
}
