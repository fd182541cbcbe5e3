package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"crm-web/internal/models"
)

// SplitPaymentOffering splits a comma separated list, dropping blanks.
func SplitPaymentOffering(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BuildClientPayload maps a row onto the CRM create-client body. Address and
// website fields stay top level; the rest is packed into Notes.
func BuildClientPayload(row models.ImportClientRow) (models.ClientPayload, error) {
	notes := models.ClientNotes{
		Source:          deref(row.Source),
		SourceValue:     deref(row.SourceValue),
		ClientType:      deref(row.ClientType),
		ClientGeography: deref(row.ClientGeography),
		TxnVolume:       deref(row.TxnVolume),
		ProductTagInfo:  deref(row.ProductTagInfo),
	}
	if row.PaymentOffering != nil {
		notes.PaymentOffering = SplitPaymentOffering(*row.PaymentOffering)
	}
	if row.Contact != nil {
		notes.Contacts = []models.Contact{*row.Contact}
	}

	raw, err := json.Marshal(notes)
	if err != nil {
		return models.ClientPayload{}, fmt.Errorf("failed to encode notes for row %d: %w", row.Row, err)
	}

	return models.ClientPayload{
		Name:          row.ClientName,
		Website:       deref(row.Website),
		StreetAddress: deref(row.StreetAddress),
		City:          deref(row.City),
		State:         deref(row.State),
		Country:       deref(row.Country),
		Notes:         string(raw),
	}, nil
}
