package models

import (
	"encoding/json"
	"fmt"
)

// Contact is the person attached to a client record.
type Contact struct {
	Name        string `json:"name" validate:"required"`
	Designation string `json:"designation,omitempty"`
	PhonePrefix string `json:"phone_prefix,omitempty"`
	Phone       string `json:"phone" validate:"omitempty,crmphone"`
	Email       string `json:"email" validate:"required,crmemail"`
	LinkedIn    string `json:"linkedin,omitempty" validate:"omitempty,linkedin"`
	Department  string `json:"department,omitempty"`
	ReportingTo string `json:"reporting_to,omitempty"`
}

// ImportClientRow is one parsed spreadsheet row waiting to be submitted.
// Optional columns are pointers; nil means the column was absent or blank.
type ImportClientRow struct {
	Row             int      `json:"row"`
	ClientName      string   `json:"client_name"`
	Source          *string  `json:"source,omitempty"`
	SourceValue     *string  `json:"source_value,omitempty"`
	ClientType      *string  `json:"client_type,omitempty"`
	PaymentOffering *string  `json:"payment_offering,omitempty"`
	Website         *string  `json:"website,omitempty"`
	ClientGeography *string  `json:"client_geography,omitempty"`
	TxnVolume       *string  `json:"txn_volume,omitempty"`
	ProductTagInfo  *string  `json:"product_tag_info,omitempty"`
	StreetAddress   *string  `json:"street_address,omitempty"`
	City            *string  `json:"city,omitempty"`
	State           *string  `json:"state,omitempty"`
	Country         *string  `json:"country,omitempty"`
	Contact         *Contact `json:"contact,omitempty"`
}

// ImportValidationError ties a message to a spreadsheet row and column.
type ImportValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ClientImportResult is the outcome of parsing an import file. Either Rows or
// ValidationErrors is populated, never both.
type ClientImportResult struct {
	Rows             []ImportClientRow       `json:"rows"`
	ValidationErrors []ImportValidationError `json:"validation_errors"`
	TotalRows        int                     `json:"total_rows"`
	SkippedRows      int                     `json:"skipped_rows"`
	ErrorReportPath  string                  `json:"error_report_path,omitempty"`
}

// HasErrors reports whether the import is blocked by validation errors.
func (r *ClientImportResult) HasErrors() bool {
	return len(r.ValidationErrors) > 0
}

// ClientPayload is the body sent to the CRM create-client endpoint.
type ClientPayload struct {
	Name          string `json:"name"`
	Website       string `json:"website,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	Notes         string `json:"notes"`
}

// ClientNotes is serialized into ClientPayload.Notes.
type ClientNotes struct {
	Source          string    `json:"source,omitempty"`
	SourceValue     string    `json:"source_value,omitempty"`
	ClientType      string    `json:"client_type,omitempty"`
	PaymentOffering []string  `json:"payment_offering,omitempty"`
	ClientGeography string    `json:"client_geography,omitempty"`
	TxnVolume       string    `json:"txn_volume,omitempty"`
	ProductTagInfo  string    `json:"product_tag_info,omitempty"`
	Contacts        []Contact `json:"contacts,omitempty"`
}

// CreatedClient is what the CRM returns for a created client.
type CreatedClient struct {
	ID   ClientID `json:"id"`
	Name string   `json:"name"`
}

// ClientID is a CRM client id, sent as either a JSON string or number.
type ClientID string

func (id *ClientID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ClientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("client id: %w", err)
	}
	*id = ClientID(n.String())
	return nil
}

// FieldError is a single contact-form validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DuplicatePair marks a contact that repeats an earlier one.
type DuplicatePair struct {
	FirstIndex     int `json:"first_index"`
	DuplicateIndex int `json:"duplicate_index"`
}

// ContactCheckRequest is the body for the contact check endpoint.
type ContactCheckRequest struct {
	Contacts []Contact `json:"contacts"`
}

// ContactCheckResult holds per-contact errors keyed by list index plus duplicates.
type ContactCheckResult struct {
	Errors     map[int][]FieldError `json:"errors"`
	Duplicates []DuplicatePair      `json:"duplicates"`
	Valid      bool                 `json:"valid"`
}
