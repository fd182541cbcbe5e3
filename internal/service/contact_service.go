package service

import (
	"crm-web/internal/importer"
	"crm-web/internal/models"
)

// ContactService checks contact-form entries. It keeps no state between calls.
type ContactService struct {
	validator *importer.ContactValidator
}

func NewContactService() *ContactService {
	return &ContactService{validator: importer.NewContactValidator()}
}

// Check validates every contact and pairs duplicates with their first occurrence.
func (s *ContactService) Check(contacts []models.Contact) models.ContactCheckResult {
	result := models.ContactCheckResult{
		Errors:     make(map[int][]models.FieldError),
		Duplicates: importer.FindDuplicateContacts(contacts),
	}
	for i, c := range contacts {
		if errs := s.validator.Validate(c); len(errs) > 0 {
			result.Errors[i] = errs
		}
	}
	result.Valid = len(result.Errors) == 0 && len(result.Duplicates) == 0
	return result
}
