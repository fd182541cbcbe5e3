package importer

import (
	"reflect"
	"regexp"
	"strings"

	"crm-web/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{7,}$`)
)

// StripSpaces removes every whitespace rune from s.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func IsValidPhone(s string) bool {
	return phonePattern.MatchString(StripSpaces(s))
}

func IsLinkedInURL(s string) bool {
	return strings.Contains(s, "linkedin.com")
}

var contactMessages = map[string]string{
	"required": "%s is required",
	"crmemail": "Enter a valid email address",
	"crmphone": "Phone number must have at least 7 digits",
	"linkedin": "LinkedIn profile link must be a linkedin.com URL",
}

// ContactValidator applies the contact form rules.
type ContactValidator struct {
	validate *validator.Validate
}

func NewContactValidator() *ContactValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("crmemail", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("crmphone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("linkedin", func(fl validator.FieldLevel) bool {
		return IsLinkedInURL(fl.Field().String())
	})
	return &ContactValidator{validate: v}
}

// Validate returns one FieldError per failing field, or nil.
func (cv *ContactValidator) Validate(c models.Contact) []models.FieldError {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.LinkedIn = strings.TrimSpace(c.LinkedIn)
	if StripSpaces(c.Phone) == "" {
		c.Phone = ""
	}

	err := cv.validate.Struct(c)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.FieldError{{Field: "unknown", Message: err.Error()}}
	}

	fieldErrors := make([]models.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg, ok := contactMessages[fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		if strings.Contains(msg, "%s") {
			msg = strings.Replace(msg, "%s", fieldLabel(fe.Field()), 1)
		}
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   fe.Field(),
			Message: msg,
		})
	}
	return fieldErrors
}

func fieldLabel(field string) string {
	switch field {
	case "name":
		return "Name"
	case "email":
		return "Email"
	case "phone":
		return "Phone"
	}
	return field
}
