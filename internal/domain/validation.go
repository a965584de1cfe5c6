package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ipfs/go-cid"

	appErrors "lpp-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("cid", func(fl validator.FieldLevel) bool {
		_, err := cid.Decode(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsKnown()
	})
	return v
}

// Validate checks metadata before it is written to the ledger: the fields the
// upload form requires, a recognized category, a DD/MM/YYYY date and content
// identifiers that parse as CIDs. Blank content pointers count as absent.
// Reads never validate.
func (m Metadata) Validate() error {
	if err := validate.Struct(m.Normalize()); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return appErrors.NewInternal("validating metadata", err)
	}
	var msgs []string
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return appErrors.NewValidation(strings.Join(msgs, "; "))
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "cid":
		return fmt.Sprintf("%s must be a content identifier (CID)", field)
	case "category":
		return fmt.Sprintf("%s must be one of: Safe, Endangered, Vulnerable, Extinct", field)
	case "datetime":
		return fmt.Sprintf("%s must be a DD/MM/YYYY date", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
