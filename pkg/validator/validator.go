package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{
		validator: validator.New(),
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// FormatValidationErrors keys messages by the struct field name.
func (cv *CustomValidator) FormatValidationErrors(err error) map[string]any {
	details := make(map[string]any)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				details[field] = field + " is required"
			case "email":
				details[field] = field + " must be a valid email address"
			case "min":
				details[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				details[field] = field + " must be at most " + e.Param() + " characters"
			case "gt":
				details[field] = field + " must be greater than " + e.Param()
			case "oneof":
				details[field] = field + " must be one of: " + e.Param()
			default:
				details[field] = field + " is invalid"
			}
		}
	}

	return details
}
