package validator

import (
	"errors"
	"sort"
	"strings"

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

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = field + " is required"
			case "min":
				if e.Kind().String() == "slice" {
					errs[field] = field + " must contain at least " + e.Param() + " items"
				} else {
					errs[field] = field + " must be at least " + e.Param()
				}
			case "max":
				if e.Kind().String() == "slice" {
					errs[field] = field + " must contain at most " + e.Param() + " items"
				} else {
					errs[field] = field + " must be at most " + e.Param() + " characters"
				}
			case "gte":
				errs[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errs[field] = field + " must be less than or equal to " + e.Param()
			case "oneof":
				errs[field] = field + " must be one of: " + e.Param()
			default:
				errs[field] = field + " is invalid"
			}
		}
	}

	return errs
}

// Summary flattens FormatValidationErrors into one line with a stable field order.
func (cv *CustomValidator) Summary(err error) string {
	errs := cv.FormatValidationErrors(err)
	if len(errs) == 0 {
		return err.Error()
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, len(fields))
	for i, field := range fields {
		messages[i] = errs[field]
	}
	return strings.Join(messages, "; ")
}
