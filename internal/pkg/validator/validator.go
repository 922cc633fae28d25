// Package validator is a thin wrapper around the go-playground/validator
// library, enabling declarative struct validation with standardized error
// formatting.
package validator

import (
	"errors"
	"fmt"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the root of the multi-error chain returned when
// validation fails, allowing callers to detect validation failures with
// errors.Is even when multiple field errors are present.
var ErrValidationFailed = errors.New("struct validation failed")

// validator is the singleton go-playground validator instance.
var validator *gvalidator.Validate

// errStringFormat describes a single failed validation rule.
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())
}

// formatError transforms raw validator errors into a combined error chain
// rooted at ErrValidationFailed; other errors pass through unchanged.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		err := fmt.Errorf(errStringFormat,
			validationErr.Field(),
			validationErr.Value(),
			validationErr.Tag(),
		)

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks whether v satisfies its validation tags, returning nil on
// success or a combined error including ErrValidationFailed and one message
// per failing field.
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}
