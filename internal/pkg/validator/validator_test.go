package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
		URL  string `validate:"omitempty,url"`
	}

	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, Validate(payload{Name: "ok", URL: "https://example.com"}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := Validate(payload{})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("malformed url", func(t *testing.T) {
		err := Validate(payload{Name: "ok", URL: "::not-a-url"})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}
