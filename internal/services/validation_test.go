package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name   string `json:"name" validate:"required,min=2"`
	Email  string `json:"email" validate:"required,email"`
	Hidden string `json:"-" validate:"omitempty,min=3"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&testPayload{Name: "John Doe", Email: "john@example.com"})
		assert.NoError(t, err)
	})

	t.Run("details keyed by json name", func(t *testing.T) {
		err := vh.ValidateStruct(&testPayload{Name: "J"})
		require.ErrorIs(t, err, ErrInvalidInput)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Len(t, svcErr.Details, 2)
		assert.Equal(t, "Field Validation Failed on 'min' tag", svcErr.Details["name"])
		assert.Equal(t, "Field Validation Failed on 'required' tag", svcErr.Details["email"])
	})

	t.Run("invalid email format", func(t *testing.T) {
		err := vh.ValidateStruct(&testPayload{Name: "John Doe", Email: "invalid-email"})

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "Field Validation Failed on 'email' tag", svcErr.Details["email"])
	})
}

func TestValidAmount(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"40", true},
		{"0.01", true},
		{"12.50", true},
		{"12.500", true},
		{"0.001", false},
		{"9999999999999.99", true},
		{"10000000000000", false},
	} {
		assert.Equal(t, tc.want, ValidAmount(dec(tc.in)), tc.in)
	}
}

func TestErrorIs(t *testing.T) {
	detailed := ErrInvalidInput.WithDetails(map[string]string{"username": "required"})
	assert.ErrorIs(t, detailed, ErrInvalidInput)
	assert.NotErrorIs(t, detailed, ErrInvalidBody)
	assert.Nil(t, ErrInvalidInput.Details, "sentinel must not be mutated")

	renamed := ErrForbidden.WithMessage("nope")
	assert.ErrorIs(t, renamed, ErrForbidden)
	assert.Equal(t, "nope", renamed.Error())
	assert.Equal(t, "admin access required", ErrForbidden.Error())
}
