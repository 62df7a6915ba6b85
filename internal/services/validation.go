package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(15,2).
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper reports fields by their json names.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ValidationHelper{validator: v}
}

// ValidateStruct validates s and returns ErrInvalidInput carrying one detail
// per failed field.
func (vh *ValidationHelper) ValidateStruct(s any) error {
	err := vh.validator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}
	return ErrInvalidInput.WithDetails(FieldErrors(verrs))
}

// FieldErrors maps each failed field to a short description of the rule.
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(verrs))
	for _, err := range verrs {
		details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
	}
	return details
}

// ValidAmount reports whether d is a representable money value: at most two
// decimal places and within MaxAmount in magnitude.
func ValidAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThanOrEqual(MaxAmount)
}
