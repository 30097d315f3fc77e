package services

import (
	"stockbill/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return common.FromValidatorErrors(err)
	}
	return nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return common.NewValidationError(field, "must be greater than 0")
	}
	return nil
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return common.NewValidationError(field, "must not be negative")
	}
	return nil
}
