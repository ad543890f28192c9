package validation

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

// initValidators creates the validator with the ledger's custom rules.
func initValidators() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	// Posting amounts may be zero but never negative.
	err := vld.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return !value.IsNegative()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register 'nonnegative_decimal': %w", err)
	}

	return vld, nil
}

// Validator returns the process-wide validator instance.
func Validator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidators()
	})
	return validate, errValidate
}
