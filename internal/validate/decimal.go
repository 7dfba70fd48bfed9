package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ParseDecimal parses a form amount, reporting a field message on failure.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func decimalNonNegative(fl validator.FieldLevel) bool {
	d, ok := ParseDecimal(fl.Field().String())
	return ok && !d.IsNegative()
}

func decimalPositive(fl validator.FieldLevel) bool {
	d, ok := ParseDecimal(fl.Field().String())
	return ok && d.IsPositive()
}
