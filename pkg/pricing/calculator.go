package pricing

import (
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for every UST and monetary quantity.
const Scale int32 = 4

var hundred = decimal.NewFromInt(100)

var (
	ErrNegativeHours      = apperror.New(apperror.Validation, "hours must be greater than or equal to zero")
	ErrNegativeComplexity = apperror.New(apperror.Validation, "complexity must be greater than or equal to zero")
	ErrNegativeUnitPrice  = apperror.New(apperror.Validation, "unit price must be greater than or equal to zero")
	ErrDiscountOutOfRange = apperror.New(apperror.Validation, "discount percent must be between 0 and 100")
	ErrTooManyDecimals    = apperror.New(apperror.Validation, "at most 4 fraction digits are allowed")
)

// Subtotal is the priced value of one budget item.
type Subtotal struct {
	Ust   decimal.Decimal
	Gross decimal.Decimal
}

// Calculate prices hours of an activity with the given complexity at unitPrice per UST.
// The UST amount is rounded before it is multiplied by the unit price; totals reconcile only
// with that order.
func Calculate(hours, complexity, unitPrice decimal.Decimal) (Subtotal, error) {
	if hours.IsNegative() {
		return Subtotal{}, ErrNegativeHours
	}
	if complexity.IsNegative() {
		return Subtotal{}, ErrNegativeComplexity
	}
	if unitPrice.IsNegative() {
		return Subtotal{}, ErrNegativeUnitPrice
	}
	ust := Round(complexity.Mul(hours))
	gross := Round(ust.Mul(unitPrice))
	return Subtotal{Ust: ust, Gross: gross}, nil
}

// NetTotal applies discountPercent to gross.
func NetTotal(gross, discountPercent decimal.Decimal) decimal.Decimal {
	discount := gross.Mul(discountPercent).Div(hundred)
	return Round(gross.Sub(discount))
}

// Round rounds half-up to Scale digits. Inputs are never negative, so rounding half away from
// zero is the same as half-up here.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

func ValidateHours(hours decimal.Decimal) error {
	if hours.IsNegative() {
		return ErrNegativeHours
	}
	return nil
}

func ValidateDiscount(discountPercent decimal.Decimal) error {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return ErrDiscountOutOfRange
	}
	return nil
}

// Format renders d with exactly Scale fraction digits, the persisted and wire representation.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Parse reads a decimal string. Values that do not fit in Scale fraction digits are rejected;
// trailing zeros beyond Scale are accepted.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.Validationf("invalid decimal value: " + s)
	}
	rounded := Round(d)
	if !rounded.Equal(d) {
		return decimal.Zero, ErrTooManyDecimals
	}
	return rounded, nil
}
