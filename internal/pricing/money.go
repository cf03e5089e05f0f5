// Package pricing computes order and order line prices.
// All monetary values are decimals rounded to 2 places.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Rounded rounds a monetary value to 2 decimal places.
func Rounded(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// RoundToNearest rounds to the nearest multiple of step, e.g. 3.1416 with
// step 0.05 becomes 3.15.
func RoundToNearest(value, step decimal.Decimal) decimal.Decimal {
	return value.Div(step).Round(0).Mul(step)
}

// ConvertAfterTaxToPretax strips the tax component off a gross price.
func ConvertAfterTaxToPretax(price, taxPercentage decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(taxPercentage.Div(hundred))
	return Rounded(price.Div(divisor))
}

// AsFractionalInt converts a price to minor currency units (1EUR = 100).
// Bambora only accepts amounts in this form.
func AsFractionalInt(price decimal.Decimal) int64 {
	return Rounded(price).Mul(hundred).IntPart()
}

// FromFractionalInt converts minor currency units back to a price.
func FromFractionalInt(amount int64) decimal.Decimal {
	return Rounded(decimal.NewFromInt(amount).Div(hundred))
}

// PercentagePrice computes percentage percent of base.
func PercentagePrice(base, percentage decimal.Decimal) decimal.Decimal {
	return Rounded(base.Mul(percentage.Div(hundred)))
}
