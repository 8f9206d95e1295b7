// Package money centralises monetary arithmetic for the checkout pipeline.
// Every operation rounds to 2 decimal places before returning, so totals are
// built from already-rounded parts and never accumulate floating drift.
package money

import "github.com/shopspring/decimal"

// Round rounds a value to 2 decimal places, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Add returns a + b rounded to 2 decimals.
func Add(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Sub returns a − b rounded to 2 decimals.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// MulQty returns a unit price multiplied by a quantity, rounded to 2 decimals.
func MulQty(unit float64, qty int) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

// ApplyPercentDiscount returns the unit price after deducting pct percent,
// rounded to 2 decimals. A pct of 10 on 19.99 yields 17.99, not 17.991.
func ApplyPercentDiscount(unit, pct float64) float64 {
	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(unit).Mul(factor).Round(2).InexactFloat64()
}
