// Package money holds the rounding and accumulation rules shared by the engines.
package money

import "github.com/shopspring/decimal"

// Currency precision used for every amount the engines emit.
const (
	CurrencyPlaces = 2
	FactorPlaces   = 3
	PercentPlaces  = 1
)

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Amount rounds v to currency precision.
func Amount(v float64) float64 {
	return Round(v, CurrencyPlaces)
}

// Sum adds values exactly, so the result does not depend on the order of vals.
func Sum(vals ...float64) float64 {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// Accumulator sums amounts exactly across many additions.
// The zero value is ready to use.
type Accumulator struct {
	total decimal.Decimal
}

// Add adds v to the running total.
func (a *Accumulator) Add(v float64) {
	a.total = a.total.Add(decimal.NewFromFloat(v))
}

// Total returns the running total rounded to currency precision.
func (a *Accumulator) Total() float64 {
	return a.total.Round(CurrencyPlaces).InexactFloat64()
}

// Percent returns rate percent of base, rounded to currency precision.
func Percent(base, rate float64) float64 {
	return decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(CurrencyPlaces).
		InexactFloat64()
}

// Scale returns v times factor, rounded to currency precision.
func Scale(v, factor float64) float64 {
	return decimal.NewFromFloat(v).
		Mul(decimal.NewFromFloat(factor)).
		Round(CurrencyPlaces).
		InexactFloat64()
}
