package costing

import "github.com/shopspring/decimal"

// Round rounds a currency amount to the nearest whole unit, halves away from zero.
func Round(value float64) float64 {
	return decimal.NewFromFloat(value).Round(0).InexactFloat64()
}

func percentOf(value float64, percent float64) float64 {
	return decimal.NewFromFloat(value).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		InexactFloat64()
}

func clamp(value float64, lo float64, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
