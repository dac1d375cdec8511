// Package mathutil provides common mathematical utility functions for money
// and rate arithmetic.
package mathutil

import (
	"math"

	"github.com/iwvelando/credit-simulator/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons and for presenting amounts.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(val*factor) / factor
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// IsPositive reports whether val is a usable positive number. NaN and
// infinities are not.
func IsPositive(val float64) bool {
	return val > 0 && !math.IsInf(val, 0) && !math.IsNaN(val)
}

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsInf(val, 0) && !math.IsNaN(val)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// FloorZero returns val, or zero when val is negative.
func FloorZero(val float64) float64 {
	if val < 0 {
		return 0
	}
	return val
}

// Percentage calculates what percentage value is of total
func Percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// FromPercent converts a percentage (e.g. 7.5) to a fraction (0.075).
func FromPercent(percent float64) float64 {
	return percent / constants.PercentageMultiplier
}
