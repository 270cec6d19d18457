// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// WithinEpsilon reports whether |val| is at most eps.
func WithinEpsilon(val, eps float64) bool {
	return math.Abs(val) <= eps
}

// Snap returns 0 when val is within eps of zero and val otherwise.
func Snap(val, eps float64) float64 {
	if WithinEpsilon(val, eps) {
		return 0
	}
	return val
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
