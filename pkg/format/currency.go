// Package format renders amounts for human-facing output.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	d := Cents(amount)
	if d.IsNegative() {
		return "-$" + group(d.Abs())
	}
	return "$" + group(d)
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	d := Cents(amount)
	if d.IsNegative() {
		return "-" + group(d.Abs())
	}
	return group(d)
}

// Cents rounds amount half away from zero to two decimals.
func Cents(amount float64) decimal.Decimal {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsZero() {
		return decimal.Zero
	}
	return d
}

// Fixed is the plain two-decimal form used in machine-readable output.
func Fixed(amount float64) string {
	return Cents(amount).StringFixed(2)
}

// Percent renders a percentage with two decimals, e.g. "73.98%".
func Percent(value float64) string {
	return Cents(value).StringFixed(2) + "%"
}

func group(d decimal.Decimal) string {
	parts := strings.SplitN(d.StringFixed(2), ".", 2)
	intPart := parts[0]
	decPart := parts[1]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
