package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are int64 minor units everywhere inside the ledger. Decimal strings
// only exist at the edge, and conversion goes through exact decimal arithmetic
// rather than float64.

var minorFactor = decimal.NewFromInt(100)

// ParseAmount converts a decimal string like "25.50" into minor units.
// At most two fractional digits are accepted and the result must be positive.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ParseAmount: %w", ErrInvalidAmount)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("ParseAmount: more than two decimal places: %w", ErrInvalidAmount)
	}
	minor := d.Mul(minorFactor)
	if !minor.IsInteger() || !minor.IsPositive() {
		return 0, fmt.Errorf("ParseAmount: %w", ErrInvalidAmount)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("ParseAmount: out of range: %w", ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a two-decimal string, e.g. 2550 -> "25.50".
func FormatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Div(minorFactor).StringFixed(2)
}
