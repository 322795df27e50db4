// Package money converts between API decimal strings and int64 minor units.
// All balance arithmetic in the service happens on minor units; decimal.Decimal is
// only used at the edges (parsing requests, formatting responses, FX multiplication).
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNonPositive     = errors.New("amount must be greater than zero")
	ErrTooManyDecimals = errors.New("amount must have at most 2 decimal places")
)

// MaxCents caps any single amount at 10 trillion major units so sums of amounts
// stay inside int64.
const MaxCents int64 = 1_000_000_000_000_000

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// Parse turns "40", "40.5" or "40.50" into 4050 minor units.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal validates a positive amount with at most two fractional digits
// and no more than MaxCents minor units.
func FromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrNonPositive
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, ErrTooManyDecimals
	}
	cents := d.Mul(hundred)
	if cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Format renders minor units as a 2dp string, e.g. 4050 -> "40.50".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ToDecimal returns minor units as a decimal in major units.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ApplyBps returns round(amount * bps / 10000) in minor units, half away from zero.
// 150 bps of 5000 (50.00) is 75 (0.75).
func ApplyBps(amount, bps int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

// Convert multiplies an amount in minor units by rate and rounds to the nearest minor unit.
func Convert(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
