// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing goes through shopspring/decimal
// so that "12.345" style input rounds exactly instead of through a float.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents bounds a single amount. Accrual over any representable date
// range and summation over realistic ledgers stay within int64.
const MaxCents = 10_000_000_000_000

// maxExponent bounds the decimal exponent accepted before any arithmetic.
const maxExponent = 18

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// ParseAmount converts user input to Money, coercing anything unusable to 0.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Empty, malformed and negative input all
// yield zero cents; the caller never sees an error.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
//	ParseAmount("abc")    -> 0
//	ParseAmount("-5")     -> 0
func ParseAmount(s string) Money {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}
	}
	return Money{Cents: cents}
}

// ParseDecimalToCents is the strict form of ParseAmount. Zero is allowed.
// Negative values, values above MaxCents, exponents beyond ±18 and malformed
// input return ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Rescaling a huge exponent allocates and multiplies a big.Int of that
	// many digits.
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	// Round is half away from zero, which is half-up for non-negative input.
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Times(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}
