// Package core holds the finance domain types, validation and the money
// helpers shared by storage, services and the command line.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Negative values only appear in derived
// figures such as budget headroom.
type Money struct {
	Cents int64
}

var maxAmount = decimal.New(1, 13) // 10^13 units, far below int64 cents

// ParseMoney converts a decimal string to Money with half-up rounding to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, zero and
// values that round to zero are rejected.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	m := FromDecimal(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// FromDecimal rounds d half away from zero to whole cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, e.g. "100.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}
