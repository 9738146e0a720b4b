// Package v1 holds the value types shared across the trading core. Money and
// Quantity wrap an int64 in its smallest unit and refuse to go negative, so
// insufficient funds or shares surface as domain errors instead of silently
// clamped balances.
package v1

import (
	"fmt"

	"github.com/f-lab-edu/stock-simulator/pkg/errors"
)

// Money is a non-negative amount in the smallest currency unit.
type Money struct {
	amount int64
}

// ZeroMoney is the zero amount.
var ZeroMoney = Money{}

// NewMoney builds a Money from a raw amount. Negative amounts are rejected.
func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return Money{}, errors.NewErrorDetails(
			fmt.Sprintf("money amount must not be negative: %d", amount),
			string(errors.ErrNegativeAmount),
			"amount",
		)
	}
	return Money{amount: amount}, nil
}

// MustMoney builds a Money and panics on a negative amount. Intended for
// constants and tests.
func MustMoney(amount int64) Money {
	m, err := NewMoney(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the raw amount in the smallest currency unit.
func (m Money) Amount() int64 {
	return m.amount
}

// Plus returns m + other.
func (m Money) Plus(other Money) Money {
	return Money{amount: m.amount + other.amount}
}

// Minus returns m - other, failing with an insufficient balance error when
// other exceeds m. Callers treat that error as expected control flow.
func (m Money) Minus(other Money) (Money, error) {
	if other.amount > m.amount {
		return Money{}, errors.NewErrorDetails(
			fmt.Sprintf("insufficient balance: have %d, need %d", m.amount, other.amount),
			string(errors.ErrInsufficientBalance),
			"amount",
		)
	}
	return Money{amount: m.amount - other.amount}, nil
}

// Multiply returns price x quantity as a Money.
func (m Money) Multiply(q Quantity) Money {
	return Money{amount: m.amount * q.value}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount < other.amount
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount >= other.amount
}

// Equals reports whether m == other.
func (m Money) Equals(other Money) bool {
	return m.amount == other.amount
}

func (m Money) String() string {
	return fmt.Sprintf("%d", m.amount)
}
