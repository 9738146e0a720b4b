package v1

import (
	"fmt"

	"github.com/f-lab-edu/stock-simulator/pkg/errors"
)

// Quantity is a non-negative number of shares.
type Quantity struct {
	value int64
}

// ZeroQuantity is the zero share count.
var ZeroQuantity = Quantity{}

// NewQuantity builds a Quantity from a raw value. Negative values are rejected.
func NewQuantity(value int64) (Quantity, error) {
	if value < 0 {
		return Quantity{}, errors.NewErrorDetails(
			fmt.Sprintf("quantity must not be negative: %d", value),
			string(errors.ErrNegativeAmount),
			"quantity",
		)
	}
	return Quantity{value: value}, nil
}

// MustQuantity builds a Quantity and panics on a negative value. Intended for
// constants and tests.
func MustQuantity(value int64) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// Value returns the raw share count.
func (q Quantity) Value() int64 {
	return q.value
}

// Plus returns q + other.
func (q Quantity) Plus(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

// Minus returns q - other, failing with an insufficient quantity error when
// other exceeds q.
func (q Quantity) Minus(other Quantity) (Quantity, error) {
	if other.value > q.value {
		return Quantity{}, errors.NewErrorDetails(
			fmt.Sprintf("insufficient quantity: have %d, need %d", q.value, other.value),
			string(errors.ErrInsufficientQuantity),
			"quantity",
		)
	}
	return Quantity{value: q.value - other.value}, nil
}

// Min returns the smaller of q and other.
func (q Quantity) Min(other Quantity) Quantity {
	if other.value < q.value {
		return other
	}
	return q
}

// IsZero reports whether the share count is zero.
func (q Quantity) IsZero() bool {
	return q.value == 0
}

// LessThan reports whether q < other.
func (q Quantity) LessThan(other Quantity) bool {
	return q.value < other.value
}

// LessThanOrEqual reports whether q <= other.
func (q Quantity) LessThanOrEqual(other Quantity) bool {
	return q.value <= other.value
}

// Equals reports whether q == other.
func (q Quantity) Equals(other Quantity) bool {
	return q.value == other.value
}

func (q Quantity) String() string {
	return fmt.Sprintf("%d", q.value)
}
