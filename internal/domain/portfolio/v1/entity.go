// Package v1 defines the cash and holding ledger for one portfolio. All
// balance mutations go through methods that enforce the non-negative
// invariants; a reservation moves value between buckets without changing the
// sum.
package v1

import (
	"time"

	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
)

// Portfolio tracks one user's cash in two buckets: spendable now and
// earmarked by open buy orders.
type Portfolio struct {
	ID            int64
	UserID        int64
	AvailableCash vo.Money
	ReservedCash  vo.Money
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReserveCash moves amount from available to reserved. The sum is unchanged.
func (p *Portfolio) ReserveCash(amount vo.Money) error {
	available, err := p.AvailableCash.Minus(amount)
	if err != nil {
		return err
	}
	p.AvailableCash = available
	p.ReservedCash = p.ReservedCash.Plus(amount)
	return nil
}

// SpendReserved removes amount from the reserved bucket. Used by settlement
// on the buyer side; the reservation happened at submission.
func (p *Portfolio) SpendReserved(amount vo.Money) error {
	reserved, err := p.ReservedCash.Minus(amount)
	if err != nil {
		return err
	}
	p.ReservedCash = reserved
	return nil
}

// ReleaseReserved moves amount back from reserved to available. Used by
// cancellation.
func (p *Portfolio) ReleaseReserved(amount vo.Money) error {
	reserved, err := p.ReservedCash.Minus(amount)
	if err != nil {
		return err
	}
	p.ReservedCash = reserved
	p.AvailableCash = p.AvailableCash.Plus(amount)
	return nil
}

// CreditAvailable adds amount to the available bucket. Used by settlement on
// the seller side.
func (p *Portfolio) CreditAvailable(amount vo.Money) {
	p.AvailableCash = p.AvailableCash.Plus(amount)
}

// Holding is one portfolio's position in one stock. ReservedQuantity never
// exceeds Quantity.
type Holding struct {
	ID               int64
	PortfolioID      int64
	StockCode        string
	Quantity         vo.Quantity
	ReservedQuantity vo.Quantity
	AvgPrice         vo.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AvailableQuantity returns the shares not earmarked by open sell orders.
func (h *Holding) AvailableQuantity() vo.Quantity {
	available, err := h.Quantity.Minus(h.ReservedQuantity)
	if err != nil {
		return vo.ZeroQuantity
	}
	return available
}

// Reserve earmarks quantity for an open sell order. Fails when quantity
// exceeds the unreserved balance.
func (h *Holding) Reserve(quantity vo.Quantity) error {
	if h.AvailableQuantity().LessThan(quantity) {
		return errors.NewErrorDetails(
			"holding has insufficient unreserved quantity",
			string(errors.ErrInsufficientQuantity),
			"quantity",
		)
	}
	h.ReservedQuantity = h.ReservedQuantity.Plus(quantity)
	return nil
}

// ReleaseReserved drops quantity from the reservation without selling. Used
// by cancellation.
func (h *Holding) ReleaseReserved(quantity vo.Quantity) error {
	reserved, err := h.ReservedQuantity.Minus(quantity)
	if err != nil {
		return err
	}
	h.ReservedQuantity = reserved
	return nil
}

// Acquire adds quantity bought at price, recomputing the weighted-average
// cost basis.
func (h *Holding) Acquire(price vo.Money, quantity vo.Quantity) error {
	oldQty := h.Quantity.Value()
	newQty := oldQty + quantity.Value()
	if newQty > 0 {
		avg := (h.AvgPrice.Amount()*oldQty + price.Amount()*quantity.Value()) / newQty
		newAvg, err := vo.NewMoney(avg)
		if err != nil {
			return err
		}
		h.AvgPrice = newAvg
	}
	h.Quantity = h.Quantity.Plus(quantity)
	return nil
}

// Deliver removes quantity sold through settlement, consuming the matching
// reservation. Returns true when the holding is now empty and should be
// deleted.
func (h *Holding) Deliver(quantity vo.Quantity) (bool, error) {
	remaining, err := h.Quantity.Minus(quantity)
	if err != nil {
		return false, err
	}
	reserved, err := h.ReservedQuantity.Minus(quantity)
	if err != nil {
		return false, err
	}
	h.Quantity = remaining
	h.ReservedQuantity = reserved
	return remaining.IsZero(), nil
}
