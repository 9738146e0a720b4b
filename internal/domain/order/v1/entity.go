// Package v1 defines the order aggregate: an Order header owning one or more
// OrderLines. The header status is always derived from its children; only
// creation and cancellation set it directly.
package v1

import (
	"time"

	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// Side distinguishes buying from selling interest.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Status is the aggregate order status.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

// LineStatus is the per-line execution status.
type LineStatus string

const (
	LineStatusPending         LineStatus = "PENDING"
	LineStatusPartiallyFilled LineStatus = "PARTIALLY_FILLED"
	LineStatusFilled          LineStatus = "FILLED"
	LineStatusCancelled       LineStatus = "CANCELLED"
	LineStatusExpired         LineStatus = "EXPIRED"
)

// Order is the aggregate header for a user's submission.
type Order struct {
	ID          int64
	PortfolioID int64
	Side        Side
	Status      Status
	TotalValue  vo.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine is one instrument-level order. Executed plus remaining always
// equals requested.
type OrderLine struct {
	ID                int64
	OrderID           int64
	PortfolioID       int64
	StockCode         string
	Side              Side
	RequestedPrice    vo.Money
	RequestedQuantity vo.Quantity
	ExecutedQuantity  vo.Quantity
	RemainingQuantity vo.Quantity
	AvgExecutedPrice  vo.Money
	Status            LineStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsOpen reports whether the line can still participate in matching.
func (l *OrderLine) IsOpen() bool {
	return l.Status == LineStatusPending || l.Status == LineStatusPartiallyFilled
}

// ApplyExecution records quantity executed at price against the line,
// recomputing its weighted-average executed price and status.
func (l *OrderLine) ApplyExecution(price vo.Money, quantity vo.Quantity) error {
	remaining, err := l.RemainingQuantity.Minus(quantity)
	if err != nil {
		return err
	}

	oldQty := l.ExecutedQuantity.Value()
	newQty := oldQty + quantity.Value()
	if newQty > 0 {
		avg := (l.AvgExecutedPrice.Amount()*oldQty + price.Amount()*quantity.Value()) / newQty
		l.AvgExecutedPrice, err = vo.NewMoney(avg)
		if err != nil {
			return err
		}
	}

	l.ExecutedQuantity = l.ExecutedQuantity.Plus(quantity)
	l.RemainingQuantity = remaining
	if remaining.IsZero() {
		l.Status = LineStatusFilled
	} else {
		l.Status = LineStatusPartiallyFilled
	}

	return nil
}

// DeriveStatus computes the aggregate status from the child lines. All lines
// filled means completed; all cancelled means canceled; a mix of filled and
// cancelled counts as completed because every surviving share was executed.
func DeriveStatus(lines []*OrderLine) Status {
	if len(lines) == 0 {
		return StatusCreated
	}

	allFilled := true
	allCancelled := true
	onlyTerminal := true
	for _, line := range lines {
		if line.Status != LineStatusFilled {
			allFilled = false
		}
		if line.Status != LineStatusCancelled {
			allCancelled = false
		}
		if line.Status != LineStatusFilled && line.Status != LineStatusCancelled {
			onlyTerminal = false
		}
	}

	switch {
	case allFilled:
		return StatusCompleted
	case allCancelled:
		return StatusCanceled
	case onlyTerminal:
		return StatusCompleted
	default:
		return StatusProcessing
	}
}
