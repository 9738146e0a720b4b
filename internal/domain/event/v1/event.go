// Package v1 defines the messages that stitch submission, matching, and
// reconciliation together. Delivery is at-least-once and possibly reordered;
// every consumer is idempotent by construction.
package v1

import (
	"time"

	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
)

// OrderCreated is published after a submission transaction commits. It
// triggers projection of the new line into the book.
type OrderCreated struct {
	OrderID     int64  `json:"orderId"`
	OrderLineID int64  `json:"orderLineId"`
	PortfolioID int64  `json:"portfolioId"`
	StockCode   string `json:"stockCode"`
	Side        string `json:"side"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	CreatedAt   int64  `json:"createdAt"`
}

// MatchRequested asks a worker to run one matching cycle for an instrument.
// Duplicate or reordered deliveries are harmless; the cycle only acts on
// what is actually in the book.
type MatchRequested struct {
	StockCode   string `json:"stockCode"`
	RequestedAt int64  `json:"requestedAt"`
}

// TradeSettled is published after a settlement commit. Reconciliation pushes
// the residual entries back into the book.
type TradeSettled struct {
	TradeID      int64              `json:"tradeId"`
	StockCode    string             `json:"stockCode"`
	Price        int64              `json:"price"`
	Quantity     int64              `json:"quantity"`
	ResidualBuy  *orderbookv1.Entry `json:"residualBuy,omitempty"`
	ResidualSell *orderbookv1.Entry `json:"residualSell,omitempty"`
	SettledAt    int64              `json:"settledAt"`
}

// DeadLetter wraps a message that exhausted its retries, with enough context
// for manual replay.
type DeadLetter struct {
	ID            string    `json:"id"`
	SourceTopic   string    `json:"sourceTopic"`
	Payload       string    `json:"payload"`
	FailureReason string    `json:"failureReason"`
	FailedAt      time.Time `json:"failedAt"`
}
