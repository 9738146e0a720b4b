// Package v1 defines the immutable execution record. The pair of line ids is
// unique in storage; that constraint, not the existence check, is the real
// idempotency boundary across crashes and retries.
package v1

import (
	"context"
	"time"

	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// Trade records one settled execution between a buy and a sell line.
type Trade struct {
	ID              int64
	BuyOrderLineID  int64
	SellOrderLineID int64
	StockCode       string
	Price           vo.Money
	Quantity        vo.Quantity
	ExecutedAt      time.Time
}

// Repository persists trades.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=trade_mock
type Repository interface {
	// Create inserts the trade. When the (buy, sell) pair already exists the
	// implementation reports the duplicate distinctly so settlement can treat
	// it as an idempotent no-op.
	Create(ctx context.Context, trade *Trade) (int64, error)
	ExistsByPair(ctx context.Context, buyLineID, sellLineID int64) (bool, error)
}
