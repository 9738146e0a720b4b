package v1

import (
	"context"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
)

// Book is the per-instrument two-sided sorted book. PopBest must be a single
// atomic read-and-remove round trip; a plain read followed by a separate
// remove races under multi-worker deployment.
//
//go:generate mockgen -source book.go -destination=mock/book_mock.go -package=orderbook_mock
type Book interface {
	// Push inserts the entry into its side, keyed by the composite score.
	Push(ctx context.Context, entry *Entry) error
	// PopBest atomically removes and returns the best entry of the side, or
	// nil when the side is empty.
	PopBest(ctx context.Context, stockCode string, side orderv1.Side) (*Entry, error)
	// Remove deletes a specific entry from its side, for cancellation.
	Remove(ctx context.Context, entry *Entry) (bool, error)
	// Depth reports how many entries rest on the side.
	Depth(ctx context.Context, stockCode string, side orderv1.Side) (int64, error)
}
