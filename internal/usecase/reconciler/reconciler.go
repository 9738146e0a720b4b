// Package reconciler runs after a settlement has durably committed: any line
// the trade left partially filled goes back into the book so it keeps
// participating in future cycles. The ledger is re-read first, so a stale
// residual in the event can never resurrect a finished line.
package reconciler

import (
	"context"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
)

// Service re-projects settlement residuals into the book.
type Service struct {
	orderRepo orderv1.Repository
	book      orderbookv1.Book
	logger    logger.Interface
}

// NewService creates a reconciler.
func NewService(orderRepo orderv1.Repository, book orderbookv1.Book, logger logger.Interface) *Service {
	return &Service{
		orderRepo: orderRepo,
		book:      book,
		logger:    logger,
	}
}

// Reconcile handles one trade-settled event. It is idempotent in effect for
// redeliveries where the line has since filled or been cancelled; a
// redelivery while the line is still open re-inserts the entry, which the
// next matching cycle deduplicates against the ledger.
func (s *Service) Reconcile(ctx context.Context, ev *eventv1.TradeSettled) error {
	for _, residual := range []*orderbookv1.Entry{ev.ResidualBuy, ev.ResidualSell} {
		if residual == nil {
			continue
		}
		if err := s.reproject(ctx, residual.OrderLineID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) reproject(ctx context.Context, orderLineID int64) error {
	line, err := s.orderRepo.GetOrderLine(ctx, orderLineID)
	if err != nil {
		if errors.HasCode(err, errors.ErrOrderNotFound) {
			s.logger.Warn("residual line vanished from ledger",
				logger.Field{Key: "orderLineId", Value: orderLineID},
			)
			return nil
		}
		return err
	}

	if !line.IsOpen() || line.RemainingQuantity.IsZero() {
		return nil
	}

	return s.book.Push(ctx, orderbookv1.FromOrderLine(line))
}
