// Package projection turns committed order lines into book entries. Each
// line is projected at most once per retention window; redelivered events
// are absorbed by the processed marker instead of duplicating book interest.
package projection

import (
	"context"
	"time"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
)

// Marker records which order lines were already projected.
type Marker interface {
	MarkProcessed(ctx context.Context, orderLineID int64) (bool, error)
	Clear(ctx context.Context, orderLineID int64) error
}

// Service projects order-created events into the book and triggers matching.
type Service struct {
	book      orderbookv1.Book
	marker    Marker
	publisher eventv1.Publisher
	logger    logger.Interface
}

// NewService creates a projection service.
func NewService(book orderbookv1.Book, marker Marker, publisher eventv1.Publisher, logger logger.Interface) *Service {
	return &Service{
		book:      book,
		marker:    marker,
		publisher: publisher,
		logger:    logger,
	}
}

// Project inserts the event's line into the book and requests a matching
// cycle for its instrument. A duplicate delivery is a logged no-op.
func (s *Service) Project(ctx context.Context, ev *eventv1.OrderCreated) error {
	first, err := s.marker.MarkProcessed(ctx, ev.OrderLineID)
	if err != nil {
		return err
	}
	if !first {
		s.logger.Info("order line already projected",
			logger.Field{Key: "orderLineId", Value: ev.OrderLineID},
		)
		return nil
	}

	entry := &orderbookv1.Entry{
		OrderLineID:       ev.OrderLineID,
		StockCode:         ev.StockCode,
		Side:              ev.Side,
		RequestedPrice:    ev.Price,
		RemainingQuantity: ev.Quantity,
		CreatedAtMillis:   ev.CreatedAt,
	}
	if err := s.book.Push(ctx, entry); err != nil {
		// Undo the mark so a redelivery can try again.
		if clearErr := s.marker.Clear(ctx, ev.OrderLineID); clearErr != nil {
			s.logger.Error(clearErr, logger.Field{Key: "orderLineId", Value: ev.OrderLineID})
		}
		return err
	}

	if err := s.publisher.PublishMatchRequested(ctx, &eventv1.MatchRequested{
		StockCode:   ev.StockCode,
		RequestedAt: time.Now().UnixMilli(),
	}); err != nil {
		// The entry is in the book; any later trigger for the instrument
		// will pick it up.
		s.logger.Error(err, logger.Field{Key: "stockCode", Value: ev.StockCode})
	}

	return nil
}
