package consumer

import (
	"context"
	"encoding/json"
	"time"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reconciler re-projects residual order lines after a settlement.
type Reconciler interface {
	Reconcile(ctx context.Context, ev *eventv1.TradeSettled) error
}

// TradeSettledConsumer reads trade.settled events and pushes residual lines
// back into the book. Reconciliation reads the ledger before pushing, so a
// retried or duplicated event cannot resurrect a closed line.
type TradeSettledConsumer struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface

	reconciler Reconciler
}

// NewTradeSettledConsumer creates a new TradeSettledConsumer.
func NewTradeSettledConsumer(cfg config.KafkaConfig, logger logger.Interface, reconciler Reconciler) *TradeSettledConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.TradeSettledTopic,
		GroupID:     cfg.TradeSettledGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &TradeSettledConsumer{
		kafkaReader: kafkaReader,
		logger:      logger,
		reconciler:  reconciler,
	}
}

// Start starts the TradeSettledConsumer.
func (c *TradeSettledConsumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting trade settled consumer", logger.Field{
		Key:   "action",
		Value: "trade_settled_consumer_start",
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "context done", logger.Field{
				Key:   "action",
				Value: "trade_settled_consumer_stop",
			})
			return
		default:
			msg, err := c.kafkaReader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.ErrorContext(ctx, err, logger.Field{
					Key:   "action",
					Value: "read_message",
				})
				continue
			}

			c.handle(ctx, msg)
		}
	}
}

// Stop stops the TradeSettledConsumer.
func (c *TradeSettledConsumer) Stop() error {
	c.logger.InfoContext(context.Background(), "stopping trade settled consumer", logger.Field{
		Key:   "action",
		Value: "trade_settled_consumer_stop",
	})
	return c.kafkaReader.Close()
}

func (c *TradeSettledConsumer) handle(ctx context.Context, msg kafka.Message) {
	var ev eventv1.TradeSettled
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal_trade_settled",
		})
		return
	}

	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		err = c.reconciler.Reconcile(ctx, &ev)
		if err == nil {
			return
		}

		c.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "reconcile_trade"},
			logger.Field{Key: "tradeId", Value: ev.TradeID},
			logger.Field{Key: "attempt", Value: attempt},
		)

		if attempt == maxHandleAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
