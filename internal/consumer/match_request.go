package consumer

import (
	"context"
	"encoding/json"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// CycleRunner runs one matching cycle for an instrument.
type CycleRunner interface {
	Run(ctx context.Context, stockCode string) error
}

// MatchRequestConsumer reads match.request events and triggers the matching
// cycle. A failed or skipped cycle needs no dead letter handling because the
// next request for the instrument covers the same work.
type MatchRequestConsumer struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface

	cycle CycleRunner
}

// NewMatchRequestConsumer creates a new MatchRequestConsumer.
func NewMatchRequestConsumer(cfg config.KafkaConfig, logger logger.Interface, cycle CycleRunner) *MatchRequestConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.MatchRequestTopic,
		GroupID:     cfg.MatchRequestGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &MatchRequestConsumer{
		kafkaReader: kafkaReader,
		logger:      logger,
		cycle:       cycle,
	}
}

// Start starts the MatchRequestConsumer.
func (c *MatchRequestConsumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting match request consumer", logger.Field{
		Key:   "action",
		Value: "match_request_consumer_start",
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "context done", logger.Field{
				Key:   "action",
				Value: "match_request_consumer_stop",
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

// Stop stops the MatchRequestConsumer.
func (c *MatchRequestConsumer) Stop() error {
	c.logger.InfoContext(context.Background(), "stopping match request consumer", logger.Field{
		Key:   "action",
		Value: "match_request_consumer_stop",
	})
	return c.kafkaReader.Close()
}

func (c *MatchRequestConsumer) handle(ctx context.Context, msg kafka.Message) {
	var ev eventv1.MatchRequested
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal_match_request",
		})
		return
	}

	if err := c.cycle.Run(ctx, ev.StockCode); err != nil {
		c.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "run_matching_cycle"},
			logger.Field{Key: "stockCode", Value: ev.StockCode},
		)
	}
}
