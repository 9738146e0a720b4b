// Package kafka carries the pipeline's events between processes. One writer
// per topic; match requests are keyed by instrument so one instrument's
// triggers stay on one partition.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
)

// Publisher writes pipeline events to their topics.
type Publisher struct {
	orderCreated *kafka.Writer
	matchRequest *kafka.Writer
	tradeSettled *kafka.Writer
	logger       logger.Interface
}

// NewPublisher creates writers for every outbound topic.
func NewPublisher(cfg config.KafkaConfig, logger logger.Interface) *Publisher {
	return &Publisher{
		orderCreated: newWriter(cfg.Brokers, cfg.OrderCreatedTopic),
		matchRequest: newWriter(cfg.Brokers, cfg.MatchRequestTopic),
		tradeSettled: newWriter(cfg.Brokers, cfg.TradeSettledTopic),
		logger:       logger,
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
}

// PublishOrderCreated announces a committed submission.
func (p *Publisher) PublishOrderCreated(ctx context.Context, ev *eventv1.OrderCreated) error {
	return p.publish(ctx, p.orderCreated, []byte(ev.StockCode), ev)
}

// PublishMatchRequested asks a worker to run a cycle for the instrument.
func (p *Publisher) PublishMatchRequested(ctx context.Context, ev *eventv1.MatchRequested) error {
	return p.publish(ctx, p.matchRequest, []byte(ev.StockCode), ev)
}

// PublishTradeSettled announces a committed settlement.
func (p *Publisher) PublishTradeSettled(ctx context.Context, ev *eventv1.TradeSettled) error {
	return p.publish(ctx, p.tradeSettled, []byte(ev.StockCode), ev)
}

func (p *Publisher) publish(ctx context.Context, w *kafka.Writer, key []byte, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.TracerFromError(err)
	}

	msg := kafka.Message{
		Key:   key,
		Value: value,
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "topic", Value: w.Topic},
		)
		return errors.TracerFromError(err)
	}

	return nil
}

// Close flushes and closes every writer.
func (p *Publisher) Close() error {
	for _, w := range []*kafka.Writer{p.orderCreated, p.matchRequest, p.tradeSettled} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
