// Package consumer hosts the Kafka read loops of the matching worker. Each
// consumer owns one topic, decodes its event, and hands it to a usecase.
// Handlers are idempotent, so at-least-once delivery and redelivery after a
// crash are safe.
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

const (
	// maxHandleAttempts bounds how often a message is retried in-process
	// before it is parked on the dead letter topic.
	maxHandleAttempts = 3
	retryDelay        = 500 * time.Millisecond
)

// Projector pushes a newly created order line into the order book.
type Projector interface {
	Project(ctx context.Context, ev *eventv1.OrderCreated) error
}

// OrderCreatedConsumer reads order.created events and projects them into the
// book. Messages that cannot be decoded or keep failing go to the dead
// letter topic instead of blocking the partition.
type OrderCreatedConsumer struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface

	projector  Projector
	deadLetter eventv1.DeadLetterSink
	topic      string
}

// NewOrderCreatedConsumer creates a new OrderCreatedConsumer.
func NewOrderCreatedConsumer(
	cfg config.KafkaConfig,
	logger logger.Interface,
	projector Projector,
	deadLetter eventv1.DeadLetterSink,
) *OrderCreatedConsumer {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.OrderCreatedTopic,
		GroupID:     cfg.OrderCreatedGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &OrderCreatedConsumer{
		kafkaReader: kafkaReader,
		logger:      logger,
		projector:   projector,
		deadLetter:  deadLetter,
		topic:       cfg.OrderCreatedTopic,
	}
}

// Start starts the OrderCreatedConsumer.
func (c *OrderCreatedConsumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting order created consumer", logger.Field{
		Key:   "action",
		Value: "order_created_consumer_start",
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "context done", logger.Field{
				Key:   "action",
				Value: "order_created_consumer_stop",
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

// Stop stops the OrderCreatedConsumer.
func (c *OrderCreatedConsumer) Stop() error {
	c.logger.InfoContext(context.Background(), "stopping order created consumer", logger.Field{
		Key:   "action",
		Value: "order_created_consumer_stop",
	})
	return c.kafkaReader.Close()
}

func (c *OrderCreatedConsumer) handle(ctx context.Context, msg kafka.Message) {
	var ev eventv1.OrderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// A malformed payload never becomes valid on retry.
		c.park(ctx, msg, err)
		return
	}

	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		err = c.projector.Project(ctx, &ev)
		if err == nil {
			return
		}

		c.logger.ErrorContext(ctx, err,
			logger.Field{Key: "action", Value: "project_order_line"},
			logger.Field{Key: "orderLineId", Value: ev.OrderLineID},
			logger.Field{Key: "attempt", Value: attempt},
		)

		if attempt == maxHandleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}

	c.park(ctx, msg, err)
}

func (c *OrderCreatedConsumer) park(ctx context.Context, msg kafka.Message, cause error) {
	record := &eventv1.DeadLetter{
		SourceTopic:   c.topic,
		Payload:       string(msg.Value),
		FailureReason: cause.Error(),
	}

	if err := c.deadLetter.Publish(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "publish_dead_letter",
		})
	}
}
