package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
)

// DeadLetterProducer parks unprocessable messages with enough context for
// manual replay.
type DeadLetterProducer struct {
	writer *kafka.Writer
	logger logger.Interface
}

// NewDeadLetterProducer creates the DLQ writer.
func NewDeadLetterProducer(cfg config.KafkaConfig, logger logger.Interface) *DeadLetterProducer {
	return &DeadLetterProducer{
		writer: newWriter(cfg.Brokers, cfg.DeadLetterTopic),
		logger: logger,
	}
}

// Publish writes the record, assigning a sortable id when it has none.
func (p *DeadLetterProducer) Publish(ctx context.Context, record *eventv1.DeadLetter) error {
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	if record.FailedAt.IsZero() {
		record.FailedAt = time.Now()
	}

	value, err := json.Marshal(record)
	if err != nil {
		return errors.TracerFromError(err)
	}

	msg := kafka.Message{
		Key:   []byte(record.ID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "sourceTopic", Value: record.SourceTopic},
			logger.Field{Key: "deadLetterId", Value: record.ID},
		)
		return errors.TracerFromError(err)
	}

	p.logger.Warn("parked message in dead letter queue",
		logger.Field{Key: "sourceTopic", Value: record.SourceTopic},
		logger.Field{Key: "reason", Value: record.FailureReason},
		logger.Field{Key: "deadLetterId", Value: record.ID},
	)

	return nil
}

// Close flushes and closes the writer.
func (p *DeadLetterProducer) Close() error {
	return p.writer.Close()
}
