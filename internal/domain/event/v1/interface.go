package v1

import "context"

// Publisher emits pipeline events after the corresponding transaction has
// committed.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=event_mock
type Publisher interface {
	PublishOrderCreated(ctx context.Context, ev *OrderCreated) error
	PublishMatchRequested(ctx context.Context, ev *MatchRequested) error
	PublishTradeSettled(ctx context.Context, ev *TradeSettled) error
}

// DeadLetterSink receives messages that exhausted their retries.
type DeadLetterSink interface {
	Publish(ctx context.Context, record *DeadLetter) error
}
