// Package engine wires the matching worker together: ledger repositories,
// order book, instrument locks, event producers, and the three consumers
// that drive the pipeline.
package engine

import (
	"context"
	"sync"

	"github.com/f-lab-edu/stock-simulator/internal/consumer"
	matchv1 "github.com/f-lab-edu/stock-simulator/internal/domain/match/v1"
	kafkainfra "github.com/f-lab-edu/stock-simulator/internal/infrastructure/kafka"
	orderinfra "github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/order"
	portfolioinfra "github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/portfolio"
	stockinfra "github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/stock"
	tradeinfra "github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/trade"
	"github.com/f-lab-edu/stock-simulator/internal/infrastructure/redisbook"
	"github.com/f-lab-edu/stock-simulator/internal/infrastructure/redismark"
	"github.com/f-lab-edu/stock-simulator/internal/usecase/matching"
	"github.com/f-lab-edu/stock-simulator/internal/usecase/projection"
	"github.com/f-lab-edu/stock-simulator/internal/usecase/reconciler"
	"github.com/f-lab-edu/stock-simulator/internal/usecase/settlement"
	"github.com/f-lab-edu/stock-simulator/internal/usecase/submission"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
	"github.com/f-lab-edu/stock-simulator/pkg/redis"
	"github.com/f-lab-edu/stock-simulator/pkg/redislock"
)

// Engine owns the worker's long-lived resources and consumer goroutines.
type Engine struct {
	cfg    *config.Config
	logger *logger.Logger

	db          postgresql.PostgreSQLClient
	redisClient redis.Client
	publisher   *kafkainfra.Publisher
	deadLetter  *kafkainfra.DeadLetterProducer

	submission *submission.Service

	orderCreated *consumer.OrderCreatedConsumer
	matchRequest *consumer.MatchRequestConsumer
	tradeSettled *consumer.TradeSettledConsumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine connects the backing stores and builds the full pipeline.
func NewEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(log, &cfg.Redis)
	if err := redisClient.Connect(ctx); err != nil {
		db.Close()
		return nil, err
	}

	book := redisbook.NewBook(redisClient, log)
	marker := redismark.NewMarker(redisClient)
	locker := matching.NewLeaseLocker(redislock.NewLocker(redisClient))

	publisher := kafkainfra.NewPublisher(cfg.KafkaConfig, log)
	deadLetter := kafkainfra.NewDeadLetterProducer(cfg.KafkaConfig, log)

	orderRepo := orderinfra.NewRepository(db, log)
	portfolioRepo := portfolioinfra.NewRepository(db, log)
	stockRepo := stockinfra.NewRepository(db, log)
	tradeRepo := tradeinfra.NewRepository(db, log)

	policy := matchv1.PolicyFromName(cfg.MatchingConfig.PricePolicy)

	settler := settlement.NewService(db, orderRepo, portfolioRepo, tradeRepo, policy, log)
	cycle := matching.NewCycle(book, locker, settler, publisher, cfg.MatchingConfig, log)
	projector := projection.NewService(book, marker, publisher, log)
	rec := reconciler.NewService(orderRepo, book, log)
	sub := submission.NewService(db, orderRepo, portfolioRepo, stockRepo, book, publisher, log)

	return &Engine{
		cfg:         cfg,
		logger:      log,
		db:          db,
		redisClient: redisClient,
		publisher:   publisher,
		deadLetter:  deadLetter,
		submission:  sub,

		orderCreated: consumer.NewOrderCreatedConsumer(cfg.KafkaConfig, log, projector, deadLetter),
		matchRequest: consumer.NewMatchRequestConsumer(cfg.KafkaConfig, log, cycle),
		tradeSettled: consumer.NewTradeSettledConsumer(cfg.KafkaConfig, log, rec),
	}, nil
}

// Submission exposes the order intake service for an API layer embedding
// this engine.
func (e *Engine) Submission() *submission.Service {
	return e.submission
}

// Start launches the consumer loops.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.orderCreated.Start(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.matchRequest.Start(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.tradeSettled.Start(runCtx)
	}()

	e.logger.Info("matching worker started", logger.Field{
		Key:   "brokers",
		Value: e.cfg.KafkaConfig.Brokers,
	})

	return nil
}

// Stop shuts the consumers down and releases the backing connections.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Closing the readers unblocks any in-flight ReadMessage.
	if err := e.orderCreated.Stop(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "stop_order_created_consumer"})
	}
	if err := e.matchRequest.Stop(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "stop_match_request_consumer"})
	}
	if err := e.tradeSettled.Stop(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "stop_trade_settled_consumer"})
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("worker stop timeout exceeded")
		return ctx.Err()
	}

	if err := e.publisher.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "close_publisher"})
	}
	if err := e.deadLetter.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "close_dead_letter_producer"})
	}
	if err := e.redisClient.Disconnect(ctx); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
	}
	e.db.Close()

	e.logger.Info("matching worker stopped")
	return nil
}
