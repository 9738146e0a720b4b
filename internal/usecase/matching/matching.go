// Package matching runs the per-instrument cycle: under the instrument's
// lease lock it repeatedly pops the best buy and sell, hands crossable pairs
// to settlement, and publishes the outcome. The iteration budget bounds how
// long one trigger can spin on a stuck instrument.
package matching

import (
	"context"
	"fmt"
	"time"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	matchv1 "github.com/f-lab-edu/stock-simulator/internal/domain/match/v1"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/redislock"
)

// Lock is a held lease on one instrument.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker acquires instrument leases.
type Locker interface {
	Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (Lock, bool, error)
}

// Settler runs one settlement transaction per pair.
type Settler interface {
	SettlePair(ctx context.Context, pair *matchv1.Pair) (*matchv1.Result, error)
}

// Cycle matches one instrument at a time.
type Cycle struct {
	book      orderbookv1.Book
	locker    Locker
	settler   Settler
	publisher eventv1.Publisher
	cfg       config.MatchingConfig
	logger    logger.Interface
}

// NewCycle creates a matching cycle runner.
func NewCycle(
	book orderbookv1.Book,
	locker Locker,
	settler Settler,
	publisher eventv1.Publisher,
	cfg config.MatchingConfig,
	logger logger.Interface,
) *Cycle {
	return &Cycle{
		book:      book,
		locker:    locker,
		settler:   settler,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// LockKey names the instrument's mutex in the lock service.
func LockKey(stockCode string) string {
	return fmt.Sprintf("lock:match:%s", stockCode)
}

// Run executes one matching cycle for the instrument. Failing to win the
// lock is not an error: another worker owns the instrument and the book
// state persists for the next trigger.
func (c *Cycle) Run(ctx context.Context, stockCode string) error {
	lock, ok, err := c.locker.Acquire(ctx, LockKey(stockCode), c.cfg.LockWaitTimeout, c.cfg.LockLease)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug("instrument lock busy, abandoning trigger",
			logger.Field{Key: "stockCode", Value: stockCode},
		)
		return nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			c.logger.Error(err, logger.Field{Key: "stockCode", Value: stockCode})
		}
	}()

	for i := 0; i < c.cfg.MaxIterations; i++ {
		proceed, err := c.matchOnce(ctx, stockCode)
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}

	c.logger.Warn("iteration budget exhausted",
		logger.Field{Key: "stockCode", Value: stockCode},
	)
	return nil
}

// matchOnce pops and processes one candidate pair. It reports whether the
// cycle should keep going.
func (c *Cycle) matchOnce(ctx context.Context, stockCode string) (bool, error) {
	buy, err := c.book.PopBest(ctx, stockCode, orderv1.SideBuy)
	if err != nil {
		return false, err
	}
	sell, err := c.book.PopBest(ctx, stockCode, orderv1.SideSell)
	if err != nil {
		c.requeue(ctx, buy)
		return false, err
	}

	if buy == nil || sell == nil {
		c.requeue(ctx, buy)
		c.requeue(ctx, sell)
		return false, nil
	}

	pair := &matchv1.Pair{Buy: buy, Sell: sell}
	if !pair.Crossable() {
		c.requeue(ctx, buy)
		c.requeue(ctx, sell)
		return false, nil
	}

	result, err := c.settler.SettlePair(ctx, pair)
	if err != nil {
		if matchv1.IsTransient(err) {
			c.logger.Warn("transient settlement failure, requeueing pair",
				logger.Field{Key: "stockCode", Value: stockCode},
				logger.Field{Key: "error", Value: err.Error()},
			)
			c.requeue(ctx, buy)
			c.requeue(ctx, sell)
			c.backoff(ctx)
			return true, nil
		}

		// Structural: the pair is provably invalid, drop it and move on.
		c.logger.Error(err,
			logger.Field{Key: "stockCode", Value: stockCode},
			logger.Field{Key: "buyOrderLineId", Value: buy.OrderLineID},
			logger.Field{Key: "sellOrderLineId", Value: sell.OrderLineID},
		)
		return true, nil
	}

	if result.Idempotent {
		return true, nil
	}

	ev := &eventv1.TradeSettled{
		TradeID:      result.TradeID,
		StockCode:    stockCode,
		Price:        result.Price.Amount(),
		Quantity:     result.Quantity.Value(),
		ResidualBuy:  result.ResidualBuy,
		ResidualSell: result.ResidualSell,
		SettledAt:    time.Now().UnixMilli(),
	}
	if err := c.publisher.PublishTradeSettled(ctx, ev); err != nil {
		// The settlement is durably committed; the residuals stay absent from
		// the book until an external sweep replays them.
		c.logger.Error(err, logger.Field{Key: "tradeId", Value: result.TradeID})
	}

	return true, nil
}

func (c *Cycle) requeue(ctx context.Context, entry *orderbookv1.Entry) {
	if entry == nil {
		return
	}
	if err := c.book.Push(ctx, entry); err != nil {
		c.logger.Error(err,
			logger.Field{Key: "orderLineId", Value: entry.OrderLineID},
			logger.Field{Key: "stockCode", Value: entry.StockCode},
		)
	}
}

func (c *Cycle) backoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.RetryBackoff):
	}
}

// LeaseLocker adapts the Redis lease lock to the cycle's Locker interface.
type LeaseLocker struct {
	inner *redislock.Locker
}

// NewLeaseLocker wraps a redislock.Locker.
func NewLeaseLocker(inner *redislock.Locker) LeaseLocker {
	return LeaseLocker{inner: inner}
}

// Acquire takes the lease, returning a nil Lock when the key stayed busy.
func (l LeaseLocker) Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (Lock, bool, error) {
	lk, ok, err := l.inner.Acquire(ctx, key, waitTimeout, lease)
	if err != nil || !ok {
		return nil, false, err
	}
	return lk, true, nil
}
