// Package redisbook keeps the per-instrument order book in Redis sorted
// sets, one key per side, scored by the composite price-time key. Popping
// the best entry is a single ZPOPMIN round trip, atomic on its own even if
// something ever touches the book without the instrument lock.
package redisbook

import (
	"context"

	v9 "github.com/redis/go-redis/v9"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/redis"
)

type book struct {
	client redis.Client
	logger logger.Interface
}

// NewBook creates a Redis-backed order book.
func NewBook(client redis.Client, logger logger.Interface) *book {
	return &book{
		client: client,
		logger: logger,
	}
}

// Push inserts the entry into its side's sorted set.
func (b *book) Push(ctx context.Context, entry *orderbookv1.Entry) error {
	member, err := entry.Marshal()
	if err != nil {
		return errors.TracerFromError(err)
	}

	key := orderbookv1.SideKey(entry.StockCode, orderv1.Side(entry.Side))
	score := orderbookv1.Score(orderv1.Side(entry.Side), entry.RequestedPrice, entry.CreatedAtMillis)

	_, err = b.client.ZAdd(ctx, key, v9.Z{Score: score, Member: member})
	if err != nil {
		return err
	}

	return nil
}

// PopBest atomically removes and returns the best entry of the side, or nil
// when the side is empty.
func (b *book) PopBest(ctx context.Context, stockCode string, side orderv1.Side) (*orderbookv1.Entry, error) {
	key := orderbookv1.SideKey(stockCode, side)

	members, err := b.client.ZPopMin(ctx, key, 1)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	raw, ok := members[0].Member.(string)
	if !ok {
		return nil, errors.NewErrorDetails("unexpected member type in order book", string(errors.GeneralInternalServerError), "member")
	}

	entry, err := orderbookv1.UnmarshalEntry(raw)
	if err != nil {
		b.logger.Warn("dropping unparseable order book member", logger.Field{
			Key:   "key",
			Value: key,
		})
		return nil, errors.TracerFromError(err)
	}

	return entry, nil
}

// Remove deletes a specific entry from its side, reporting whether it was
// present.
func (b *book) Remove(ctx context.Context, entry *orderbookv1.Entry) (bool, error) {
	member, err := entry.Marshal()
	if err != nil {
		return false, errors.TracerFromError(err)
	}

	key := orderbookv1.SideKey(entry.StockCode, orderv1.Side(entry.Side))
	removed, err := b.client.ZRem(ctx, key, member)
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

// Depth reports how many entries rest on the side.
func (b *book) Depth(ctx context.Context, stockCode string, side orderv1.Side) (int64, error) {
	return b.client.ZCard(ctx, orderbookv1.SideKey(stockCode, side))
}
