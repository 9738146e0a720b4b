package matching

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	eventMock "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1/mock"
	matchv1 "github.com/f-lab-edu/stock-simulator/internal/domain/match/v1"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	mockLogger "github.com/f-lab-edu/stock-simulator/pkg/logger/mock"
)

// memoryBook is an in-process book honoring the composite score ordering.
type memoryBook struct {
	sides map[string][]*orderbookv1.Entry
}

func newMemoryBook() *memoryBook {
	return &memoryBook{sides: map[string][]*orderbookv1.Entry{}}
}

func (b *memoryBook) Push(ctx context.Context, entry *orderbookv1.Entry) error {
	key := orderbookv1.SideKey(entry.StockCode, orderv1.Side(entry.Side))
	b.sides[key] = append(b.sides[key], entry)
	sort.SliceStable(b.sides[key], func(i, j int) bool {
		ei, ej := b.sides[key][i], b.sides[key][j]
		return orderbookv1.Score(orderv1.Side(ei.Side), ei.RequestedPrice, ei.CreatedAtMillis) <
			orderbookv1.Score(orderv1.Side(ej.Side), ej.RequestedPrice, ej.CreatedAtMillis)
	})
	return nil
}

func (b *memoryBook) PopBest(ctx context.Context, stockCode string, side orderv1.Side) (*orderbookv1.Entry, error) {
	key := orderbookv1.SideKey(stockCode, side)
	entries := b.sides[key]
	if len(entries) == 0 {
		return nil, nil
	}
	best := entries[0]
	b.sides[key] = entries[1:]
	return best, nil
}

func (b *memoryBook) Remove(ctx context.Context, entry *orderbookv1.Entry) (bool, error) {
	key := orderbookv1.SideKey(entry.StockCode, orderv1.Side(entry.Side))
	for i, e := range b.sides[key] {
		if e.OrderLineID == entry.OrderLineID {
			b.sides[key] = append(b.sides[key][:i], b.sides[key][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (b *memoryBook) Depth(ctx context.Context, stockCode string, side orderv1.Side) (int64, error) {
	return int64(len(b.sides[orderbookv1.SideKey(stockCode, side)])), nil
}

type fakeLock struct {
	released bool
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.released = true
	return nil
}

type fakeLocker struct {
	busy bool
	lock *fakeLock
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (Lock, bool, error) {
	if l.busy {
		return nil, false, nil
	}
	l.lock = &fakeLock{}
	return l.lock, true, nil
}

// scriptedSettler returns the queued responses in order.
type scriptedSettler struct {
	results []*matchv1.Result
	errs    []error
	pairs   []*matchv1.Pair
}

func (s *scriptedSettler) SettlePair(ctx context.Context, pair *matchv1.Pair) (*matchv1.Result, error) {
	i := len(s.pairs)
	s.pairs = append(s.pairs, pair)
	var result *matchv1.Result
	var err error
	if i < len(s.results) {
		result = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return result, err
}

func quietLogger(t *testing.T, ctrl *gomock.Controller) *mockLogger.MockInterface {
	t.Helper()
	log := mockLogger.NewMockInterface(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func testConfig() config.MatchingConfig {
	return config.MatchingConfig{
		LockWaitTimeout: 100 * time.Millisecond,
		LockLease:       time.Second,
		MaxIterations:   10,
		RetryBackoff:    time.Millisecond,
	}
}

func buyEntry(id, price, qty, ts int64) *orderbookv1.Entry {
	return &orderbookv1.Entry{
		OrderLineID:       id,
		StockCode:         "AAPL",
		Side:              string(orderv1.SideBuy),
		RequestedPrice:    price,
		RemainingQuantity: qty,
		CreatedAtMillis:   ts,
	}
}

func sellEntry(id, price, qty, ts int64) *orderbookv1.Entry {
	return &orderbookv1.Entry{
		OrderLineID:       id,
		StockCode:         "AAPL",
		Side:              string(orderv1.SideSell),
		RequestedPrice:    price,
		RemainingQuantity: qty,
		CreatedAtMillis:   ts,
	}
}

func TestCycle_Run_SettlesCrossablePair(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 5, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 90, 3, 20)))

	settler := &scriptedSettler{
		results: []*matchv1.Result{{
			TradeID:     7,
			Price:       vo.MustMoney(90),
			Quantity:    vo.MustQuantity(3),
			ResidualBuy: buyEntry(1, 100, 2, 10),
		}},
	}

	publisher := eventMock.NewMockPublisher(ctrl)
	publisher.EXPECT().
		PublishTradeSettled(gomock.Any(), gomock.AssignableToTypeOf(&eventv1.TradeSettled{})).
		DoAndReturn(func(_ context.Context, ev *eventv1.TradeSettled) error {
			assert.Equal(t, int64(7), ev.TradeID)
			assert.Equal(t, "AAPL", ev.StockCode)
			assert.Equal(t, int64(90), ev.Price)
			assert.Equal(t, int64(3), ev.Quantity)
			require.NotNil(t, ev.ResidualBuy)
			assert.Equal(t, int64(2), ev.ResidualBuy.RemainingQuantity)
			return nil
		})

	locker := &fakeLocker{}
	cycle := NewCycle(book, locker, settler, publisher, testConfig(), quietLogger(t, ctrl))

	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	require.Len(t, settler.pairs, 1)
	assert.Equal(t, int64(1), settler.pairs[0].Buy.OrderLineID)
	assert.Equal(t, int64(2), settler.pairs[0].Sell.OrderLineID)
	assert.True(t, locker.lock.released)
}

func TestCycle_Run_NotCrossable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Buy 80 vs Sell 100: both entries go back unchanged, nothing settles.
	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 80, 1, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 100, 1, 20)))

	settler := &scriptedSettler{}
	cycle := NewCycle(book, &fakeLocker{}, settler, eventMock.NewMockPublisher(ctrl), testConfig(), quietLogger(t, ctrl))

	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	assert.Empty(t, settler.pairs)
	buyDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideBuy)
	sellDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideSell)
	assert.Equal(t, int64(1), buyDepth)
	assert.Equal(t, int64(1), sellDepth)
}

func TestCycle_Run_LockBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 90, 1, 20)))

	settler := &scriptedSettler{}
	cycle := NewCycle(book, &fakeLocker{busy: true}, settler, eventMock.NewMockPublisher(ctrl), testConfig(), quietLogger(t, ctrl))

	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	// Abandoned silently, book untouched.
	assert.Empty(t, settler.pairs)
	buyDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideBuy)
	assert.Equal(t, int64(1), buyDepth)
}

func TestCycle_Run_OneSidedBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, 10)))

	settler := &scriptedSettler{}
	cycle := NewCycle(book, &fakeLocker{}, settler, eventMock.NewMockPublisher(ctrl), testConfig(), quietLogger(t, ctrl))

	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	// The popped buy went back.
	assert.Empty(t, settler.pairs)
	buyDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideBuy)
	assert.Equal(t, int64(1), buyDepth)
}

func TestCycle_Run_TransientFailureRequeues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 90, 1, 20)))

	// First attempt fails transiently, second succeeds.
	settler := &scriptedSettler{
		results: []*matchv1.Result{nil, {
			TradeID:  3,
			Price:    vo.MustMoney(90),
			Quantity: vo.MustQuantity(1),
		}},
		errs: []error{matchv1.NewTransientError("db gone", nil), nil},
	}

	publisher := eventMock.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishTradeSettled(gomock.Any(), gomock.Any()).Return(nil)

	cycle := NewCycle(book, &fakeLocker{}, settler, publisher, testConfig(), quietLogger(t, ctrl))
	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	assert.Len(t, settler.pairs, 2)
}

func TestCycle_Run_StructuralFailureDropsPair(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 90, 1, 20)))

	settler := &scriptedSettler{
		errs: []error{matchv1.NewStructuralError("line missing", nil)},
	}

	cycle := NewCycle(book, &fakeLocker{}, settler, eventMock.NewMockPublisher(ctrl), testConfig(), quietLogger(t, ctrl))
	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	// Pair dropped, nothing requeued, no retry.
	assert.Len(t, settler.pairs, 1)
	buyDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideBuy)
	sellDepth, _ := book.Depth(context.Background(), "AAPL", orderv1.SideSell)
	assert.Zero(t, buyDepth)
	assert.Zero(t, sellDepth)
}

func TestCycle_Run_PriceTimePriority(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t1 := int64(1_700_000_000_000)
	t2 := t1 + 1000
	t3 := t1 + 2000

	// Buys at {100,100,95} submitted at {t2,t1,t3}: the t1 order matches
	// first, then t2, then the 95 order.
	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, t2)))
	require.NoError(t, book.Push(context.Background(), buyEntry(2, 100, 1, t1)))
	require.NoError(t, book.Push(context.Background(), buyEntry(3, 95, 1, t3)))
	for i := int64(0); i < 3; i++ {
		require.NoError(t, book.Push(context.Background(), sellEntry(10+i, 90, 1, t1+i)))
	}

	settler := &scriptedSettler{
		results: []*matchv1.Result{
			{TradeID: 1, Price: vo.MustMoney(90), Quantity: vo.MustQuantity(1)},
			{TradeID: 2, Price: vo.MustMoney(90), Quantity: vo.MustQuantity(1)},
			{TradeID: 3, Price: vo.MustMoney(90), Quantity: vo.MustQuantity(1)},
		},
	}

	publisher := eventMock.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishTradeSettled(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	cycle := NewCycle(book, &fakeLocker{}, settler, publisher, testConfig(), quietLogger(t, ctrl))
	require.NoError(t, cycle.Run(context.Background(), "AAPL"))

	require.Len(t, settler.pairs, 3)
	assert.Equal(t, int64(2), settler.pairs[0].Buy.OrderLineID)
	assert.Equal(t, int64(1), settler.pairs[1].Buy.OrderLineID)
	assert.Equal(t, int64(3), settler.pairs[2].Buy.OrderLineID)
}

// grantOnceLocker hands the lease to the first caller and reports busy to
// everyone after, the way the Redis lease behaves under contention.
type grantOnceLocker struct {
	mu      sync.Mutex
	granted bool
	lock    *fakeLock
}

func (l *grantOnceLocker) Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (Lock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.granted {
		return nil, false, nil
	}
	l.granted = true
	l.lock = &fakeLock{}
	return l.lock, true, nil
}

func TestCycle_Run_ConcurrentTriggersSettleOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	book := newMemoryBook()
	require.NoError(t, book.Push(context.Background(), buyEntry(1, 100, 1, 10)))
	require.NoError(t, book.Push(context.Background(), sellEntry(2, 90, 1, 20)))

	settler := &scriptedSettler{
		results: []*matchv1.Result{{
			TradeID:  11,
			Price:    vo.MustMoney(90),
			Quantity: vo.MustQuantity(1),
		}},
	}

	publisher := eventMock.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishTradeSettled(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	locker := &grantOnceLocker{}
	cycle := NewCycle(book, locker, settler, publisher, testConfig(), quietLogger(t, ctrl))

	// Two triggers race for the same instrument. The loser abandons without
	// touching the book, so the pair settles exactly once.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cycle.Run(context.Background(), "AAPL"))
		}()
	}
	wg.Wait()

	require.Len(t, settler.pairs, 1)
	assert.Equal(t, int64(1), settler.pairs[0].Buy.OrderLineID)
	assert.Equal(t, int64(2), settler.pairs[0].Sell.OrderLineID)
	assert.True(t, locker.lock.released)
}
