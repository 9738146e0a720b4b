package submission

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	eventMock "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1/mock"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	stockv1 "github.com/f-lab-edu/stock-simulator/internal/domain/stock/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	mockLogger "github.com/f-lab-edu/stock-simulator/pkg/logger/mock"
	mockPg "github.com/f-lab-edu/stock-simulator/pkg/postgresql/mock"
)

type fakeTx struct{}

func (fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(ctx context.Context) error          { return nil }
func (fakeTx) Rollback(ctx context.Context) error        { return nil }
func (fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeOrderRepo struct {
	orders map[int64]*orderv1.Order
	lines  map[int64]*orderv1.OrderLine
	nextID int64

	// lineCreatedAt plays the database's now(): CreateOrderLine stamps it on
	// the line the way the real repository scans RETURNING created_at.
	lineCreatedAt time.Time
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:        map[int64]*orderv1.Order{},
		lines:         map[int64]*orderv1.OrderLine{},
		nextID:        1,
		lineCreatedAt: time.Date(2026, 3, 2, 9, 30, 0, 123e6, time.UTC),
	}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, o *orderv1.Order) (int64, error) {
	id := f.nextID
	f.nextID++
	o.ID = id
	cp := *o
	f.orders[id] = &cp
	return id, nil
}

func (f *fakeOrderRepo) CreateOrderLine(ctx context.Context, line *orderv1.OrderLine) (int64, error) {
	id := f.nextID
	f.nextID++
	line.ID = id
	line.CreatedAt = f.lineCreatedAt
	cp := *line
	f.lines[id] = &cp
	return id, nil
}

func (f *fakeOrderRepo) GetOrder(ctx context.Context, id int64) (*orderv1.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, errors.NewErrorDetails("order not found", string(errors.ErrOrderNotFound), "id")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderLine(ctx context.Context, id int64) (*orderv1.OrderLine, error) {
	line, ok := f.lines[id]
	if !ok {
		return nil, errors.NewErrorDetails("order line not found", string(errors.ErrOrderNotFound), "id")
	}
	cp := *line
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderLineForUpdate(ctx context.Context, id int64) (*orderv1.OrderLine, error) {
	return f.GetOrderLine(ctx, id)
}

func (f *fakeOrderRepo) ListOrderLines(ctx context.Context, orderID int64) ([]*orderv1.OrderLine, error) {
	var lines []*orderv1.OrderLine
	for _, line := range f.lines {
		if line.OrderID == orderID {
			cp := *line
			lines = append(lines, &cp)
		}
	}
	return lines, nil
}

func (f *fakeOrderRepo) UpdateOrderLine(ctx context.Context, line *orderv1.OrderLine) error {
	cp := *line
	f.lines[line.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, id int64, status orderv1.Status) error {
	if o, ok := f.orders[id]; ok {
		o.Status = status
	}
	return nil
}

type fakePortfolioRepo struct {
	portfolios map[int64]*portfoliov1.Portfolio
	holdings   map[int64]*portfoliov1.Holding
	nextID     int64
}

func newFakePortfolioRepo() *fakePortfolioRepo {
	return &fakePortfolioRepo{portfolios: map[int64]*portfoliov1.Portfolio{}, holdings: map[int64]*portfoliov1.Holding{}, nextID: 1}
}

func (f *fakePortfolioRepo) GetPortfolio(ctx context.Context, id int64) (*portfoliov1.Portfolio, error) {
	p, ok := f.portfolios[id]
	if !ok {
		return nil, errors.NewErrorDetails("portfolio not found", string(errors.GeneralNotFoundError), "id")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePortfolioRepo) GetPortfolioForUpdate(ctx context.Context, id int64) (*portfoliov1.Portfolio, error) {
	return f.GetPortfolio(ctx, id)
}

func (f *fakePortfolioRepo) UpdatePortfolioCash(ctx context.Context, p *portfoliov1.Portfolio) error {
	cp := *p
	f.portfolios[p.ID] = &cp
	return nil
}

func (f *fakePortfolioRepo) GetHolding(ctx context.Context, portfolioID int64, stockCode string) (*portfoliov1.Holding, error) {
	for _, h := range f.holdings {
		if h.PortfolioID == portfolioID && h.StockCode == stockCode {
			cp := *h
			return &cp, nil
		}
	}
	return nil, errors.NewErrorDetails("holding not found", string(errors.ErrHoldingNotFound), "portfolioId")
}

func (f *fakePortfolioRepo) GetHoldingForUpdate(ctx context.Context, portfolioID int64, stockCode string) (*portfoliov1.Holding, error) {
	return f.GetHolding(ctx, portfolioID, stockCode)
}

func (f *fakePortfolioRepo) CreateHolding(ctx context.Context, h *portfoliov1.Holding) (int64, error) {
	id := f.nextID
	f.nextID++
	h.ID = id
	cp := *h
	f.holdings[id] = &cp
	return id, nil
}

func (f *fakePortfolioRepo) UpdateHolding(ctx context.Context, h *portfoliov1.Holding) error {
	cp := *h
	f.holdings[h.ID] = &cp
	return nil
}

func (f *fakePortfolioRepo) DeleteHolding(ctx context.Context, id int64) error {
	delete(f.holdings, id)
	return nil
}

type fakeStockRepo struct {
	stocks map[string]*stockv1.Stock
}

func (f *fakeStockRepo) GetByCode(ctx context.Context, code string) (*stockv1.Stock, error) {
	s, ok := f.stocks[code]
	if !ok {
		return nil, errors.NewErrorDetails("stock not found", string(errors.ErrStockNotFound), "code")
	}
	return s, nil
}

type fakeBook struct {
	pushed  []*orderbookv1.Entry
	removed []*orderbookv1.Entry
}

func (f *fakeBook) Push(ctx context.Context, entry *orderbookv1.Entry) error {
	f.pushed = append(f.pushed, entry)
	return nil
}

func (f *fakeBook) PopBest(ctx context.Context, stockCode string, side orderv1.Side) (*orderbookv1.Entry, error) {
	return nil, nil
}

func (f *fakeBook) Remove(ctx context.Context, entry *orderbookv1.Entry) (bool, error) {
	f.removed = append(f.removed, entry)
	return true, nil
}

func (f *fakeBook) Depth(ctx context.Context, stockCode string, side orderv1.Side) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc        *Service
	orders     *fakeOrderRepo
	portfolios *fakePortfolioRepo
	book       *fakeBook
	publisher  *eventMock.MockPublisher
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	db := mockPg.NewMockPostgreSQLClient(ctrl)
	db.EXPECT().Begin(gomock.Any()).Return(fakeTx{}, nil).AnyTimes()

	log := mockLogger.NewMockInterface(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()

	orders := newFakeOrderRepo()
	portfolios := newFakePortfolioRepo()
	stocks := &fakeStockRepo{stocks: map[string]*stockv1.Stock{
		"AAPL": {ID: 1, Code: "AAPL", Name: "Apple", ListedQuantity: vo.MustQuantity(1000)},
	}}
	book := &fakeBook{}
	publisher := eventMock.NewMockPublisher(ctrl)

	return &fixture{
		svc:        NewService(db, orders, portfolios, stocks, book, publisher, log),
		orders:     orders,
		portfolios: portfolios,
		book:       book,
		publisher:  publisher,
	}
}

func TestService_PlaceOrder_Buy(t *testing.T) {
	f := newFixture(t)
	f.portfolios.portfolios[1] = &portfoliov1.Portfolio{ID: 1, AvailableCash: vo.MustMoney(1000)}

	f.publisher.EXPECT().
		PublishOrderCreated(gomock.Any(), gomock.AssignableToTypeOf(&eventv1.OrderCreated{})).
		DoAndReturn(func(_ context.Context, ev *eventv1.OrderCreated) error {
			assert.Equal(t, "AAPL", ev.StockCode)
			assert.Equal(t, string(orderv1.SideBuy), ev.Side)
			assert.Equal(t, int64(100), ev.Price)
			assert.Equal(t, int64(5), ev.Quantity)
			// The event carries the ledger timestamp, not a clock read taken
			// in the usecase. The projection builds the book member from it.
			assert.Equal(t, f.orders.lineCreatedAt.UnixMilli(), ev.CreatedAt)
			return nil
		})

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		PortfolioID: 1,
		StockCode:   "AAPL",
		Side:        orderv1.SideBuy,
		Price:       100,
		Quantity:    5,
	})
	require.NoError(t, err)

	// Cash moved from available to reserved, line pending.
	p := f.portfolios.portfolios[1]
	assert.Equal(t, int64(500), p.AvailableCash.Amount())
	assert.Equal(t, int64(500), p.ReservedCash.Amount())

	line := f.orders.lines[result.OrderLineID]
	require.NotNil(t, line)
	assert.Equal(t, orderv1.LineStatusPending, line.Status)
	assert.Equal(t, int64(5), line.RemainingQuantity.Value())
}

func TestService_PlaceOrder_Sell(t *testing.T) {
	f := newFixture(t)
	f.portfolios.portfolios[2] = &portfoliov1.Portfolio{ID: 2}
	f.portfolios.holdings[9] = &portfoliov1.Holding{
		ID: 9, PortfolioID: 2, StockCode: "AAPL",
		Quantity: vo.MustQuantity(10), ReservedQuantity: vo.MustQuantity(2),
	}

	f.publisher.EXPECT().PublishOrderCreated(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		PortfolioID: 2,
		StockCode:   "AAPL",
		Side:        orderv1.SideSell,
		Price:       100,
		Quantity:    8,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), f.portfolios.holdings[9].ReservedQuantity.Value())
}

func TestService_PlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      PlaceOrderRequest
		wantCode errors.ErrorCode
	}{
		{
			name:     "zero quantity",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: 100, Quantity: 0},
			wantCode: errors.GeneralBadRequestError,
		},
		{
			name:     "negative price",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: -1, Quantity: 1},
			wantCode: errors.GeneralBadRequestError,
		},
		{
			name:     "unknown instrument",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "NOPE", Side: orderv1.SideBuy, Price: 100, Quantity: 1},
			wantCode: errors.ErrStockNotFound,
		},
		{
			name:     "quantity beyond listing",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: 100, Quantity: 1001},
			wantCode: errors.ErrQuantityExceedsListing,
		},
		{
			name:     "insufficient cash",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: 100, Quantity: 20},
			wantCode: errors.ErrInsufficientBalance,
		},
		{
			name:     "insufficient shares",
			req:      PlaceOrderRequest{PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideSell, Price: 100, Quantity: 20},
			wantCode: errors.ErrInsufficientQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.portfolios.portfolios[1] = &portfoliov1.Portfolio{ID: 1, AvailableCash: vo.MustMoney(1000)}
			f.portfolios.holdings[9] = &portfoliov1.Holding{
				ID: 9, PortfolioID: 1, StockCode: "AAPL", Quantity: vo.MustQuantity(10),
			}

			_, err := f.svc.PlaceOrder(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))

			// No partial state: nothing created, nothing reserved.
			assert.Empty(t, f.orders.lines)
			assert.True(t, f.portfolios.portfolios[1].ReservedCash.IsZero())
			assert.True(t, f.portfolios.holdings[9].ReservedQuantity.IsZero())
		})
	}
}

func TestService_CancelOrderLine(t *testing.T) {
	t.Run("buy cancel refunds the remaining reservation", func(t *testing.T) {
		f := newFixture(t)
		f.portfolios.portfolios[1] = &portfoliov1.Portfolio{ID: 1, AvailableCash: vo.MustMoney(1000)}
		f.publisher.EXPECT().PublishOrderCreated(gomock.Any(), gomock.Any()).Return(nil)

		result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: 100, Quantity: 5,
		})
		require.NoError(t, err)

		require.NoError(t, f.svc.CancelOrderLine(context.Background(), result.OrderLineID))

		p := f.portfolios.portfolios[1]
		assert.Equal(t, int64(1000), p.AvailableCash.Amount())
		assert.True(t, p.ReservedCash.IsZero())
		assert.Equal(t, orderv1.LineStatusCancelled, f.orders.lines[result.OrderLineID].Status)
		assert.Equal(t, orderv1.StatusCanceled, f.orders.orders[result.OrderID].Status)
		require.Len(t, f.book.removed, 1)
		// Remove must target the exact member the projection inserted, so the
		// rebuilt entry's timestamp has to be the ledger's created_at.
		assert.Equal(t, f.orders.lineCreatedAt.UnixMilli(), f.book.removed[0].CreatedAtMillis)
	})

	t.Run("sell cancel releases the share reservation", func(t *testing.T) {
		f := newFixture(t)
		f.portfolios.portfolios[2] = &portfoliov1.Portfolio{ID: 2}
		f.portfolios.holdings[9] = &portfoliov1.Holding{
			ID: 9, PortfolioID: 2, StockCode: "AAPL", Quantity: vo.MustQuantity(10),
		}
		f.publisher.EXPECT().PublishOrderCreated(gomock.Any(), gomock.Any()).Return(nil)

		result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			PortfolioID: 2, StockCode: "AAPL", Side: orderv1.SideSell, Price: 100, Quantity: 4,
		})
		require.NoError(t, err)
		require.Equal(t, int64(4), f.portfolios.holdings[9].ReservedQuantity.Value())

		require.NoError(t, f.svc.CancelOrderLine(context.Background(), result.OrderLineID))
		assert.True(t, f.portfolios.holdings[9].ReservedQuantity.IsZero())
	})

	t.Run("cancelling a filled line fails", func(t *testing.T) {
		f := newFixture(t)
		f.portfolios.portfolios[1] = &portfoliov1.Portfolio{ID: 1, AvailableCash: vo.MustMoney(1000)}
		f.publisher.EXPECT().PublishOrderCreated(gomock.Any(), gomock.Any()).Return(nil)

		result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			PortfolioID: 1, StockCode: "AAPL", Side: orderv1.SideBuy, Price: 100, Quantity: 5,
		})
		require.NoError(t, err)

		f.orders.lines[result.OrderLineID].Status = orderv1.LineStatusFilled

		err = f.svc.CancelOrderLine(context.Background(), result.OrderLineID)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrInvalidOrderState))
	})
}
