package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	tradev1 "github.com/f-lab-edu/stock-simulator/internal/domain/trade/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/order"
	"github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/portfolio"
	"github.com/f-lab-edu/stock-simulator/internal/infrastructure/postgresql/trade"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

// One container per test function: the suites touch overlapping rows, so each
// one migrates a fresh schema and seeds exactly what it reads back.
func setupRepositories(t *testing.T) (*postgresql.TestHelper, logger.Interface) {
	t.Helper()
	helper := postgresql.NewTestHelperWithMigrations(t, "../../../../migrations")

	log, err := logger.NewLogger()
	require.NoError(t, err)

	return helper, log
}

func seedPortfolio(helper *postgresql.TestHelper, userID, cash int64) {
	helper.ExecuteSQL(
		`INSERT INTO portfolios (user_id, available_cash) VALUES ($1, $2)`,
		userID, cash,
	)
}

func TestPortfolioRepository_Integration(t *testing.T) {
	helper, log := setupRepositories(t)
	repo := portfolio.NewRepository(helper.GetClient(), log)
	ctx := context.Background()

	seedPortfolio(helper, 42, 100_000)

	t.Run("reads every selected column back", func(t *testing.T) {
		p, err := repo.GetPortfolio(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, int64(42), p.UserID)
		assert.Equal(t, int64(100_000), p.AvailableCash.Amount())
		assert.True(t, p.ReservedCash.IsZero())
		assert.False(t, p.CreatedAt.IsZero())

		locked, err := repo.GetPortfolioForUpdate(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, p.UserID, locked.UserID)
	})

	t.Run("cash update round-trips", func(t *testing.T) {
		p, err := repo.GetPortfolio(ctx, 1)
		require.NoError(t, err)

		p.AvailableCash = vo.MustMoney(60_000)
		p.ReservedCash = vo.MustMoney(40_000)
		require.NoError(t, repo.UpdatePortfolioCash(ctx, p))

		reread, err := repo.GetPortfolio(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(60_000), reread.AvailableCash.Amount())
		assert.Equal(t, int64(40_000), reread.ReservedCash.Amount())
	})

	t.Run("holding lifecycle", func(t *testing.T) {
		id, err := repo.CreateHolding(ctx, &portfoliov1.Holding{
			PortfolioID: 1,
			StockCode:   "AAPL",
			Quantity:    vo.MustQuantity(10),
			AvgPrice:    vo.MustMoney(100),
		})
		require.NoError(t, err)

		h, err := repo.GetHolding(ctx, 1, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, id, h.ID)
		assert.Equal(t, int64(10), h.Quantity.Value())

		require.NoError(t, repo.DeleteHolding(ctx, id))
		_, err = repo.GetHolding(ctx, 1, "AAPL")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrHoldingNotFound))
	})
}

func TestOrderRepository_Integration(t *testing.T) {
	helper, log := setupRepositories(t)
	repo := order.NewRepository(helper.GetClient(), log)
	ctx := context.Background()

	seedPortfolio(helper, 7, 50_000)

	orderID, err := repo.CreateOrder(ctx, &orderv1.Order{
		PortfolioID: 1,
		Side:        orderv1.SideBuy,
		Status:      orderv1.StatusCreated,
		TotalValue:  vo.MustMoney(500),
	})
	require.NoError(t, err)

	line := &orderv1.OrderLine{
		OrderID:           orderID,
		PortfolioID:       1,
		StockCode:         "AAPL",
		Side:              orderv1.SideBuy,
		RequestedPrice:    vo.MustMoney(100),
		RequestedQuantity: vo.MustQuantity(5),
		ExecutedQuantity:  vo.ZeroQuantity,
		RemainingQuantity: vo.MustQuantity(5),
		Status:            orderv1.LineStatusPending,
	}
	lineID, err := repo.CreateOrderLine(ctx, line)
	require.NoError(t, err)

	// The insert hands back the database's created_at; the caller serializes
	// book members from it, so it must match the stored row exactly.
	require.False(t, line.CreatedAt.IsZero())
	assert.Equal(t, lineID, line.ID)

	stored, err := repo.GetOrderLine(ctx, lineID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(line.CreatedAt))
	assert.Equal(t, "AAPL", stored.StockCode)
	assert.Equal(t, int64(5), stored.RemainingQuantity.Value())

	t.Run("execution update round-trips", func(t *testing.T) {
		require.NoError(t, stored.ApplyExecution(vo.MustMoney(100), vo.MustQuantity(2)))
		require.NoError(t, repo.UpdateOrderLine(ctx, stored))

		reread, err := repo.GetOrderLineForUpdate(ctx, lineID)
		require.NoError(t, err)
		assert.Equal(t, orderv1.LineStatusPartiallyFilled, reread.Status)
		assert.Equal(t, int64(3), reread.RemainingQuantity.Value())
	})

	t.Run("status update sticks", func(t *testing.T) {
		require.NoError(t, repo.UpdateOrderStatus(ctx, orderID, orderv1.StatusCompleted))

		o, err := repo.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, orderv1.StatusCompleted, o.Status)
	})
}

func TestTradeRepository_Integration(t *testing.T) {
	helper, log := setupRepositories(t)
	repo := trade.NewRepository(helper.GetClient(), log)
	orders := order.NewRepository(helper.GetClient(), log)
	ctx := context.Background()

	seedPortfolio(helper, 8, 50_000)
	seedPortfolio(helper, 9, 0)

	buyLine, sellLine := seedMatchedLines(t, ctx, orders)

	record := &tradev1.Trade{
		BuyOrderLineID:  buyLine,
		SellOrderLineID: sellLine,
		StockCode:       "AAPL",
		Price:           vo.MustMoney(100),
		Quantity:        vo.MustQuantity(5),
		ExecutedAt:      time.Now(),
	}
	id, err := repo.Create(ctx, record)
	require.NoError(t, err)
	assert.Positive(t, id)

	exists, err := repo.ExistsByPair(ctx, buyLine, sellLine)
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("duplicate pair maps the unique violation", func(t *testing.T) {
		_, err := repo.Create(ctx, record)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrTradeAlreadyExists))
	})

	t.Run("unknown pair does not exist", func(t *testing.T) {
		exists, err := repo.ExistsByPair(ctx, sellLine, buyLine)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func seedMatchedLines(t *testing.T, ctx context.Context, orders orderv1.Repository) (buyLine, sellLine int64) {
	t.Helper()

	for i, side := range []orderv1.Side{orderv1.SideBuy, orderv1.SideSell} {
		orderID, err := orders.CreateOrder(ctx, &orderv1.Order{
			PortfolioID: int64(i + 1),
			Side:        side,
			Status:      orderv1.StatusCreated,
			TotalValue:  vo.MustMoney(500),
		})
		require.NoError(t, err)

		lineID, err := orders.CreateOrderLine(ctx, &orderv1.OrderLine{
			OrderID:           orderID,
			PortfolioID:       int64(i + 1),
			StockCode:         "AAPL",
			Side:              side,
			RequestedPrice:    vo.MustMoney(100),
			RequestedQuantity: vo.MustQuantity(5),
			ExecutedQuantity:  vo.ZeroQuantity,
			RemainingQuantity: vo.MustQuantity(5),
			Status:            orderv1.LineStatusPending,
		})
		require.NoError(t, err)

		if side == orderv1.SideBuy {
			buyLine = lineID
		} else {
			sellLine = lineID
		}
	}
	return buyLine, sellLine
}
