// Package portfolio persists portfolios and holdings.
package portfolio

import (
	"context"

	"github.com/jackc/pgx/v5"

	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a new repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

const portfolioColumns = `id, user_id, available_cash, reserved_cash, created_at, updated_at`
const holdingColumns = `id, portfolio_id, stock_code, quantity, reserved_quantity, avg_price, created_at, updated_at`

// GetPortfolio gets a portfolio by id without a lock.
func (r *repository) GetPortfolio(ctx context.Context, id int64) (*portfoliov1.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`
	return r.scanPortfolio(r.db.QueryRow(ctx, query, id))
}

// GetPortfolioForUpdate gets a portfolio by id with a row lock. Submission
// and settlement lock portfolios before order lines to keep a stable lock
// order across buyer and seller.
func (r *repository) GetPortfolioForUpdate(ctx context.Context, id int64) (*portfoliov1.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1 FOR UPDATE`
	return r.scanPortfolio(r.db.QueryRow(ctx, query, id))
}

// UpdatePortfolioCash writes back both cash buckets.
func (r *repository) UpdatePortfolioCash(ctx context.Context, p *portfoliov1.Portfolio) error {
	query := `UPDATE portfolios SET available_cash = $1, reserved_cash = $2, updated_at = now() WHERE id = $3`

	_, err := r.db.Exec(ctx, query,
		p.AvailableCash.Amount(),
		p.ReservedCash.Amount(),
		p.ID,
	)
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// GetHolding gets one holding without a lock.
func (r *repository) GetHolding(ctx context.Context, portfolioID int64, stockCode string) (*portfoliov1.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE portfolio_id = $1 AND stock_code = $2`
	return r.scanHolding(r.db.QueryRow(ctx, query, portfolioID, stockCode))
}

// GetHoldingForUpdate gets one holding with a row lock.
func (r *repository) GetHoldingForUpdate(ctx context.Context, portfolioID int64, stockCode string) (*portfoliov1.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE portfolio_id = $1 AND stock_code = $2 FOR UPDATE`
	return r.scanHolding(r.db.QueryRow(ctx, query, portfolioID, stockCode))
}

// CreateHolding inserts a holding on first acquisition and returns its id.
func (r *repository) CreateHolding(ctx context.Context, h *portfoliov1.Holding) (int64, error) {
	query := `INSERT INTO holdings (portfolio_id, stock_code, quantity, reserved_quantity, avg_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now()) RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		h.PortfolioID,
		h.StockCode,
		h.Quantity.Value(),
		h.ReservedQuantity.Value(),
		h.AvgPrice.Amount(),
	).Scan(&id)
	if err != nil {
		return 0, errors.TracerFromError(err)
	}

	return id, nil
}

// UpdateHolding writes back quantity, reservation, and cost basis.
func (r *repository) UpdateHolding(ctx context.Context, h *portfoliov1.Holding) error {
	query := `UPDATE holdings SET quantity = $1, reserved_quantity = $2, avg_price = $3, updated_at = now() WHERE id = $4`

	_, err := r.db.Exec(ctx, query,
		h.Quantity.Value(),
		h.ReservedQuantity.Value(),
		h.AvgPrice.Amount(),
		h.ID,
	)
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// DeleteHolding removes an emptied holding.
func (r *repository) DeleteHolding(ctx context.Context, id int64) error {
	query := `DELETE FROM holdings WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repository) scanPortfolio(row rowScanner) (*portfoliov1.Portfolio, error) {
	var (
		p         portfoliov1.Portfolio
		available int64
		reserved  int64
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&available,
		&reserved,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewErrorDetails("portfolio not found", string(errors.GeneralNotFoundError), "id")
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if p.AvailableCash, err = vo.NewMoney(available); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if p.ReservedCash, err = vo.NewMoney(reserved); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return &p, nil
}

func (r *repository) scanHolding(row rowScanner) (*portfoliov1.Holding, error) {
	var (
		h        portfoliov1.Holding
		quantity int64
		reserved int64
		avgPrice int64
	)

	err := row.Scan(
		&h.ID,
		&h.PortfolioID,
		&h.StockCode,
		&quantity,
		&reserved,
		&avgPrice,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewErrorDetails("holding not found", string(errors.ErrHoldingNotFound), "portfolioId")
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if h.Quantity, err = vo.NewQuantity(quantity); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if h.ReservedQuantity, err = vo.NewQuantity(reserved); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if h.AvgPrice, err = vo.NewMoney(avgPrice); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return &h, nil
}
