// Package trade persists execution records. The unique index on the buy/sell
// line pair is the storage-enforced idempotency boundary; a 23505 on insert
// is reported as a duplicate, not a failure.
package trade

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"

	tradev1 "github.com/f-lab-edu/stock-simulator/internal/domain/trade/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

const uniqueViolationCode = "23505"

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

// Create inserts the trade and returns its id. A duplicate pair surfaces as
// ErrTradeAlreadyExists.
func (r *repository) Create(ctx context.Context, t *tradev1.Trade) (int64, error) {
	query := `INSERT INTO trades (buy_order_line_id, sell_order_line_id, stock_code, price, quantity, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		t.BuyOrderLineID,
		t.SellOrderLineID,
		t.StockCode,
		t.Price.Amount(),
		t.Quantity.Value(),
		t.ExecutedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if pkgerrors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, errors.NewErrorDetails("trade already recorded for pair", string(errors.ErrTradeAlreadyExists), "pair")
		}
		return 0, errors.TracerFromError(err)
	}

	return id, nil
}

// ExistsByPair reports whether a trade already exists for the pair.
func (r *repository) ExistsByPair(ctx context.Context, buyLineID, sellLineID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM trades WHERE buy_order_line_id = $1 AND sell_order_line_id = $2)`

	var exists bool
	err := r.db.QueryRow(ctx, query, buyLineID, sellLineID).Scan(&exists)
	if err != nil {
		return false, errors.TracerFromError(err)
	}

	return exists, nil
}
