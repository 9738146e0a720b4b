// Package stock looks up tradable instruments.
package stock

import (
	"context"

	"github.com/jackc/pgx/v5"

	stockv1 "github.com/f-lab-edu/stock-simulator/internal/domain/stock/v1"
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

// GetByCode gets one instrument by symbol.
func (r *repository) GetByCode(ctx context.Context, code string) (*stockv1.Stock, error) {
	query := `SELECT id, code, name, listed_quantity, created_at FROM stocks WHERE code = $1`

	var (
		s      stockv1.Stock
		listed int64
	)
	err := r.db.QueryRow(ctx, query, code).Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&listed,
		&s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewErrorDetails("stock not found", string(errors.ErrStockNotFound), "code")
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if s.ListedQuantity, err = vo.NewQuantity(listed); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return &s, nil
}
