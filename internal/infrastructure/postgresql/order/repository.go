// Package order persists the order aggregate.
package order

import (
	"context"

	"github.com/jackc/pgx/v5"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
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

const orderLineColumns = `id, order_id, portfolio_id, stock_code, side, requested_price, requested_quantity, executed_quantity, remaining_quantity, avg_executed_price, status, created_at, updated_at`

// CreateOrder inserts the aggregate header and returns its id.
func (r *repository) CreateOrder(ctx context.Context, o *orderv1.Order) (int64, error) {
	query := `INSERT INTO orders (portfolio_id, side, status, total_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now()) RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		o.PortfolioID,
		o.Side,
		o.Status,
		o.TotalValue.Amount(),
	).Scan(&id)
	if err != nil {
		return 0, errors.TracerFromError(err)
	}

	return id, nil
}

// CreateOrderLine inserts one line and returns its id. The line's CreatedAt
// is set to the database's timestamp: the book member is serialized from it,
// so every later projection of the same line must see the same instant.
func (r *repository) CreateOrderLine(ctx context.Context, line *orderv1.OrderLine) (int64, error) {
	query := `INSERT INTO order_lines (order_id, portfolio_id, stock_code, side, requested_price, requested_quantity, executed_quantity, remaining_quantity, avg_executed_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now()) RETURNING id, created_at`

	var id int64
	err := r.db.QueryRow(ctx, query,
		line.OrderID,
		line.PortfolioID,
		line.StockCode,
		line.Side,
		line.RequestedPrice.Amount(),
		line.RequestedQuantity.Value(),
		line.ExecutedQuantity.Value(),
		line.RemainingQuantity.Value(),
		line.AvgExecutedPrice.Amount(),
		line.Status,
	).Scan(&id, &line.CreatedAt)
	if err != nil {
		return 0, errors.TracerFromError(err)
	}
	line.ID = id

	return id, nil
}

// GetOrder gets an order header by id.
func (r *repository) GetOrder(ctx context.Context, id int64) (*orderv1.Order, error) {
	query := `SELECT id, portfolio_id, side, status, total_value, created_at, updated_at FROM orders WHERE id = $1`

	var (
		o          orderv1.Order
		totalValue int64
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.PortfolioID,
		&o.Side,
		&o.Status,
		&totalValue,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewErrorDetails("order not found", string(errors.ErrOrderNotFound), "id")
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	o.TotalValue, err = vo.NewMoney(totalValue)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	return &o, nil
}

// GetOrderLine gets a line by id without a lock.
func (r *repository) GetOrderLine(ctx context.Context, id int64) (*orderv1.OrderLine, error) {
	query := `SELECT ` + orderLineColumns + ` FROM order_lines WHERE id = $1`
	return r.scanLine(r.db.QueryRow(ctx, query, id))
}

// GetOrderLineForUpdate gets a line by id with a row lock held until the
// surrounding transaction finishes.
func (r *repository) GetOrderLineForUpdate(ctx context.Context, id int64) (*orderv1.OrderLine, error) {
	query := `SELECT ` + orderLineColumns + ` FROM order_lines WHERE id = $1 FOR UPDATE`
	return r.scanLine(r.db.QueryRow(ctx, query, id))
}

// ListOrderLines lists all lines under one order.
func (r *repository) ListOrderLines(ctx context.Context, orderID int64) ([]*orderv1.OrderLine, error) {
	query := `SELECT ` + orderLineColumns + ` FROM order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	var lines []*orderv1.OrderLine
	for rows.Next() {
		line, err := r.scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return lines, nil
}

// UpdateOrderLine writes back execution progress and status.
func (r *repository) UpdateOrderLine(ctx context.Context, line *orderv1.OrderLine) error {
	query := `UPDATE order_lines SET executed_quantity = $1, remaining_quantity = $2, avg_executed_price = $3, status = $4, updated_at = now() WHERE id = $5`

	_, err := r.db.Exec(ctx, query,
		line.ExecutedQuantity.Value(),
		line.RemainingQuantity.Value(),
		line.AvgExecutedPrice.Amount(),
		line.Status,
		line.ID,
	)
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// UpdateOrderStatus writes the derived aggregate status.
func (r *repository) UpdateOrderStatus(ctx context.Context, id int64, status orderv1.Status) error {
	query := `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`

	_, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *repository) scanLine(row rowScanner) (*orderv1.OrderLine, error) {
	var (
		line              orderv1.OrderLine
		requestedPrice    int64
		requestedQuantity int64
		executedQuantity  int64
		remainingQuantity int64
		avgExecutedPrice  int64
	)

	err := row.Scan(
		&line.ID,
		&line.OrderID,
		&line.PortfolioID,
		&line.StockCode,
		&line.Side,
		&requestedPrice,
		&requestedQuantity,
		&executedQuantity,
		&remainingQuantity,
		&avgExecutedPrice,
		&line.Status,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewErrorDetails("order line not found", string(errors.ErrOrderNotFound), "id")
	}
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	if line.RequestedPrice, err = vo.NewMoney(requestedPrice); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if line.RequestedQuantity, err = vo.NewQuantity(requestedQuantity); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if line.ExecutedQuantity, err = vo.NewQuantity(executedQuantity); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if line.RemainingQuantity, err = vo.NewQuantity(remainingQuantity); err != nil {
		return nil, errors.TracerFromError(err)
	}
	if line.AvgExecutedPrice, err = vo.NewMoney(avgExecutedPrice); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return &line, nil
}
