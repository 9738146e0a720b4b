package v1

import "context"

// Repository persists orders and their lines.
//
//go:generate mockgen -source repository.go -destination=mock/repository_mock.go -package=order_mock
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (int64, error)
	CreateOrderLine(ctx context.Context, line *OrderLine) (int64, error)

	GetOrder(ctx context.Context, id int64) (*Order, error)
	GetOrderLine(ctx context.Context, id int64) (*OrderLine, error)
	// GetOrderLineForUpdate loads a line with a row lock so the settlement
	// transaction mutates it exclusively.
	GetOrderLineForUpdate(ctx context.Context, id int64) (*OrderLine, error)
	ListOrderLines(ctx context.Context, orderID int64) ([]*OrderLine, error)

	UpdateOrderLine(ctx context.Context, line *OrderLine) error
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
}
