// Package v1 defines tradable instruments. The listed quantity only bounds
// admission of new orders; matching never consults it.
package v1

import (
	"context"
	"time"

	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// Stock is one tradable instrument.
type Stock struct {
	ID             int64
	Code           string
	Name           string
	ListedQuantity vo.Quantity
	CreatedAt      time.Time
}

// Repository looks up instruments by code.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=stock_mock
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Stock, error)
}
