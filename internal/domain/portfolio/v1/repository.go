package v1

import "context"

// Repository persists portfolios and holdings. ForUpdate variants take row
// locks; submission and settlement always lock Portfolio and Holding rows
// before OrderLine rows so buyer and seller transactions cannot deadlock.
//
//go:generate mockgen -source repository.go -destination=mock/repository_mock.go -package=portfolio_mock
type Repository interface {
	GetPortfolio(ctx context.Context, id int64) (*Portfolio, error)
	GetPortfolioForUpdate(ctx context.Context, id int64) (*Portfolio, error)
	UpdatePortfolioCash(ctx context.Context, p *Portfolio) error

	GetHolding(ctx context.Context, portfolioID int64, stockCode string) (*Holding, error)
	GetHoldingForUpdate(ctx context.Context, portfolioID int64, stockCode string) (*Holding, error)
	CreateHolding(ctx context.Context, h *Holding) (int64, error)
	UpdateHolding(ctx context.Context, h *Holding) error
	DeleteHolding(ctx context.Context, id int64) error
}
