// Package submission admits new orders into the system. Reservation and row
// creation happen in one transaction, so the book can never hold interest
// the owner cannot fund or deliver. The order-created event goes out only
// after the commit.
package submission

import (
	"context"
	"time"

	eventv1 "github.com/f-lab-edu/stock-simulator/internal/domain/event/v1"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	stockv1 "github.com/f-lab-edu/stock-simulator/internal/domain/stock/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

// PlaceOrderRequest is one limit order to admit.
type PlaceOrderRequest struct {
	PortfolioID int64
	StockCode   string
	Side        orderv1.Side
	Price       int64
	Quantity    int64
}

// PlaceOrderResult reports the created rows.
type PlaceOrderResult struct {
	OrderID     int64
	OrderLineID int64
}

// Service admits and cancels orders.
type Service struct {
	db            postgresql.PostgreSQLClient
	orderRepo     orderv1.Repository
	portfolioRepo portfoliov1.Repository
	stockRepo     stockv1.Repository
	book          orderbookv1.Book
	publisher     eventv1.Publisher
	logger        logger.Interface
}

// NewService creates a submission service.
func NewService(
	db postgresql.PostgreSQLClient,
	orderRepo orderv1.Repository,
	portfolioRepo portfoliov1.Repository,
	stockRepo stockv1.Repository,
	book orderbookv1.Book,
	publisher eventv1.Publisher,
	logger logger.Interface,
) *Service {
	return &Service{
		db:            db,
		orderRepo:     orderRepo,
		portfolioRepo: portfolioRepo,
		stockRepo:     stockRepo,
		book:          book,
		publisher:     publisher,
		logger:        logger,
	}
}

// PlaceOrder validates the request, reserves the funding resource, and
// creates the ledger rows in one transaction. Rejections fail synchronously
// with a specific reason and leave no partial state.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	price, quantity, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	processor, err := processorFor(req.Side)
	if err != nil {
		return nil, err
	}

	var result PlaceOrderResult
	var createdAt time.Time
	err = postgresql.WithTx(ctx, s.db, func(txCtx context.Context) error {
		portfolio, err := s.portfolioRepo.GetPortfolioForUpdate(txCtx, req.PortfolioID)
		if err != nil {
			return err
		}

		if err := processor.reserve(txCtx, s, portfolio, req.StockCode, price, quantity); err != nil {
			return err
		}

		orderID, err := s.orderRepo.CreateOrder(txCtx, &orderv1.Order{
			PortfolioID: req.PortfolioID,
			Side:        req.Side,
			Status:      orderv1.StatusCreated,
			TotalValue:  price.Multiply(quantity),
		})
		if err != nil {
			return err
		}

		line := &orderv1.OrderLine{
			OrderID:           orderID,
			PortfolioID:       req.PortfolioID,
			StockCode:         req.StockCode,
			Side:              req.Side,
			RequestedPrice:    price,
			RequestedQuantity: quantity,
			ExecutedQuantity:  vo.ZeroQuantity,
			RemainingQuantity: quantity,
			Status:            orderv1.LineStatusPending,
		}
		lineID, err := s.orderRepo.CreateOrderLine(txCtx, line)
		if err != nil {
			return err
		}

		result = PlaceOrderResult{OrderID: orderID, OrderLineID: lineID}
		// The event carries the ledger's creation timestamp. The book member
		// is serialized from it, so cancellation can rebuild the exact member
		// the projection inserted.
		createdAt = line.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := &eventv1.OrderCreated{
		OrderID:     result.OrderID,
		OrderLineID: result.OrderLineID,
		PortfolioID: req.PortfolioID,
		StockCode:   req.StockCode,
		Side:        string(req.Side),
		Price:       price.Amount(),
		Quantity:    quantity.Value(),
		CreatedAt:   createdAt.UnixMilli(),
	}
	if err := s.publisher.PublishOrderCreated(ctx, ev); err != nil {
		// The rows are committed; the projection consumer will not hear about
		// this line until a replay. Surface it loudly but do not fail the
		// submission.
		s.logger.Error(err, logger.Field{Key: "orderLineId", Value: result.OrderLineID})
	}

	return &result, nil
}

// CancelOrderLine cancels an open line, releasing whatever reservation its
// remainder still holds, and best-effort removes it from the book.
func (s *Service) CancelOrderLine(ctx context.Context, orderLineID int64) error {
	var cancelled *orderv1.OrderLine
	err := postgresql.WithTx(ctx, s.db, func(txCtx context.Context) error {
		peek, err := s.orderRepo.GetOrderLine(txCtx, orderLineID)
		if err != nil {
			return err
		}

		// Portfolio row first, line row second: same lock order as settlement.
		portfolio, err := s.portfolioRepo.GetPortfolioForUpdate(txCtx, peek.PortfolioID)
		if err != nil {
			return err
		}
		line, err := s.orderRepo.GetOrderLineForUpdate(txCtx, orderLineID)
		if err != nil {
			return err
		}
		if !line.IsOpen() {
			return errors.NewErrorDetails(
				"order line is not open",
				string(errors.ErrInvalidOrderState),
				"status",
			)
		}

		switch line.Side {
		case orderv1.SideBuy:
			refund := line.RequestedPrice.Multiply(line.RemainingQuantity)
			if err := portfolio.ReleaseReserved(refund); err != nil {
				return err
			}
			if err := s.portfolioRepo.UpdatePortfolioCash(txCtx, portfolio); err != nil {
				return err
			}
		case orderv1.SideSell:
			holding, err := s.portfolioRepo.GetHoldingForUpdate(txCtx, line.PortfolioID, line.StockCode)
			if err != nil {
				return err
			}
			if err := holding.ReleaseReserved(line.RemainingQuantity); err != nil {
				return err
			}
			if err := s.portfolioRepo.UpdateHolding(txCtx, holding); err != nil {
				return err
			}
		}

		line.Status = orderv1.LineStatusCancelled
		if err := s.orderRepo.UpdateOrderLine(txCtx, line); err != nil {
			return err
		}

		lines, err := s.orderRepo.ListOrderLines(txCtx, line.OrderID)
		if err != nil {
			return err
		}
		if err := s.orderRepo.UpdateOrderStatus(txCtx, line.OrderID, orderv1.DeriveStatus(lines)); err != nil {
			return err
		}

		cancelled = line
		return nil
	})
	if err != nil {
		return err
	}

	// The book entry may already be gone or carry a different remainder; a
	// missed removal is fine, settlement drops cancelled lines structurally.
	if _, err := s.book.Remove(ctx, orderbookv1.FromOrderLine(cancelled)); err != nil {
		s.logger.Warn("could not remove cancelled line from book",
			logger.Field{Key: "orderLineId", Value: orderLineID},
		)
	}

	return nil
}

func (s *Service) validate(ctx context.Context, req PlaceOrderRequest) (vo.Money, vo.Quantity, error) {
	if req.Price <= 0 {
		return vo.Money{}, vo.Quantity{}, errors.NewErrorDetails(
			"price must be positive",
			string(errors.GeneralBadRequestError),
			"price",
		)
	}
	if req.Quantity <= 0 {
		return vo.Money{}, vo.Quantity{}, errors.NewErrorDetails(
			"quantity must be positive",
			string(errors.GeneralBadRequestError),
			"quantity",
		)
	}

	price, err := vo.NewMoney(req.Price)
	if err != nil {
		return vo.Money{}, vo.Quantity{}, err
	}
	quantity, err := vo.NewQuantity(req.Quantity)
	if err != nil {
		return vo.Money{}, vo.Quantity{}, err
	}

	stock, err := s.stockRepo.GetByCode(ctx, req.StockCode)
	if err != nil {
		return vo.Money{}, vo.Quantity{}, err
	}
	if stock.ListedQuantity.LessThan(quantity) {
		return vo.Money{}, vo.Quantity{}, errors.NewErrorDetails(
			"requested quantity exceeds the listed quantity",
			string(errors.ErrQuantityExceedsListing),
			"quantity",
		)
	}

	return price, quantity, nil
}

// processor is the side-specific half of the reservation protocol.
type processor interface {
	reserve(ctx context.Context, s *Service, portfolio *portfoliov1.Portfolio, stockCode string, price vo.Money, quantity vo.Quantity) error
}

type buyProcessor struct{}

// reserve earmarks cash for the full limit cost.
func (buyProcessor) reserve(ctx context.Context, s *Service, portfolio *portfoliov1.Portfolio, stockCode string, price vo.Money, quantity vo.Quantity) error {
	if err := portfolio.ReserveCash(price.Multiply(quantity)); err != nil {
		return err
	}
	return s.portfolioRepo.UpdatePortfolioCash(ctx, portfolio)
}

type sellProcessor struct{}

// reserve earmarks shares against the unreserved holding balance.
func (sellProcessor) reserve(ctx context.Context, s *Service, portfolio *portfoliov1.Portfolio, stockCode string, price vo.Money, quantity vo.Quantity) error {
	holding, err := s.portfolioRepo.GetHoldingForUpdate(ctx, portfolio.ID, stockCode)
	if err != nil {
		return err
	}
	if err := holding.Reserve(quantity); err != nil {
		return err
	}
	return s.portfolioRepo.UpdateHolding(ctx, holding)
}

func processorFor(side orderv1.Side) (processor, error) {
	switch side {
	case orderv1.SideBuy:
		return buyProcessor{}, nil
	case orderv1.SideSell:
		return sellProcessor{}, nil
	default:
		return nil, errors.NewErrorDetails(
			"unknown order side",
			string(errors.GeneralBadRequestError),
			"side",
		)
	}
}
