// Package settlement applies one matched pair's economic effect to the
// ledger in a single transaction: buyer reserved cash out, seller available
// cash in, holdings moved, lines advanced, trade recorded. The trade table's
// unique pair constraint makes the whole transaction safe to retry.
package settlement

import (
	"context"
	"time"

	matchv1 "github.com/f-lab-edu/stock-simulator/internal/domain/match/v1"
	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	tradev1 "github.com/f-lab-edu/stock-simulator/internal/domain/trade/v1"
	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

// errAlreadySettled aborts the transaction when the trade insert hits the
// unique pair constraint: every mutation made in this pass is a double
// application and must be rolled back.
var errAlreadySettled = errors.NewTracer("trade already settled")

// Service settles matched pairs.
type Service struct {
	db            postgresql.PostgreSQLClient
	orderRepo     orderv1.Repository
	portfolioRepo portfoliov1.Repository
	tradeRepo     tradev1.Repository
	policy        matchv1.PricePolicy
	logger        logger.Interface
}

// NewService creates a settlement service.
func NewService(
	db postgresql.PostgreSQLClient,
	orderRepo orderv1.Repository,
	portfolioRepo portfoliov1.Repository,
	tradeRepo tradev1.Repository,
	policy matchv1.PricePolicy,
	logger logger.Interface,
) *Service {
	return &Service{
		db:            db,
		orderRepo:     orderRepo,
		portfolioRepo: portfolioRepo,
		tradeRepo:     tradeRepo,
		policy:        policy,
		logger:        logger,
	}
}

// SettlePair runs one settlement transaction for the pair. Structural
// failures mean the pair is invalid and must be dropped; transient failures
// mean the pair should be requeued and retried.
func (s *Service) SettlePair(ctx context.Context, pair *matchv1.Pair) (*matchv1.Result, error) {
	price := s.policy.ExecutionPrice(pair)

	var result *matchv1.Result
	err := postgresql.WithTx(ctx, s.db, func(txCtx context.Context) error {
		r, err := s.settle(txCtx, pair)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err == errAlreadySettled {
		s.logger.Info("pair already settled, skipping",
			logger.Field{Key: "buyOrderLineId", Value: pair.Buy.OrderLineID},
			logger.Field{Key: "sellOrderLineId", Value: pair.Sell.OrderLineID},
		)
		return &matchv1.Result{Price: price, Idempotent: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) settle(ctx context.Context, pair *matchv1.Pair) (*matchv1.Result, error) {
	exists, err := s.tradeRepo.ExistsByPair(ctx, pair.Buy.OrderLineID, pair.Sell.OrderLineID)
	if err != nil {
		return nil, matchv1.NewTransientError("idempotency lookup failed", err)
	}
	if exists {
		return nil, errAlreadySettled
	}

	mc, err := s.loadContext(ctx, pair)
	if err != nil {
		return nil, err
	}

	price := s.policy.ExecutionPrice(pair)
	quantity := mc.BuyLine.RemainingQuantity.Min(mc.SellLine.RemainingQuantity)
	if quantity.IsZero() {
		return nil, matchv1.NewStructuralError("no remaining quantity on a popped line", nil)
	}
	totalCost := price.Multiply(quantity)

	// Buyer: consume the reservation made at submission, grow the holding.
	if err := mc.BuyerPortfolio.SpendReserved(totalCost); err != nil {
		return nil, matchv1.NewStructuralError("buyer reservation does not cover cost", err)
	}
	if mc.BuyerHolding == nil {
		mc.BuyerHolding = &portfoliov1.Holding{
			PortfolioID: mc.BuyerPortfolio.ID,
			StockCode:   pair.Buy.StockCode,
		}
		if err := mc.BuyerHolding.Acquire(price, quantity); err != nil {
			return nil, matchv1.NewStructuralError("buyer holding acquisition failed", err)
		}
		if mc.BuyerHolding.ID, err = s.portfolioRepo.CreateHolding(ctx, mc.BuyerHolding); err != nil {
			return nil, matchv1.NewTransientError("buyer holding insert failed", err)
		}
	} else {
		if err := mc.BuyerHolding.Acquire(price, quantity); err != nil {
			return nil, matchv1.NewStructuralError("buyer holding acquisition failed", err)
		}
		if err := s.portfolioRepo.UpdateHolding(ctx, mc.BuyerHolding); err != nil {
			return nil, matchv1.NewTransientError("buyer holding update failed", err)
		}
	}
	if err := s.portfolioRepo.UpdatePortfolioCash(ctx, mc.BuyerPortfolio); err != nil {
		return nil, matchv1.NewTransientError("buyer portfolio update failed", err)
	}

	// Seller: cash in, shares out, row deleted when emptied.
	mc.SellerPortfolio.CreditAvailable(totalCost)
	empty, err := mc.SellerHolding.Deliver(quantity)
	if err != nil {
		return nil, matchv1.NewStructuralError("seller holding cannot deliver", err)
	}
	if empty {
		if err := s.portfolioRepo.DeleteHolding(ctx, mc.SellerHolding.ID); err != nil {
			return nil, matchv1.NewTransientError("seller holding delete failed", err)
		}
	} else {
		if err := s.portfolioRepo.UpdateHolding(ctx, mc.SellerHolding); err != nil {
			return nil, matchv1.NewTransientError("seller holding update failed", err)
		}
	}
	if err := s.portfolioRepo.UpdatePortfolioCash(ctx, mc.SellerPortfolio); err != nil {
		return nil, matchv1.NewTransientError("seller portfolio update failed", err)
	}

	// Advance both lines and re-derive the parent aggregates.
	for _, line := range []*orderv1.OrderLine{mc.BuyLine, mc.SellLine} {
		if err := line.ApplyExecution(price, quantity); err != nil {
			return nil, matchv1.NewStructuralError("line execution exceeds remainder", err)
		}
		if err := s.orderRepo.UpdateOrderLine(ctx, line); err != nil {
			return nil, matchv1.NewTransientError("order line update failed", err)
		}
		if err := s.refreshOrderStatus(ctx, line.OrderID); err != nil {
			return nil, err
		}
	}

	tradeID, err := s.tradeRepo.Create(ctx, &tradev1.Trade{
		BuyOrderLineID:  mc.BuyLine.ID,
		SellOrderLineID: mc.SellLine.ID,
		StockCode:       pair.Buy.StockCode,
		Price:           price,
		Quantity:        quantity,
		ExecutedAt:      time.Now(),
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrTradeAlreadyExists) {
			return nil, errAlreadySettled
		}
		return nil, matchv1.NewTransientError("trade insert failed", err)
	}

	result := &matchv1.Result{
		TradeID:  tradeID,
		Price:    price,
		Quantity: quantity,
	}
	if !mc.BuyLine.RemainingQuantity.IsZero() {
		result.ResidualBuy = orderbookv1.FromOrderLine(mc.BuyLine)
	}
	if !mc.SellLine.RemainingQuantity.IsZero() {
		result.ResidualSell = orderbookv1.FromOrderLine(mc.SellLine)
	}

	return result, nil
}

// loadContext hydrates the pair from the ledger. Portfolios and holdings are
// locked before order lines, portfolios in ascending id order, so concurrent
// settlements cannot deadlock on each other.
func (s *Service) loadContext(ctx context.Context, pair *matchv1.Pair) (*matchv1.Context, error) {
	buyLine, err := s.orderRepo.GetOrderLine(ctx, pair.Buy.OrderLineID)
	if err != nil {
		return nil, classifyLookup("buy order line", err)
	}
	sellLine, err := s.orderRepo.GetOrderLine(ctx, pair.Sell.OrderLineID)
	if err != nil {
		return nil, classifyLookup("sell order line", err)
	}

	if !buyLine.IsOpen() || !sellLine.IsOpen() {
		return nil, matchv1.NewStructuralError("popped line is not open", errors.NewErrorDetails(
			"order line is not open for matching",
			string(errors.ErrInvalidOrderState),
			"status",
		))
	}

	portfolios := make(map[int64]*portfoliov1.Portfolio, 2)
	ids := []int64{buyLine.PortfolioID, sellLine.PortfolioID}
	if ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	for _, id := range ids {
		if _, ok := portfolios[id]; ok {
			continue
		}
		p, err := s.portfolioRepo.GetPortfolioForUpdate(ctx, id)
		if err != nil {
			return nil, classifyLookup("portfolio", err)
		}
		portfolios[id] = p
	}

	sellerHolding, err := s.portfolioRepo.GetHoldingForUpdate(ctx, sellLine.PortfolioID, sellLine.StockCode)
	if err != nil {
		return nil, classifyLookup("seller holding", err)
	}

	var buyerHolding *portfoliov1.Holding
	if buyLine.PortfolioID == sellLine.PortfolioID {
		buyerHolding = sellerHolding
	} else {
		buyerHolding, err = s.portfolioRepo.GetHoldingForUpdate(ctx, buyLine.PortfolioID, buyLine.StockCode)
		if err != nil && !errors.HasCode(err, errors.ErrHoldingNotFound) {
			return nil, matchv1.NewTransientError("buyer holding lookup failed", err)
		}
	}

	// Re-read the lines under row locks now the portfolio locks are held.
	if buyLine, err = s.orderRepo.GetOrderLineForUpdate(ctx, buyLine.ID); err != nil {
		return nil, classifyLookup("buy order line", err)
	}
	if sellLine, err = s.orderRepo.GetOrderLineForUpdate(ctx, sellLine.ID); err != nil {
		return nil, classifyLookup("sell order line", err)
	}

	return &matchv1.Context{
		Pair:            pair,
		BuyLine:         buyLine,
		SellLine:        sellLine,
		BuyerPortfolio:  portfolios[buyLine.PortfolioID],
		SellerPortfolio: portfolios[sellLine.PortfolioID],
		SellerHolding:   sellerHolding,
		BuyerHolding:    buyerHolding,
	}, nil
}

func (s *Service) refreshOrderStatus(ctx context.Context, orderID int64) error {
	lines, err := s.orderRepo.ListOrderLines(ctx, orderID)
	if err != nil {
		return matchv1.NewTransientError("listing order lines failed", err)
	}
	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, orderv1.DeriveStatus(lines)); err != nil {
		return matchv1.NewTransientError("order status update failed", err)
	}
	return nil
}

// classifyLookup splits a ledger lookup failure into the structural bucket
// (the row is gone and the book referenced a ghost) or the transient one
// (database unreachable).
func classifyLookup(what string, err error) error {
	if errors.HasCode(err, errors.ErrOrderNotFound) ||
		errors.HasCode(err, errors.ErrHoldingNotFound) ||
		errors.HasCode(err, errors.GeneralNotFoundError) {
		return matchv1.NewStructuralError(what+" missing from ledger", err)
	}
	return matchv1.NewTransientError(what+" lookup failed", err)
}
