// Package v1 defines the transient structures a matching cycle hands to
// settlement, the execution-price policy, and the structural/transient error
// split the cycle keys its retry decision on.
package v1

import (
	orderbookv1 "github.com/f-lab-edu/stock-simulator/internal/domain/orderbook/v1"
	ordersv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	portfoliov1 "github.com/f-lab-edu/stock-simulator/internal/domain/portfolio/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// Pair is a candidate match proposed by the book. Never persisted.
type Pair struct {
	Buy  *orderbookv1.Entry
	Sell *orderbookv1.Entry
}

// Crossable reports whether the buy price meets or exceeds the sell price.
func (p *Pair) Crossable() bool {
	return p.Buy.RequestedPrice >= p.Sell.RequestedPrice
}

// ExecutableQuantity is the smaller of the two remainders.
func (p *Pair) ExecutableQuantity() vo.Quantity {
	return p.Buy.Remaining().Min(p.Sell.Remaining())
}

// Context is the pair fully hydrated from the ledger inside the settlement
// transaction. All rows are loaded with row locks.
type Context struct {
	Pair *Pair

	BuyLine  *ordersv1.OrderLine
	SellLine *ordersv1.OrderLine

	BuyerPortfolio  *portfoliov1.Portfolio
	SellerPortfolio *portfoliov1.Portfolio
	SellerHolding   *portfoliov1.Holding

	// BuyerHolding is nil until the buyer's first acquisition of the stock.
	BuyerHolding *portfoliov1.Holding
}

// Result reports what one settlement applied.
type Result struct {
	TradeID    int64
	Price      vo.Money
	Quantity   vo.Quantity
	Idempotent bool

	// Residual entries with remaining quantity, for re-projection into the
	// book after commit. Nil when the line filled completely.
	ResidualBuy  *orderbookv1.Entry
	ResidualSell *orderbookv1.Entry
}
