package v1

import (
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// PricePolicy decides the execution price for a crossable pair. The rule is
// a provisional business decision, so it is injected configuration rather
// than hard-coded.
type PricePolicy interface {
	ExecutionPrice(pair *Pair) vo.Money
}

// SellPricePolicy prints at the sell order's requested price: the standing
// ask sets the price when both sides are eligible.
type SellPricePolicy struct{}

func (SellPricePolicy) ExecutionPrice(pair *Pair) vo.Money {
	return pair.Sell.Price()
}

// EarlierPricePolicy prints at the earlier-submitted side's requested price
// regardless of direction.
type EarlierPricePolicy struct{}

func (EarlierPricePolicy) ExecutionPrice(pair *Pair) vo.Money {
	if pair.Buy.CreatedAtMillis <= pair.Sell.CreatedAtMillis {
		return pair.Buy.Price()
	}
	return pair.Sell.Price()
}

// PolicyFromName maps a configuration value to a policy, defaulting to the
// sell-price rule.
func PolicyFromName(name string) PricePolicy {
	if name == "earlier" {
		return EarlierPricePolicy{}
	}
	return SellPricePolicy{}
}
