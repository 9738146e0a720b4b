package v1

import (
	"fmt"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
)

// priceWeight shifts the price far above any plausible epoch-millisecond
// timestamp so price strictly dominates and time only breaks ties. Epoch
// millis stay below 1e13 until the year 2286.
const priceWeight = 1e13

// Score computes the sorted-set score for an entry so that popping the
// minimum score always yields the best entry on either side:
//
//	BUY:  -price*W + tMillis  (higher price first, then earlier time)
//	SELL: +price*W + tMillis  (lower price first, then earlier time)
//
// price*W exceeds float64's 53-bit integer range for large prices, so the
// millisecond term can round away and nearby timestamps share one score.
// Rounding is monotone, so price ordering is never inverted; within a
// collapsed bucket the member's timestamp prefix restores the time order
// (see Entry.Marshal).
func Score(side orderv1.Side, priceAmount, createdAtMillis int64) float64 {
	price := float64(priceAmount)
	ts := float64(createdAtMillis)
	if side == orderv1.SideBuy {
		return -price*priceWeight + ts
	}
	return price*priceWeight + ts
}

// BuyKey returns the sorted-set key of the buy side for one instrument.
func BuyKey(stockCode string) string {
	return fmt.Sprintf("orderbook:%s:buy", stockCode)
}

// SellKey returns the sorted-set key of the sell side for one instrument.
func SellKey(stockCode string) string {
	return fmt.Sprintf("orderbook:%s:sell", stockCode)
}

// SideKey returns the sorted-set key for the given side.
func SideKey(stockCode string, side orderv1.Side) string {
	if side == orderv1.SideBuy {
		return BuyKey(stockCode)
	}
	return SellKey(stockCode)
}
