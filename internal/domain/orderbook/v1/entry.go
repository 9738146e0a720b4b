// Package v1 defines the cache-resident order book projection: entries, side
// keys, and the composite price-time score. Entries are never authoritative;
// settlement re-validates everything against the ledger.
package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

// Entry is one resting order line as the book sees it. RemainingQuantity is
// what the line had when projected; it may be stale by the time it pops.
type Entry struct {
	OrderLineID       int64  `json:"orderLineId"`
	StockCode         string `json:"stockCode"`
	Side              string `json:"side"`
	RequestedPrice    int64  `json:"requestedPrice"`
	RemainingQuantity int64  `json:"remainingQuantity"`
	CreatedAtMillis   int64  `json:"createdAtMillis"`
}

// FromOrderLine projects a line into a book entry, carrying the remaining
// quantity so a partially filled line re-enters with only its remainder.
func FromOrderLine(line *orderv1.OrderLine) *Entry {
	return &Entry{
		OrderLineID:       line.ID,
		StockCode:         line.StockCode,
		Side:              string(line.Side),
		RequestedPrice:    line.RequestedPrice.Amount(),
		RemainingQuantity: line.RemainingQuantity.Value(),
		CreatedAtMillis:   line.CreatedAt.UnixMilli(),
	}
}

// Price returns the requested price as a Money.
func (e *Entry) Price() vo.Money {
	return vo.MustMoney(e.RequestedPrice)
}

// Remaining returns the remaining quantity as a Quantity.
func (e *Entry) Remaining() vo.Quantity {
	return vo.MustQuantity(e.RemainingQuantity)
}

// CreatedAt returns the original submission time.
func (e *Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.CreatedAtMillis)
}

// Marshal serializes the entry as the sorted-set member payload. The member
// is prefixed with the zero-padded creation millis: Redis orders equal-score
// members lexicographically, so when float64 rounding collapses nearby
// scores into one bucket the prefix still pops the earlier entry first.
func (e *Entry) Marshal() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016d|%s", e.CreatedAtMillis, raw), nil
}

// UnmarshalEntry parses a sorted-set member payload back into an entry,
// stripping the timestamp prefix.
func UnmarshalEntry(raw string) (*Entry, error) {
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		raw = raw[i+1:]
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
