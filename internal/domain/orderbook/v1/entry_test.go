package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/f-lab-edu/stock-simulator/internal/domain/order/v1"
	vo "github.com/f-lab-edu/stock-simulator/internal/domain/vo/v1"
)

func TestEntry_MarshalRoundTrip(t *testing.T) {
	entry := &Entry{
		OrderLineID:       42,
		StockCode:         "AAPL",
		Side:              string(orderv1.SideBuy),
		RequestedPrice:    1_000_000,
		RemainingQuantity: 5,
		CreatedAtMillis:   1_700_000_000_123,
	}

	member, err := entry.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEntry(member)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestEntry_MemberPrefixBreaksCollapsedScoreTies(t *testing.T) {
	// At a price this large the millisecond term rounds away: adjacent
	// submissions land on the same float64 score. Redis then orders the
	// members lexicographically, so the earlier entry's member must sort
	// first on both sides.
	const price = 1_000_000
	t1 := int64(1_700_000_000_001)
	t2 := t1 + 1

	for _, side := range []orderv1.Side{orderv1.SideBuy, orderv1.SideSell} {
		require.Equal(t,
			Score(side, price, t1),
			Score(side, price, t2),
			"expected the timestamps to collapse into one score bucket",
		)
	}

	early := &Entry{OrderLineID: 1, StockCode: "AAPL", Side: string(orderv1.SideSell), RequestedPrice: price, RemainingQuantity: 1, CreatedAtMillis: t1}
	late := &Entry{OrderLineID: 2, StockCode: "AAPL", Side: string(orderv1.SideSell), RequestedPrice: price, RemainingQuantity: 1, CreatedAtMillis: t2}

	earlyMember, err := early.Marshal()
	require.NoError(t, err)
	lateMember, err := late.Marshal()
	require.NoError(t, err)

	assert.Less(t, earlyMember, lateMember)
}

func TestFromOrderLine_CarriesLedgerTimestamp(t *testing.T) {
	createdAt := time.Date(2026, 3, 2, 9, 30, 0, 123e6, time.UTC)
	line := &orderv1.OrderLine{
		ID:                7,
		StockCode:         "AAPL",
		Side:              orderv1.SideBuy,
		RequestedPrice:    vo.MustMoney(100),
		RequestedQuantity: vo.MustQuantity(5),
		RemainingQuantity: vo.MustQuantity(3),
		CreatedAt:         createdAt,
	}

	entry := FromOrderLine(line)
	assert.Equal(t, createdAt.UnixMilli(), entry.CreatedAtMillis)
	assert.Equal(t, int64(3), entry.RemainingQuantity)
	assert.True(t, entry.CreatedAt().Equal(createdAt))
}
