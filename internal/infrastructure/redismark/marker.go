// Package redismark tracks which order-created events have already been
// projected into the book, so redelivered events do not insert the same line
// twice.
package redismark

import (
	"context"
	"fmt"
	"time"

	"github.com/f-lab-edu/stock-simulator/pkg/redis"
)

const markTTL = 24 * time.Hour

// Marker records processed order line ids with a bounded lifetime.
type Marker struct {
	client redis.Client
}

// NewMarker creates a marker over the shared Redis.
func NewMarker(client redis.Client) *Marker {
	return &Marker{client: client}
}

// MarkProcessed records the line id, returning false when it was already
// marked by an earlier delivery.
func (m *Marker) MarkProcessed(ctx context.Context, orderLineID int64) (bool, error) {
	return m.client.SetNX(ctx, key(orderLineID), "1", markTTL)
}

// Clear drops the mark so a manual replay can reprocess the line.
func (m *Marker) Clear(ctx context.Context, orderLineID int64) error {
	_, err := m.client.Del(ctx, key(orderLineID))
	return err
}

func key(orderLineID int64) string {
	return fmt.Sprintf("orderline:processed:%d", orderLineID)
}
