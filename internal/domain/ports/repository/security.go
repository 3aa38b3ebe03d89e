package repository

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

type SecurityRepository interface {
	// FindActiveBlock returns domain.ErrNotFound when ip is not blocked at now.
	FindActiveBlock(ctx context.Context, tx Tx, ip string, now time.Time) (*model.BlockEntry, error)
	SaveBlock(ctx context.Context, tx Tx, b *model.BlockEntry) error
	SaveEvent(ctx context.Context, tx Tx, e *model.SecurityEvent) error
}

// CounterStore holds the fixed-window counters of the security gate. Implementations may be
// process-local; values are best-effort and may reset on restart.
type CounterStore interface {
	// Incr increments key, starting a new window of length window when the key is absent.
	// It returns the count within the current window and the time left in it.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Reset(ctx context.Context, key string) error
}
