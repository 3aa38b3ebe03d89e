package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
)

// Locker guards a tick across instances. The redis locker and redis.NoopLocker satisfy it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// runLocked runs fn only when this instance wins key for ttl.
func runLocked(ctx context.Context, l Locker, key string, ttl time.Duration, log *zerolog.Logger, fn func(ctx context.Context)) {
	if l == nil {
		fn(ctx)
		return
	}
	token, err := l.TryLock(ctx, key, ttl)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		log.Debug().Str("lock", key).Msg("tick owned by another instance")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("lock", key).Msg("lock unavailable; skipping tick")
		return
	}
	defer func() {
		if err := l.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn().Err(err).Str("lock", key).Msg("unlock failed")
		}
	}()
	fn(ctx)
}
