package redis

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterStore)(nil)

// CounterStore keeps fixed-window counters in Redis so every gateway instance shares them.
type CounterStore struct {
	client RedisClient
	prefix string
}

func NewCounterStore(client RedisClient) *CounterStore {
	return &CounterStore{client: client, prefix: "voucher_sec:"}
}

// Incr starts the window on the first hit (INCR then EXPIRE), like a fixed-window rate limiter.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := s.prefix + key
	count, err := s.client.Incr(ctx, k)
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, window); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}
	ttl, err := s.client.TTL(ctx, k)
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// The key lost its expiry (EXPIRE failed after INCR); restart the window.
		if err := s.client.Expire(ctx, k, window); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

func (s *CounterStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key)
}
