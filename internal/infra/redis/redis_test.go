//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCounterStore_FixedWindow(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	store := NewCounterStore(c)

	for i := int64(1); i <= 3; i++ {
		n, ttl, err := store.Incr(ctx, "rl:10.0.0.1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.True(t, ttl > 0 && ttl <= time.Minute, "ttl %v", ttl)
	}

	mr.FastForward(61 * time.Second)

	n, _, err := store.Incr(ctx, "rl:10.0.0.1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "window should restart after expiry")
}

func TestCounterStore_Reset(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	store := NewCounterStore(c)

	_, _, err := store.Incr(ctx, "fail:10.0.0.2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "fail:10.0.0.2"))

	n, _, err := store.Incr(ctx, "fail:10.0.0.2", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	l := NewLocker(c)

	token, err := l.TryLock(ctx, "lock:reconcile", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = l.TryLock(ctx, "lock:reconcile", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockNotAcquired)

	// A stale token must not release someone else's lock.
	require.NoError(t, l.Unlock(ctx, "lock:reconcile", "not-mine"))
	require.True(t, mr.Exists("lock:reconcile"))

	require.NoError(t, l.Unlock(ctx, "lock:reconcile", token))
	require.False(t, mr.Exists("lock:reconcile"))
}
