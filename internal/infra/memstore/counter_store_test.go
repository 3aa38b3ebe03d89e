//go:build !integration

package memstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCounterStore_WindowAndReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	s := NewCounterStore().WithClock(func() time.Time { return now })

	for i := int64(1); i <= 3; i++ {
		n, ttl, _ := s.Incr(ctx, "rl:1.2.3.4", time.Minute)
		if n != i {
			t.Fatalf("count = %d, want %d", n, i)
		}
		if ttl != time.Minute {
			t.Fatalf("ttl = %v, want 1m", ttl)
		}
	}

	now = now.Add(45 * time.Second)
	if _, ttl, _ := s.Incr(ctx, "rl:1.2.3.4", time.Minute); ttl != 15*time.Second {
		t.Fatalf("ttl = %v, want 15s", ttl)
	}

	now = now.Add(15 * time.Second)
	if n, _, _ := s.Incr(ctx, "rl:1.2.3.4", time.Minute); n != 1 {
		t.Fatalf("expected new window, count = %d", n)
	}

	_ = s.Reset(ctx, "rl:1.2.3.4")
	if n, _, _ := s.Incr(ctx, "rl:1.2.3.4", time.Minute); n != 1 {
		t.Fatalf("expected reset counter, count = %d", n)
	}
}

func TestCounterStore_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewCounterStore().WithClock(func() time.Time { return now })
	_, _, _ = s.Incr(ctx, "a", time.Second)
	_, _, _ = s.Incr(ctx, "b", time.Hour)

	now = now.Add(2 * time.Second)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("swept %d windows, want 1", n)
	}
}

func TestCounterStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Incr(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()
	if n, _, _ := s.Incr(ctx, "k", time.Minute); n != 51 {
		t.Fatalf("count = %d, want 51", n)
	}
}
