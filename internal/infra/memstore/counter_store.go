// Package memstore holds process-local implementations of storage ports.
package memstore

import (
	"context"
	"sync"
	"time"

	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterStore)(nil)

type window struct {
	count   int64
	resetAt time.Time
}

// CounterStore is an in-process fixed-window counter map. Counters reset on restart.
type CounterStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewCounterStore() *CounterStore {
	return &CounterStore{windows: make(map[string]*window), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *CounterStore) WithClock(now func() time.Time) *CounterStore {
	s.now = now
	return s
}

func (s *CounterStore) Incr(_ context.Context, key string, win time.Duration) (int64, time.Duration, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

func (s *CounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops windows that have already closed.
func (s *CounterStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *CounterStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
