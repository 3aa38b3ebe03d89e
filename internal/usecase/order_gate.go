package usecase

import (
	"context"
	"sync"
)

// orderGate serializes activation of one order within this process, so a racer that loses
// the PAID transition reads the order only after the winner has recorded its outcome.
// The zero value is ready to use.
type orderGate struct {
	mu    sync.Mutex
	slots map[int64]*gateSlot
}

type gateSlot struct {
	ch   chan struct{}
	refs int
}

// enter blocks until the caller holds the order or ctx ends. The returned func releases it.
func (g *orderGate) enter(ctx context.Context, id int64) (func(), error) {
	g.mu.Lock()
	if g.slots == nil {
		g.slots = make(map[int64]*gateSlot)
	}
	s, ok := g.slots[id]
	if !ok {
		s = &gateSlot{ch: make(chan struct{}, 1)}
		g.slots[id] = s
	}
	s.refs++
	g.mu.Unlock()

	drop := func() {
		g.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(g.slots, id)
		}
		g.mu.Unlock()
	}

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			drop()
		}, nil
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	}
}
