package nas

import (
	"context"
	"fmt"
	"sync"

	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.NASClient = (*MemoryNAS)(nil)

// MemoryNAS keeps bindings in memory. It backs development runs without a router.
type MemoryNAS struct {
	mu       sync.Mutex
	seq      int
	bindings map[string]adapter.RemoteBinding
}

func NewMemoryNAS() *MemoryNAS {
	return &MemoryNAS{bindings: make(map[string]adapter.RemoteBinding)}
}

func (n *MemoryNAS) FindBindings(_ context.Context, mac string) ([]adapter.RemoteBinding, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []adapter.RemoteBinding
	for _, b := range n.bindings {
		if b.MACAddress == mac {
			out = append(out, b)
		}
	}
	return out, nil
}

func (n *MemoryNAS) CreateBinding(_ context.Context, r adapter.BindingRequest) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	id := fmt.Sprintf("*%X", n.seq)
	n.bindings[id] = adapter.RemoteBinding{ID: id, MACAddress: r.MACAddress, Address: r.Address, Type: "bypassed", Comment: r.Comment}
	return id, nil
}

func (n *MemoryNAS) RemoveBinding(_ context.Context, id string) error {
	n.mu.Lock()
	delete(n.bindings, id)
	n.mu.Unlock()
	return nil
}
