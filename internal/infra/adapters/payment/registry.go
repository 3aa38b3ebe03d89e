package payment

import (
	"fmt"
	"sort"
	"strings"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.GatewayRegistry = (*Registry)(nil)

// Registry resolves provider codes to gateways. It is populated at startup and read-only afterwards.
type Registry struct {
	gateways map[string]adapter.PaymentGateway
}

func NewRegistry(gws ...adapter.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]adapter.PaymentGateway, len(gws))}
	for _, g := range gws {
		r.gateways[strings.ToLower(g.Code())] = g
	}
	return r
}

func (r *Registry) Gateway(code string) (adapter.PaymentGateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, code)
	}
	return g, nil
}

// Codes lists registered provider codes in sorted order.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.gateways))
	for c := range r.gateways {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
