package payment

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for development and tests. Every charge it
// creates verifies as successful for the requested amount.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	charges map[string]adapter.ChargeRequest // provider tx id -> request
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{charges: make(map[string]adapter.ChargeRequest)}
}

func (g *NoopPaymentGateway) Code() string { return "noop" }

func (g *NoopPaymentGateway) CreateCharge(_ context.Context, req adapter.ChargeRequest) (*adapter.ChargeHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("noop-%d", g.seq)
	g.charges[id] = req
	return &adapter.ChargeHandle{ProviderTxID: id, PaymentLink: "https://example.test/pay/" + id}, nil
}

func (g *NoopPaymentGateway) Verify(_ context.Context, providerTxID string) (*adapter.VerifiedTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.charges[providerTxID]
	if !ok {
		return nil, fmt.Errorf("%w: noop: transaction %s not found", domain.ErrVerificationMismatch, providerTxID)
	}
	return &adapter.VerifiedTransaction{
		ProviderTxID: providerTxID,
		Status:       adapter.TxStatusSuccess,
		Reference:    req.Reference,
		Currency:     req.Currency,
		Amount:       req.Amount,
		Raw:          "successful",
	}, nil
}

func (g *NoopPaymentGateway) AuthenticateWebhook(http.Header) bool { return true }

func (g *NoopPaymentGateway) ParseWebhook([]byte, http.Header) *adapter.WebhookEvent { return nil }
