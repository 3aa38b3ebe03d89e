package adapter

import (
	"context"
	"net/http"

	"hotspot-billing/internal/domain/model"
)

type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusPending TxStatus = "pending"
	TxStatusFailed  TxStatus = "failed"
)

// ChargeRequest asks a provider to collect money for an order.
type ChargeRequest struct {
	Reference   string
	Amount      int64
	Currency    string
	Customer    model.Customer
	RedirectURL string // where a hosted-payment page returns the customer
	Description string
	Metadata    map[string]string
}

// ChargeHandle is the provider's answer to a charge request.
type ChargeHandle struct {
	ProviderTxID string // known at creation for push-based providers; empty for link-based ones
	PaymentLink  string // hosted-payment page, when the provider uses one
	Message      string // e.g. "approve the prompt on your phone"
}

// VerifiedTransaction is what the provider reports server-to-server.
type VerifiedTransaction struct {
	ProviderTxID string
	Status       TxStatus
	Reference    string
	Currency     string
	Amount       int64
	Raw          string // provider status text, for logs only
}

// WebhookEvent is a parsed inbound notification. Its claimed status is never trusted.
type WebhookEvent struct {
	Reference     string
	ProviderTxID  string
	ClaimedStatus string
}

// PaymentGateway is the port every payment provider implements.
type PaymentGateway interface {
	Code() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error)
	// Verify is an authenticated server-to-server lookup of a transaction. A nil
	// transaction with a nil error means the provider has no record of it yet.
	Verify(ctx context.Context, providerTxID string) (*VerifiedTransaction, error)
	// AuthenticateWebhook checks the provider's shared-secret header. It runs before parsing.
	AuthenticateWebhook(headers http.Header) bool
	// ParseWebhook returns nil for unrecognized or malformed payloads.
	ParseWebhook(body []byte, headers http.Header) *WebhookEvent
}

// ReferenceVerifier is implemented by providers that can look a transaction up by the
// merchant reference, for orders whose provider transaction id was never reported. It
// returns nil, nil while no transaction carries the reference.
type ReferenceVerifier interface {
	VerifyByReference(ctx context.Context, reference string) (*VerifiedTransaction, error)
}

// GatewayRegistry resolves a provider code to its adapter.
type GatewayRegistry interface {
	Gateway(code string) (PaymentGateway, error)
}
