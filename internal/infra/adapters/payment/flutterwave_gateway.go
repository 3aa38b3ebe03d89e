package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/ports/adapter"
)

var (
	_ adapter.PaymentGateway    = (*FlutterwaveGateway)(nil)
	_ adapter.ReferenceVerifier = (*FlutterwaveGateway)(nil)
)

// FlutterwaveGateway implements adapter.PaymentGateway with Flutterwave Standard (hosted link)
// and the v3 transaction verification API.
type FlutterwaveGateway struct {
	baseURL    string
	secretKey  string
	secretHash string
	client     *http.Client
}

func NewFlutterwaveGateway(cfg config.FlutterwaveConfig) (*FlutterwaveGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("flutterwave: secret key empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("flutterwave: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &FlutterwaveGateway{
		baseURL:    trimBase(cfg.BaseURL),
		secretKey:  cfg.SecretKey,
		secretHash: cfg.SecretHash,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (g *FlutterwaveGateway) Code() string { return "flutterwave" }

func (g *FlutterwaveGateway) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
}

// CreateCharge calls POST /v3/payments and returns the hosted-payment link.
func (g *FlutterwaveGateway) CreateCharge(ctx context.Context, cr adapter.ChargeRequest) (*adapter.ChargeHandle, error) {
	payload := map[string]any{
		"tx_ref":       cr.Reference,
		"amount":       cr.Amount,
		"currency":     cr.Currency,
		"redirect_url": cr.RedirectURL,
		"customer": map[string]string{
			"email":       cr.Customer.Email,
			"phonenumber": cr.Customer.Phone,
			"name":        cr.Customer.Name,
		},
		"customizations": map[string]string{"title": cr.Description},
	}
	if len(cr.Metadata) > 0 {
		payload["meta"] = cr.Metadata
	}
	b, _ := json.Marshal(payload)
	req, err := newJSONRequest(ctx, http.MethodPost, g.baseURL+"/v3/payments", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	g.authorize(req)

	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	code, err := do(g.client, req, &out)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK || out.Status != "success" || out.Data.Link == "" {
		return nil, fmt.Errorf("%w: flutterwave charge rejected (status %d): %s", domain.ErrProviderUnavailable, code, out.Message)
	}
	return &adapter.ChargeHandle{PaymentLink: out.Data.Link}, nil
}

type flwTransaction struct {
	ID       int64           `json:"id"`
	TxRef    string          `json:"tx_ref"`
	Status   string          `json:"status"`
	Currency string          `json:"currency"`
	Amount   json.RawMessage `json:"amount"`
}

type flwVerifyResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    flwTransaction `json:"data"`
}

// Verify calls GET /v3/transactions/{id}/verify.
func (g *FlutterwaveGateway) Verify(ctx context.Context, providerTxID string) (*adapter.VerifiedTransaction, error) {
	if _, err := strconv.ParseInt(providerTxID, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: flutterwave transaction id %q", domain.ErrInvalidInput, providerTxID)
	}
	return g.verify(ctx, g.baseURL+"/v3/transactions/"+providerTxID+"/verify")
}

// VerifyByReference calls GET /v3/transactions/verify_by_reference?tx_ref=...
func (g *FlutterwaveGateway) VerifyByReference(ctx context.Context, reference string) (*adapter.VerifiedTransaction, error) {
	return g.verify(ctx, g.baseURL+"/v3/transactions/verify_by_reference?tx_ref="+url.QueryEscape(reference))
}

func (g *FlutterwaveGateway) verify(ctx context.Context, endpoint string) (*adapter.VerifiedTransaction, error) {
	req, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	g.authorize(req)

	var out flwVerifyResponse
	code, err := do(g.client, req, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case code == http.StatusNotFound || (code == http.StatusBadRequest && out.Status == "error"):
		// no transaction yet: the customer has not paid, or has not finished paying
		return nil, nil
	case code != http.StatusOK || out.Status != "success":
		return nil, fmt.Errorf("%w: flutterwave verify failed (status %d): %s", domain.ErrProviderUnavailable, code, out.Message)
	}

	amount, ok := parseAmount(out.Data.Amount)
	if !ok {
		return nil, fmt.Errorf("%w: flutterwave: unreadable amount", domain.ErrProviderUnavailable)
	}
	return &adapter.VerifiedTransaction{
		ProviderTxID: strconv.FormatInt(out.Data.ID, 10),
		Status:       flwStatus(out.Data.Status),
		Reference:    out.Data.TxRef,
		Currency:     strings.ToUpper(out.Data.Currency),
		Amount:       amount,
		Raw:          out.Data.Status,
	}, nil
}

func flwStatus(s string) adapter.TxStatus {
	switch strings.ToLower(s) {
	case "successful":
		return adapter.TxStatusSuccess
	case "failed", "cancelled":
		return adapter.TxStatusFailed
	default:
		return adapter.TxStatusPending
	}
}

// AuthenticateWebhook compares the verif-hash header with the configured secret hash.
func (g *FlutterwaveGateway) AuthenticateWebhook(h http.Header) bool {
	got := h.Get("verif-hash")
	if g.secretHash == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.secretHash)) == 1
}

// ParseWebhook reads {event, data:{id, tx_ref, status}}.
func (g *FlutterwaveGateway) ParseWebhook(body []byte, _ http.Header) *adapter.WebhookEvent {
	var in struct {
		Event string         `json:"event"`
		Data  flwTransaction `json:"data"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil
	}
	if in.Data.TxRef == "" || in.Data.ID == 0 {
		return nil
	}
	return &adapter.WebhookEvent{
		Reference:     in.Data.TxRef,
		ProviderTxID:  strconv.FormatInt(in.Data.ID, 10),
		ClaimedStatus: in.Data.Status,
	}
}
