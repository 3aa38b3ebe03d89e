package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*MoMoGateway)(nil)

// tokenSkew renews the access token this long before it expires.
const tokenSkew = 30 * time.Second

// MoMoGateway implements adapter.PaymentGateway with the MTN MoMo Collection API
// (request-to-pay, a USSD push to the payer's phone).
type MoMoGateway struct {
	baseURL         string
	subscriptionKey string
	apiUser         string
	apiKey          string
	targetEnv       string
	callbackURL     string
	callbackHeader  string
	callbackSecret  string
	client          *http.Client
	now             func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMoMoGateway(cfg config.MoMoConfig) (*MoMoGateway, error) {
	if cfg.SubscriptionKey == "" || cfg.APIUser == "" || cfg.APIKey == "" {
		return nil, errors.New("momo: subscription key, api user and api key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	header := cfg.CallbackHeader
	if header == "" {
		header = "X-Callback-Token"
	}
	return &MoMoGateway{
		baseURL:         trimBase(cfg.BaseURL),
		subscriptionKey: cfg.SubscriptionKey,
		apiUser:         cfg.APIUser,
		apiKey:          cfg.APIKey,
		targetEnv:       cfg.TargetEnv,
		callbackURL:     cfg.CallbackURL,
		callbackHeader:  header,
		callbackSecret:  cfg.CallbackSecret,
		client:          &http.Client{Timeout: timeout},
		now:             time.Now,
	}, nil
}

func (g *MoMoGateway) Code() string { return "momo" }

// accessToken returns a cached collection token, fetching a new one when it is about to expire.
func (g *MoMoGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Add(tokenSkew).Before(g.tokenExpiry) {
		return g.token, nil
	}

	req, err := newJSONRequest(ctx, http.MethodPost, g.baseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.apiUser, g.apiKey)
	req.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	code, err := do(g.client, req, &out)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK || out.AccessToken == "" {
		return "", fmt.Errorf("%w: momo token request failed (status %d)", domain.ErrProviderUnavailable, code)
	}
	g.token = out.AccessToken
	g.tokenExpiry = g.expiryOf(out.AccessToken, out.ExpiresIn)
	return g.token, nil
}

// expiryOf prefers the token's own exp claim and falls back to expires_in.
func (g *MoMoGateway) expiryOf(token string, expiresIn int64) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return g.now().Add(time.Duration(expiresIn) * time.Second)
}

func (g *MoMoGateway) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var req *http.Request
	if body != nil {
		req, err = newJSONRequest(ctx, method, g.baseURL+path, bytes.NewReader(body))
	} else {
		req, err = newJSONRequest(ctx, method, g.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)
	req.Header.Set("X-Target-Environment", g.targetEnv)
	return req, nil
}

// CreateCharge sends a request-to-pay. The generated X-Reference-Id is the provider
// transaction id used for every later status query.
func (g *MoMoGateway) CreateCharge(ctx context.Context, cr adapter.ChargeRequest) (*adapter.ChargeHandle, error) {
	msisdn := normalizeMSISDN(cr.Customer.Phone)
	if msisdn == "" {
		return nil, fmt.Errorf("%w: momo requires the payer phone number", domain.ErrInvalidInput)
	}
	payload := map[string]any{
		"amount":     strconv.FormatInt(cr.Amount, 10),
		"currency":   cr.Currency,
		"externalId": cr.Reference,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     msisdn,
		},
		"payerMessage": cr.Description,
		"payeeNote":    cr.Reference,
	}
	b, _ := json.Marshal(payload)
	req, err := g.newRequest(ctx, http.MethodPost, "/collection/v1_0/requesttopay", b)
	if err != nil {
		return nil, err
	}
	refID := uuid.NewString()
	req.Header.Set("X-Reference-Id", refID)
	if g.callbackURL != "" {
		req.Header.Set("X-Callback-Url", g.callbackURL)
	}

	code, err := do(g.client, req, nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusAccepted {
		return nil, fmt.Errorf("%w: momo request-to-pay rejected (status %d)", domain.ErrProviderUnavailable, code)
	}
	return &adapter.ChargeHandle{
		ProviderTxID: refID,
		Message:      "Approve the payment prompt on your phone",
	}, nil
}

type momoTransaction struct {
	ReferenceID            string          `json:"referenceId"`
	FinancialTransactionID string          `json:"financialTransactionId"`
	ExternalID             string          `json:"externalId"`
	Amount                 json.RawMessage `json:"amount"`
	Currency               string          `json:"currency"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason"`
}

// Verify calls GET /collection/v1_0/requesttopay/{referenceId}.
func (g *MoMoGateway) Verify(ctx context.Context, providerTxID string) (*adapter.VerifiedTransaction, error) {
	if _, err := uuid.Parse(providerTxID); err != nil {
		return nil, fmt.Errorf("%w: momo reference id %q", domain.ErrInvalidInput, providerTxID)
	}
	req, err := g.newRequest(ctx, http.MethodGet, "/collection/v1_0/requesttopay/"+providerTxID, nil)
	if err != nil {
		return nil, err
	}
	var out momoTransaction
	code, err := do(g.client, req, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("%w: momo: transaction %s not found", domain.ErrVerificationMismatch, providerTxID)
	case code != http.StatusOK:
		return nil, fmt.Errorf("%w: momo status query failed (status %d)", domain.ErrProviderUnavailable, code)
	}
	amount, ok := parseAmount(out.Amount)
	if !ok {
		return nil, fmt.Errorf("%w: momo: unreadable amount", domain.ErrProviderUnavailable)
	}
	return &adapter.VerifiedTransaction{
		ProviderTxID: providerTxID,
		Status:       momoStatus(out.Status),
		Reference:    out.ExternalID,
		Currency:     strings.ToUpper(out.Currency),
		Amount:       amount,
		Raw:          out.Status,
	}, nil
}

func momoStatus(s string) adapter.TxStatus {
	switch strings.ToUpper(s) {
	case "SUCCESSFUL":
		return adapter.TxStatusSuccess
	case "FAILED", "REJECTED", "TIMEOUT", "EXPIRED":
		return adapter.TxStatusFailed
	default:
		return adapter.TxStatusPending
	}
}

// AuthenticateWebhook compares the configured callback header with the shared secret.
func (g *MoMoGateway) AuthenticateWebhook(h http.Header) bool {
	got := h.Get(g.callbackHeader)
	if g.callbackSecret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.callbackSecret)) == 1
}

// ParseWebhook reads the request-to-pay callback body. The callback carries the order
// reference as externalId; referenceId is only present on some deployments.
func (g *MoMoGateway) ParseWebhook(body []byte, _ http.Header) *adapter.WebhookEvent {
	var in momoTransaction
	if err := json.Unmarshal(body, &in); err != nil {
		return nil
	}
	if in.ExternalID == "" {
		return nil
	}
	return &adapter.WebhookEvent{
		Reference:     in.ExternalID,
		ProviderTxID:  in.ReferenceID,
		ClaimedStatus: in.Status,
	}
}

// normalizeMSISDN strips everything but digits, keeping the international prefix digits.
func normalizeMSISDN(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
