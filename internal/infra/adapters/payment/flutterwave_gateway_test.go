//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
)

func newFlutterwave(t *testing.T, h http.HandlerFunc) *FlutterwaveGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewFlutterwaveGateway(config.FlutterwaveConfig{BaseURL: srv.URL, SecretKey: "FLWSECK-test", SecretHash: "hash-1"})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestFlutterwave_CreateCharge(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/payments" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer FLWSECK-test" {
			t.Errorf("missing bearer secret")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["tx_ref"] != "REF-1" || body["amount"].(float64) != 500 {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.test/abc"}}`))
	})

	h, err := g.CreateCharge(context.Background(), adapter.ChargeRequest{
		Reference: "REF-1", Amount: 500, Currency: "UGX", Customer: model.Customer{Email: "a@b.test"},
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if h.PaymentLink != "https://checkout.test/abc" || h.ProviderTxID != "" {
		t.Fatalf("unexpected handle %+v", h)
	}
}

func TestFlutterwave_CreateChargeRejected(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Invalid currency"}`))
	})
	_, err := g.CreateCharge(context.Background(), adapter.ChargeRequest{Reference: "REF-1", Amount: 1, Currency: "XXX"})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFlutterwave_Verify(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/transactions/288200108/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":288200108,"tx_ref":"REF-1","status":"successful","currency":"ugx","amount":500}}`))
	})

	v, err := g.Verify(context.Background(), "288200108")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Status != adapter.TxStatusSuccess || v.Reference != "REF-1" || v.Currency != "UGX" || v.Amount != 500 {
		t.Fatalf("unexpected verification %+v", v)
	}
}

func TestFlutterwave_VerifyRejectsNonNumericID(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := g.Verify(context.Background(), "../payments"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFlutterwave_VerifyTransportFailure(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := g.Verify(context.Background(), "1"); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFlutterwave_VerifyNoTransactionIsPending(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"status":"error","message":"No transaction was found for this id","data":null}`},
		{"not found", http.StatusNotFound, `{"status":"error","message":"Not found"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("tx_ref") != "REF-9" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			v, err := g.VerifyByReference(context.Background(), "REF-9")
			if err != nil {
				t.Fatalf("expected no error for a missing transaction, got %v", err)
			}
			if v != nil {
				t.Fatalf("expected no transaction, got %+v", v)
			}
		})
	}
}

func TestFlutterwave_Webhook(t *testing.T) {
	g := newFlutterwave(t, func(w http.ResponseWriter, r *http.Request) {})

	h := http.Header{}
	if g.AuthenticateWebhook(h) {
		t.Error("missing header must not authenticate")
	}
	h.Set("verif-hash", "wrong")
	if g.AuthenticateWebhook(h) {
		t.Error("wrong hash must not authenticate")
	}
	h.Set("verif-hash", "hash-1")
	if !g.AuthenticateWebhook(h) {
		t.Error("correct hash should authenticate")
	}

	ev := g.ParseWebhook([]byte(`{"event":"charge.completed","data":{"id":42,"tx_ref":"REF-9","status":"successful"}}`), h)
	if ev == nil || ev.Reference != "REF-9" || ev.ProviderTxID != "42" || ev.ClaimedStatus != "successful" {
		t.Fatalf("unexpected event %+v", ev)
	}
	for _, body := range []string{`not json`, `{}`, `{"data":{"tx_ref":"REF-9"}}`} {
		if ev := g.ParseWebhook([]byte(body), h); ev != nil {
			t.Errorf("expected nil for %q, got %+v", body, ev)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{`500`: 500, `"500"`: 500, `500.75`: 500, `"1000.00"`: 1000}
	for raw, want := range cases {
		got, ok := parseAmount(json.RawMessage(raw))
		if !ok || got != want {
			t.Errorf("parseAmount(%s) = %d,%v want %d", raw, got, ok, want)
		}
	}
	if _, ok := parseAmount(json.RawMessage(`"abc"`)); ok {
		t.Error("expected failure for non-numeric amount")
	}
}
