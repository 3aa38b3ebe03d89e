//go:build !integration

package nas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
)

func TestMikroTikClient_Lifecycle(t *testing.T) {
	store := map[string]routerBinding{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "api" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/ip/hotspot/ip-binding":
			mac := r.URL.Query().Get("mac-address")
			out := []routerBinding{}
			for _, b := range store {
				if b.MACAddress == mac {
					out = append(out, b)
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		case r.Method == http.MethodPut && r.URL.Path == "/rest/ip/hotspot/ip-binding":
			var b routerBinding
			_ = json.NewDecoder(r.Body).Decode(&b)
			if b.Type != "bypassed" {
				t.Errorf("type = %q, want bypassed", b.Type)
			}
			b.ID = "*1"
			store[b.ID] = b
			_ = json.NewEncoder(w).Encode(b)
		case r.Method == http.MethodDelete && r.URL.Path == "/rest/ip/hotspot/ip-binding/*1":
			if _, ok := store["*1"]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":404,"message":"Not Found"}`))
				return
			}
			delete(store, "*1")
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c, err := NewMikroTikClient(config.NASConfig{BaseURL: srv.URL + "/rest", Username: "api", Password: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	id, err := c.CreateBinding(ctx, adapter.BindingRequest{MACAddress: "AA:BB:CC:DD:EE:FF", Comment: "order REF-1"})
	if err != nil || id != "*1" {
		t.Fatalf("create binding: id=%q err=%v", id, err)
	}
	found, err := c.FindBindings(ctx, "AA:BB:CC:DD:EE:FF")
	if err != nil || len(found) != 1 || found[0].Comment != "order REF-1" {
		t.Fatalf("find bindings: %+v err=%v", found, err)
	}
	if err := c.RemoveBinding(ctx, "*1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.RemoveBinding(ctx, "*1"); err != nil {
		t.Fatalf("removing a missing binding should be a no-op, got %v", err)
	}
}

func TestMikroTikClient_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c, _ := NewMikroTikClient(config.NASConfig{BaseURL: srv.URL})
	if _, err := c.CreateBinding(context.Background(), adapter.BindingRequest{MACAddress: "AA:BB:CC:DD:EE:FF"}); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}
