//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"hotspot-billing/internal/domain/model"
)

func TestBindingRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewBindingRepo(testPool)

	t.Run("ListExpired should include lapsed pending bindings", func(t *testing.T) {
		cleanup(t)
		past := time.Now().Add(-time.Minute)
		rows := []*model.MACBinding{
			{MACAddress: "AA:BB:CC:DD:EE:01", Status: model.BindingActive, RemoteID: "*1", ExpiresAt: past},
			{MACAddress: "AA:BB:CC:DD:EE:02", Status: model.BindingPending, ExpiresAt: past},
			{MACAddress: "AA:BB:CC:DD:EE:03", Status: model.BindingPending, ExpiresAt: time.Now().Add(time.Hour)},
			{MACAddress: "AA:BB:CC:DD:EE:04", Status: model.BindingRemoved, ExpiresAt: past},
		}
		for _, b := range rows {
			if err := repo.Save(ctx, nil, b); err != nil {
				t.Fatalf("save failed: %v", err)
			}
		}

		expired, err := repo.ListExpired(ctx, nil, time.Now(), 10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(expired) != 2 {
			t.Fatalf("expected 2 expired bindings, got %+v", expired)
		}
		got := map[string]bool{}
		for _, b := range expired {
			got[b.MACAddress] = true
		}
		if !got["AA:BB:CC:DD:EE:01"] || !got["AA:BB:CC:DD:EE:02"] {
			t.Fatalf("unexpected expired set %v", got)
		}

		pending, err := repo.ListPending(ctx, nil, time.Now(), 10)
		if err != nil {
			t.Fatalf("list pending failed: %v", err)
		}
		if len(pending) != 1 || pending[0].MACAddress != "AA:BB:CC:DD:EE:03" {
			t.Fatalf("unexpected pending list %+v", pending)
		}
	})
}
