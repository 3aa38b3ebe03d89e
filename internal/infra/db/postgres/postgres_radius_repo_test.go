//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
)

func TestRadiusRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewRadiusRepo(testPool)

	t.Run("upsert should replace by username and attribute", func(t *testing.T) {
		cleanup(t)
		a := model.RadiusAttribute{Username: "12345678", Attribute: model.AttrSessionTimeout, Op: model.OpEq, Value: "3600"}
		if err := repo.UpsertAttribute(ctx, nil, model.RadReply, a); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		a.Value = "7200"
		if err := repo.UpsertAttribute(ctx, nil, model.RadReply, a); err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}
		attrs, err := repo.ListAttributes(ctx, nil, model.RadReply, "12345678")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(attrs) != 1 || attrs[0].Value != "7200" {
			t.Fatalf("expected a single replaced row, got %+v", attrs)
		}
	})

	t.Run("unknown table should be rejected", func(t *testing.T) {
		err := repo.UpsertAttribute(ctx, nil, model.RadiusTable("radacct"), model.RadiusAttribute{Username: "x"})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("accounting queries", func(t *testing.T) {
		cleanup(t)
		start := time.Now().Add(-2 * time.Hour)
		stop := start.Add(30 * time.Minute)
		_, err := testPool.Exec(ctx, `
INSERT INTO radacct (acctsessionid, acctuniqueid, username, acctstarttime, acctstoptime, acctsessiontime, acctinputoctets, acctoutputoctets)
VALUES ('s1', 'u1', '555', $1, $2, 1800, 100, 900),
       ('s2', 'u2', '555', $3, NULL, 60, 10, 90);`, start, stop, stop.Add(time.Minute))
		if err != nil {
			t.Fatalf("seed radacct: %v", err)
		}

		st, err := repo.UsageStats(ctx, nil, "555")
		if err != nil {
			t.Fatalf("usage stats: %v", err)
		}
		if st.SessionCount != 2 || st.DownloadBytes != 990 || st.UploadBytes != 110 || st.SessionSeconds != 1860 {
			t.Fatalf("unexpected stats: %+v", st)
		}
		open, _ := repo.HasOpenSession(ctx, nil, "555")
		closed, _ := repo.HasClosedSession(ctx, nil, "555")
		if !open || !closed {
			t.Fatalf("expected open and closed sessions (open=%v closed=%v)", open, closed)
		}
		last, err := repo.LatestSession(ctx, nil, "555")
		if err != nil || last.SessionID != "s2" {
			t.Fatalf("expected latest session s2, got %+v err=%v", last, err)
		}
	})
}

func TestUsageLedgerRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	cleanup(t)
	repo := NewUsageLedgerRepo(testPool)

	u := &model.VoucherUsage{VoucherCode: "4242", Source: model.VoucherSource{Kind: model.SourceOrder, ID: "1"}, Metadata: map[string]any{"ip": "10.0.0.1"}}
	if err := repo.Insert(ctx, nil, u); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := repo.Insert(ctx, nil, &model.VoucherUsage{VoucherCode: "4242", Source: u.Source})
	if !errors.Is(err, domain.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	if ok, _ := repo.Exists(ctx, nil, "4242"); !ok {
		t.Fatal("expected ledger entry to exist")
	}
}
