package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestRedact(t *testing.T) {
	if got := Redact("12345678", true); got != "12345678" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
	if got := Redact("12345678", false); got != "12****78" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("123", false); got != "***" {
		t.Errorf("short values must be fully masked, got %q", got)
	}
}

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithOrderRef(ctx, "01HZX")
	ctx = WithClientIP(ctx, "10.0.0.7")

	With(ctx, &base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	for k, want := range map[string]string{"trace_id": "trace-1", "order_ref": "01HZX", "client_ip": "10.0.0.7"} {
		if line[k] != want {
			t.Errorf("expected %s=%q, got %v", k, want, line[k])
		}
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("TraceID did not return stored id")
	}
}
