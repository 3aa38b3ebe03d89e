//go:build !integration

package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/model"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestAlertNotifier_SendsFormattedEvent(t *testing.T) {
	logger := zerolog.Nop()
	fs := &fakeSender{}
	n := newAlertNotifier(fs, 777, &logger)

	e := &model.SecurityEvent{
		Type:      model.EventLockout,
		Severity:  model.SeverityCritical,
		ClientIP:  "10.0.0.9",
		Details:   map[string]any{"failures": 5},
		CreatedAt: time.Date(2025, 3, 5, 14, 7, 9, 0, time.UTC),
	}
	if err := n.NotifySecurityEvent(context.Background(), e); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(fs.sent) != 1 || fs.sent[0].ChatID != 777 {
		t.Fatalf("expected one message to chat 777, got %+v", fs.sent)
	}
	text := fs.sent[0].Text
	for _, want := range []string{"[CRITICAL] lockout", "ip: 10.0.0.9", "failures: 5", "2025-03-05T14:07:09Z"} {
		if !strings.Contains(text, want) {
			t.Errorf("alert text %q missing %q", text, want)
		}
	}
}

func TestAlertNotifier_PropagatesSendError(t *testing.T) {
	logger := zerolog.Nop()
	n := newAlertNotifier(&fakeSender{err: errors.New("boom")}, 1, &logger)
	if err := n.NotifySecurityEvent(context.Background(), &model.SecurityEvent{Type: model.EventLockout}); err == nil {
		t.Fatal("expected send error")
	}
}
