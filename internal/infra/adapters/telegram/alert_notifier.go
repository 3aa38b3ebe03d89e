package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.AlertNotifier = (*AlertNotifier)(nil)

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertNotifier posts critical security events to an operator chat.
type AlertNotifier struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewAlertNotifier(cfg config.TelegramAlertConfig, logger *zerolog.Logger) (*AlertNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newAlertNotifier(bot, cfg.ChatID, logger), nil
}

func newAlertNotifier(bot sender, chatID int64, logger *zerolog.Logger) *AlertNotifier {
	l := logger.With().Str("component", "TelegramAlerts").Logger()
	return &AlertNotifier{bot: bot, chatID: chatID, log: &l}
}

func (n *AlertNotifier) NotifySecurityEvent(ctx context.Context, e *model.SecurityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, formatAlert(e))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Str("event", string(e.Type)).Msg("send alert")
		return err
	}
	return nil
}

func formatAlert(e *model.SecurityEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(e.Severity)), e.Type)
	if e.ClientIP != "" {
		fmt.Fprintf(&b, "ip: %s\n", e.ClientIP)
	}
	if e.MACAddress != "" {
		fmt.Fprintf(&b, "mac: %s\n", e.MACAddress)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, e.Details[k])
	}
	at := e.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	b.WriteString(at.Format(time.RFC3339))
	return b.String()
}

var _ adapter.AlertNotifier = NoopAlertNotifier{}

// NoopAlertNotifier drops alerts; used when no chat is configured.
type NoopAlertNotifier struct{}

func (NoopAlertNotifier) NotifySecurityEvent(context.Context, *model.SecurityEvent) error { return nil }
