package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

var _ SecurityUseCase = (*securityUC)(nil)

// SecurityUseCase is the voucher security gate consulted before any code is redeemed.
type SecurityUseCase interface {
	// CheckAndValidate never returns an error for a denial; denials are carried in the result.
	CheckAndValidate(ctx context.Context, code string, client model.ClientInfo) (*model.ValidationResult, error)
	// MarkUsed consumes a code exactly once. Returns domain.ErrAlreadyUsed on a second call.
	MarkUsed(ctx context.Context, tx repository.Tx, code string, src model.VoucherSource, client model.ClientInfo, metadata map[string]any) error
}

// SecurityPolicy holds the thresholds of the gate's fixed windows.
type SecurityPolicy struct {
	RateWindow       time.Duration
	RateMaxAttempts  int64
	FailureWindow    time.Duration
	FailureThreshold int64
	LockoutDuration  time.Duration
}

func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		RateWindow:       time.Minute,
		RateMaxAttempts:  10,
		FailureWindow:    15 * time.Minute,
		FailureThreshold: 5,
		LockoutDuration:  time.Hour,
	}
}

type securityUC struct {
	vouchers repository.VoucherRepository
	orders   repository.OrderRepository
	ledger   repository.UsageLedgerRepository
	radius   repository.RadiusRepository
	security repository.SecurityRepository
	counters repository.CounterStore
	alerts   adapter.AlertNotifier
	tm       repository.TransactionManager
	policy   SecurityPolicy
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSecurityUseCase(
	vouchers repository.VoucherRepository,
	orders repository.OrderRepository,
	ledger repository.UsageLedgerRepository,
	radius repository.RadiusRepository,
	security repository.SecurityRepository,
	counters repository.CounterStore,
	alerts adapter.AlertNotifier,
	tm repository.TransactionManager,
	policy SecurityPolicy,
	logger *zerolog.Logger,
) *securityUC {
	l := logger.With().Str("component", "VoucherSecurity").Logger()
	return &securityUC{
		vouchers: vouchers,
		orders:   orders,
		ledger:   ledger,
		radius:   radius,
		security: security,
		counters: counters,
		alerts:   alerts,
		tm:       tm,
		policy:   policy,
		log:      &l,
		now:      time.Now,
	}
}

func rateKey(ip string) string    { return "rl:" + ip }
func failureKey(ip string) string { return "fail:" + ip }

func (u *securityUC) CheckAndValidate(ctx context.Context, code string, client model.ClientInfo) (*model.ValidationResult, error) {
	defer logging.TraceDuration(u.log, "CheckAndValidate")()
	code = strings.TrimSpace(code)
	now := u.now()

	// 1. persisted block list
	if client.IP != "" {
		block, err := u.security.FindActiveBlock(ctx, nil, client.IP, now)
		switch {
		case err == nil && block.ActiveAt(now):
			u.record(ctx, model.EventIPBlocked, model.SeverityWarning, code, client, map[string]any{"reason": block.Reason})
			res := model.Deny(model.DenialIPBlocked, "access from this address is blocked")
			if !block.Permanent && block.ExpiresAt != nil {
				res.RetryAfter = block.ExpiresAt.Sub(now)
			}
			return res, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("block list: %w", err)
		}
	}

	// 2. rate window
	if client.IP != "" && u.policy.RateMaxAttempts > 0 {
		count, ttl, err := u.counters.Incr(ctx, rateKey(client.IP), u.policy.RateWindow)
		if err != nil {
			u.log.Warn().Err(err).Msg("rate counter unavailable; skipping rate limit")
		} else if count > u.policy.RateMaxAttempts {
			u.record(ctx, model.EventRateLimited, model.SeverityWarning, code, client, map[string]any{"attempts": count})
			res := model.Deny(model.DenialRateLimited, "too many attempts, try again later")
			res.RetryAfter = ttl
			return res, nil
		}
	}

	if code == "" {
		return u.fail(ctx, code, client)
	}

	// 3. lookup: primary voucher store, then paid orders
	var (
		src       model.VoucherSource
		voucher   *model.Voucher
		order     *model.Order
		used      bool
		expiresAt *time.Time
	)
	v, err := u.vouchers.FindByCode(ctx, nil, code)
	switch {
	case err == nil:
		voucher, src = v, model.VoucherSourceOf(v)
		used = v.Status == model.VoucherStatusUsed
		expiresAt = v.ExpiresAt
	case errors.Is(err, domain.ErrNotFound):
		o, oerr := u.orders.FindPaidByVoucherCode(ctx, nil, code)
		if errors.Is(oerr, domain.ErrNotFound) {
			return u.fail(ctx, code, client)
		}
		if oerr != nil {
			return nil, fmt.Errorf("order lookup: %w", oerr)
		}
		order, src = o, model.OrderSourceOf(o)
		used = o.RedeemedAt != nil
		expiresAt = o.AccessExpiresAt
	default:
		return nil, fmt.Errorf("voucher lookup: %w", err)
	}

	// 4. disabled
	if voucher != nil && voucher.Status == model.VoucherStatusDisabled {
		u.record(ctx, model.EventDisabledCode, model.SeverityWarning, code, client, nil)
		return model.Deny(model.DenialDisabled, "this voucher has been disabled"), nil
	}

	// 5. already used
	if !used {
		if used, err = u.ledger.Exists(ctx, nil, code); err != nil {
			return nil, fmt.Errorf("usage ledger: %w", err)
		}
	}
	if !used {
		if used, err = u.radius.HasClosedSession(ctx, nil, code); err != nil {
			return nil, fmt.Errorf("accounting lookup: %w", err)
		}
	}
	if used {
		u.record(ctx, model.EventMultipleUseAttempt, model.SeverityWarning, code, client, map[string]any{"source": string(src.Kind)})
		return model.Deny(model.DenialAlreadyUsed, "this voucher has already been used"), nil
	}

	// 6. expired
	if expiresAt != nil && !now.Before(*expiresAt) {
		u.record(ctx, model.EventExpiredCode, model.SeverityInfo, code, client, map[string]any{"expired_at": expiresAt.Format(time.RFC3339)})
		return model.Deny(model.DenialExpired, "this voucher has expired"), nil
	}

	// 7. session in progress
	open, err := u.radius.HasOpenSession(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("accounting lookup: %w", err)
	}
	if open {
		u.record(ctx, model.EventActiveSession, model.SeverityInfo, code, client, nil)
		return model.Deny(model.DenialActiveSession, "this voucher is already in use"), nil
	}

	// 8. valid
	if client.IP != "" {
		if err := u.counters.Reset(ctx, failureKey(client.IP)); err != nil {
			u.log.Warn().Err(err).Msg("failed to reset failure counter")
		}
	}
	u.record(ctx, model.EventValidationSuccess, model.SeverityInfo, code, client, map[string]any{"source": string(src.Kind)})
	return &model.ValidationResult{Valid: true, Source: &src, Voucher: voucher, Order: order}, nil
}

// fail counts an unknown code against the client address and escalates to a persisted block
// once the failure threshold is reached within the failure window.
func (u *securityUC) fail(ctx context.Context, code string, client model.ClientInfo) (*model.ValidationResult, error) {
	u.record(ctx, model.EventInvalidCode, model.SeverityWarning, code, client, nil)
	res := model.Deny(model.DenialInvalidCode, "invalid voucher code")
	if client.IP == "" || u.policy.FailureThreshold <= 0 {
		return res, nil
	}

	count, _, err := u.counters.Incr(ctx, failureKey(client.IP), u.policy.FailureWindow)
	if err != nil {
		u.log.Warn().Err(err).Msg("failure counter unavailable; skipping lockout")
		return res, nil
	}
	if count < u.policy.FailureThreshold {
		return res, nil
	}

	until := u.now().Add(u.policy.LockoutDuration)
	block := &model.BlockEntry{
		ClientIP:  client.IP,
		Reason:    fmt.Sprintf("%d failed voucher attempts", count),
		ExpiresAt: &until,
	}
	if err := u.security.SaveBlock(ctx, nil, block); err != nil {
		return nil, fmt.Errorf("save block: %w", err)
	}
	ev := u.record(ctx, model.EventLockout, model.SeverityCritical, code, client, map[string]any{
		"failed_attempts": count,
		"blocked_until":   until.Format(time.RFC3339),
	})
	if err := u.alerts.NotifySecurityEvent(ctx, ev); err != nil {
		u.log.Warn().Err(err).Msg("lockout alert not delivered")
	}
	if err := u.counters.Reset(ctx, failureKey(client.IP)); err != nil {
		u.log.Warn().Err(err).Msg("failed to reset failure counter")
	}
	res.RetryAfter = u.policy.LockoutDuration
	return res, nil
}

// record persists a security event. Persistence failures are logged, never returned.
func (u *securityUC) record(ctx context.Context, t model.SecurityEventType, sev model.Severity, code string, client model.ClientInfo, details map[string]any) *model.SecurityEvent {
	ev := &model.SecurityEvent{
		Type:        t,
		Severity:    sev,
		ClientIP:    client.IP,
		VoucherCode: code,
		MACAddress:  client.MAC,
		UserAgent:   client.UserAgent,
		Details:     details,
		CreatedAt:   u.now(),
	}
	metrics.IncSecurityEvent(string(t), string(sev))

	var le *zerolog.Event
	switch sev {
	case model.SeverityCritical:
		le = u.log.Error()
	case model.SeverityWarning:
		le = u.log.Warn()
	default:
		le = u.log.Info()
	}
	le.Str("event", string(t)).
		Str("client_ip", client.IP).
		Str("code", logging.Redact(code, false)).
		Fields(details).
		Msg("voucher security event")

	if err := u.security.SaveEvent(ctx, nil, ev); err != nil {
		u.log.Error().Err(err).Str("event", string(t)).Msg("failed to persist security event")
	}
	return ev
}

func (u *securityUC) MarkUsed(ctx context.Context, tx repository.Tx, code string, src model.VoucherSource, client model.ClientInfo, metadata map[string]any) error {
	if strings.TrimSpace(code) == "" || src.ID == "" {
		return fmt.Errorf("%w: code and source are required", domain.ErrInvalidInput)
	}
	now := u.now()
	mark := func(ctx context.Context, tx repository.Tx) error {
		if err := u.ledger.Insert(ctx, tx, &model.VoucherUsage{
			VoucherCode: code,
			Source:      src,
			ClientIP:    client.IP,
			MACAddress:  client.MAC,
			Metadata:    metadata,
			UsedAt:      now,
		}); err != nil {
			return err
		}
		switch src.Kind {
		case model.SourceVoucher:
			return u.vouchers.MarkUsed(ctx, tx, src.ID, now)
		case model.SourceOrder:
			id, err := strconv.ParseInt(src.ID, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: order source id %q", domain.ErrInvalidInput, src.ID)
			}
			return u.orders.MarkRedeemed(ctx, tx, id, now)
		default:
			return fmt.Errorf("%w: unknown voucher source %q", domain.ErrInvalidInput, src.Kind)
		}
	}

	var err error
	if tx != nil || u.tm == nil {
		err = mark(ctx, tx)
	} else {
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, mark)
	}
	if err != nil {
		return err
	}
	u.record(ctx, model.EventMarkedUsed, model.SeverityInfo, code, client, map[string]any{
		"source":    string(src.Kind),
		"source_id": src.ID,
	})
	return nil
}
