package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

var _ RadiusUseCase = (*radiusUC)(nil)

// RadiusUseCase writes and inspects the RADIUS authorization record of a voucher code.
// Every write is an upsert keyed by (username, attribute), so each call is idempotent.
type RadiusUseCase interface {
	// Activate provisions credentials and plan limits. When tx is nil it opens its own transaction.
	Activate(ctx context.Context, tx repository.Tx, p model.ActivationParams) (*model.Activation, error)
	// Deactivate adds a reject override and moves the expiration into the past. Reversible.
	Deactivate(ctx context.Context, username string) error
	// Reactivate lifts the reject override; with credentials and a duration it also refreshes access.
	Reactivate(ctx context.Context, username string, p *model.ActivationParams) (*model.Activation, error)
	// DeleteVoucher purges check, reply and group rows. Irreversible.
	DeleteVoucher(ctx context.Context, username string) error
	GetStatus(ctx context.Context, username string) (*model.VoucherStatusReport, error)
	GetUsageStats(ctx context.Context, username string) (*model.UsageStats, error)
	// DisconnectSession moves the expiration slightly into the past. Best-effort: the session only
	// ends when the NAS re-authenticates; no CoA or Disconnect-Request is sent.
	DisconnectSession(ctx context.Context, username string) error
}

// legacyRate matches the combined "NNNNk/NNNNk" plan rate string (download/upload).
var legacyRate = regexp.MustCompile(`^(\d+)k/(\d+)k$`)

const (
	bytesPerMB     = 1024 * 1024
	gigawordFactor = int64(1) << 32

	deactivateBackdate = 24 * time.Hour
	disconnectBackdate = time.Minute
)

type radiusUC struct {
	repo  repository.RadiusRepository
	tm    repository.TransactionManager
	codec model.ExpirationCodec
	log   *zerolog.Logger
	now   func() time.Time
}

func NewRadiusUseCase(repo repository.RadiusRepository, tm repository.TransactionManager, codec model.ExpirationCodec, logger *zerolog.Logger) *radiusUC {
	l := logger.With().Str("component", "RadiusWriter").Logger()
	return &radiusUC{repo: repo, tm: tm, codec: codec, log: &l, now: time.Now}
}

// inTx runs fn in tx when given, otherwise in a fresh transaction (or without one when no
// transaction manager is wired).
func (u *radiusUC) inTx(ctx context.Context, tx repository.Tx, fn func(ctx context.Context, tx repository.Tx) error) error {
	if tx != nil || u.tm == nil {
		return fn(ctx, tx)
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, fn)
}

// ParseLegacyRate reads "3000k/1500k" into download and upload kbps.
func ParseLegacyRate(s string) (down, up int, ok bool) {
	m := legacyRate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	d, err1 := strconv.Atoi(m[1])
	v, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return d, v, true
}

// replyAttributes derives the reply rows for an activation. Attributes that do not apply are
// returned in drop so a refresh removes rows left by an earlier, larger plan.
func replyAttributes(username string, a *model.Activation) (set []model.RadiusAttribute, drop []string) {
	reply := func(name, value string) model.RadiusAttribute {
		return model.RadiusAttribute{Username: username, Attribute: name, Op: model.OpEq, Value: value}
	}
	set = append(set,
		reply(model.AttrSessionTimeout, strconv.FormatInt(a.SessionSeconds, 10)),
		reply(model.AttrIdleTimeout, strconv.Itoa(model.IdleTimeoutSeconds)),
	)

	if a.SpeedDownKbps != nil && a.SpeedUpKbps != nil {
		down, up := *a.SpeedDownKbps, *a.SpeedUpKbps
		set = append(set,
			reply(model.AttrRateLimit, fmt.Sprintf("%dk/%dk", down, up)),
			reply(model.AttrBandwidthDown, strconv.FormatInt(int64(down)*1000, 10)),
			reply(model.AttrBandwidthUp, strconv.FormatInt(int64(up)*1000, 10)),
		)
	} else {
		drop = append(drop, model.AttrRateLimit, model.AttrBandwidthDown, model.AttrBandwidthUp)
	}

	if a.DataLimitBytes != nil {
		total := *a.DataLimitBytes
		set = append(set, reply(model.AttrTotalLimit, strconv.FormatInt(total%gigawordFactor, 10)))
		if total >= gigawordFactor {
			set = append(set, reply(model.AttrTotalLimitGiga, strconv.FormatInt(total/gigawordFactor, 10)))
		} else {
			drop = append(drop, model.AttrTotalLimitGiga)
		}
	} else {
		drop = append(drop, model.AttrTotalLimit, model.AttrTotalLimitGiga)
	}
	return set, drop
}

func (u *radiusUC) Activate(ctx context.Context, tx repository.Tx, p model.ActivationParams) (*model.Activation, error) {
	defer logging.TraceDuration(u.log, "Activate")()
	if strings.TrimSpace(p.Username) == "" || p.Password == "" || p.Minutes <= 0 {
		return nil, fmt.Errorf("%w: username, password and positive minutes are required", domain.ErrInvalidInput)
	}

	down, up := p.SpeedDownKbps, p.SpeedUpKbps
	if down == nil && up == nil && p.RateLimit != "" {
		if d, v, ok := ParseLegacyRate(p.RateLimit); ok {
			down, up = &d, &v
		} else {
			u.log.Warn().Str("rate", p.RateLimit).Msg("unparseable legacy rate; speeds left unset")
		}
	}

	start := p.Start
	if start.IsZero() {
		start = u.now()
	}
	sessionSeconds := int64(p.Minutes) * 60
	a := &model.Activation{
		Username:       p.Username,
		ExpiresAt:      start.Truncate(time.Second).Add(time.Duration(sessionSeconds) * time.Second),
		SessionSeconds: sessionSeconds,
		SpeedDownKbps:  down,
		SpeedUpKbps:    up,
	}
	if p.DataMB != nil && *p.DataMB > 0 {
		b := *p.DataMB * bytesPerMB
		a.DataLimitBytes = &b
	}

	checks := []model.RadiusAttribute{
		{Username: p.Username, Attribute: model.AttrCleartextPassword, Op: model.OpSet, Value: p.Password},
		{Username: p.Username, Attribute: model.AttrExpiration, Op: model.OpSet, Value: u.codec.Encode(a.ExpiresAt)},
	}
	replies, drop := replyAttributes(p.Username, a)

	err := u.inTx(ctx, tx, func(ctx context.Context, tx repository.Tx) error {
		for _, attr := range checks {
			if err := u.repo.UpsertAttribute(ctx, tx, model.RadCheck, attr); err != nil {
				return err
			}
		}
		for _, attr := range replies {
			if err := u.repo.UpsertAttribute(ctx, tx, model.RadReply, attr); err != nil {
				return err
			}
		}
		for _, name := range drop {
			if err := u.repo.DeleteAttribute(ctx, tx, model.RadReply, p.Username, name); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.IncRadiusActivation(err == nil)
	if err != nil {
		u.log.Error().Err(err).Str("username", logging.Redact(p.Username, false)).Msg("radius activation failed")
		return nil, fmt.Errorf("radius activate: %w", err)
	}
	u.log.Info().
		Str("username", logging.Redact(p.Username, false)).
		Time("expires_at", a.ExpiresAt).
		Int64("session_seconds", a.SessionSeconds).
		Msg("radius credentials provisioned")
	return a, nil
}

func requireUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	return nil
}

func (u *radiusUC) Deactivate(ctx context.Context, username string) error {
	if err := requireUsername(username); err != nil {
		return err
	}
	past := u.codec.Encode(u.now().Add(-deactivateBackdate))
	return u.inTx(ctx, nil, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.UpsertAttribute(ctx, tx, model.RadCheck, model.RadiusAttribute{
			Username: username, Attribute: model.AttrAuthType, Op: model.OpSet, Value: model.AuthTypeReject,
		}); err != nil {
			return err
		}
		return u.repo.UpsertAttribute(ctx, tx, model.RadCheck, model.RadiusAttribute{
			Username: username, Attribute: model.AttrExpiration, Op: model.OpSet, Value: past,
		})
	})
}

func (u *radiusUC) Reactivate(ctx context.Context, username string, p *model.ActivationParams) (*model.Activation, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	var out *model.Activation
	err := u.inTx(ctx, nil, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.DeleteAttribute(ctx, tx, model.RadCheck, username, model.AttrAuthType); err != nil {
			return err
		}
		if p == nil || p.Password == "" || p.Minutes <= 0 {
			return nil
		}
		params := *p
		params.Username = username
		a, err := u.Activate(ctx, tx, params)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *radiusUC) DeleteVoucher(ctx context.Context, username string) error {
	if err := requireUsername(username); err != nil {
		return err
	}
	return u.inTx(ctx, nil, func(ctx context.Context, tx repository.Tx) error {
		return u.repo.DeleteUser(ctx, tx, username)
	})
}

// DeriveStatus applies DISABLED > EXPIRED > ACTIVE > UNKNOWN to a user's check attributes.
func DeriveStatus(checks []model.RadiusAttribute, codec model.ExpirationCodec, now time.Time) (model.RadiusStatus, *time.Time) {
	var (
		rejected, hasCredential bool
		expiresAt               *time.Time
	)
	for _, a := range checks {
		switch a.Attribute {
		case model.AttrAuthType:
			rejected = rejected || strings.EqualFold(a.Value, model.AuthTypeReject)
		case model.AttrCleartextPassword:
			hasCredential = true
		case model.AttrExpiration:
			if t, ok := codec.Decode(a.Value); ok {
				expiresAt = &t
			}
		}
	}
	switch {
	case rejected:
		return model.RadiusStatusDisabled, expiresAt
	case expiresAt != nil && expiresAt.Before(now):
		return model.RadiusStatusExpired, expiresAt
	case hasCredential:
		return model.RadiusStatusActive, expiresAt
	default:
		return model.RadiusStatusUnknown, expiresAt
	}
}

func (u *radiusUC) GetStatus(ctx context.Context, username string) (*model.VoucherStatusReport, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	checks, err := u.repo.ListAttributes(ctx, nil, model.RadCheck, username)
	if err != nil {
		return nil, err
	}
	replies, err := u.repo.ListAttributes(ctx, nil, model.RadReply, username)
	if err != nil {
		return nil, err
	}
	last, err := u.repo.LatestSession(ctx, nil, username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	status, expiresAt := DeriveStatus(checks, u.codec, u.now())
	attrs := make([]model.RadiusAttribute, 0, len(checks)+len(replies))
	for _, a := range append(checks, replies...) {
		if a.Attribute == model.AttrCleartextPassword {
			a.Value = "***"
		}
		attrs = append(attrs, a)
	}
	return &model.VoucherStatusReport{
		Username:    username,
		Status:      status,
		ExpiresAt:   expiresAt,
		Attributes:  attrs,
		LastSession: last,
	}, nil
}

func (u *radiusUC) GetUsageStats(ctx context.Context, username string) (*model.UsageStats, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	return u.repo.UsageStats(ctx, nil, username)
}

func (u *radiusUC) DisconnectSession(ctx context.Context, username string) error {
	if err := requireUsername(username); err != nil {
		return err
	}
	past := u.codec.Encode(u.now().Add(-disconnectBackdate))
	return u.repo.UpsertAttribute(ctx, nil, model.RadCheck, model.RadiusAttribute{
		Username: username, Attribute: model.AttrExpiration, Op: model.OpSet, Value: past,
	})
}
