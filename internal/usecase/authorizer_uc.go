package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/metrics"
)

var _ AuthorizerUseCase = (*authorizerUC)(nil)

type AuthorizeRequest struct {
	MACAddress      string
	IPAddress       string
	DurationMinutes int
	Comment         string // embeds the order reference for traceability
	OrderID         *int64
}

// AuthorizerUseCase binds customer devices on the NAS so they bypass the captive portal.
// Its failures are outcomes, never errors: they only cost the customer auto-login.
type AuthorizerUseCase interface {
	Authorize(ctx context.Context, req AuthorizeRequest) model.AuthorizationOutcome
	// Remove unbinds mac. Succeeds when nothing was bound.
	Remove(ctx context.Context, mac string) model.AuthorizationOutcome
	// RetryPending re-attempts the remote creation of a binding recorded as pending.
	RetryPending(ctx context.Context, b *model.MACBinding) error
	// ExpireBinding removes a binding whose window has closed.
	ExpireBinding(ctx context.Context, b *model.MACBinding) error
}

type AuthorizerOptions struct {
	Enabled bool
	Server  string        // NAS hotspot server tag; empty means all
	Timeout time.Duration // bound for each remote call
}

type authorizerUC struct {
	nas      adapter.NASClient
	bindings repository.BindingRepository
	opts     AuthorizerOptions
	log      *zerolog.Logger
	now      func() time.Time
}

func NewAuthorizerUseCase(nas adapter.NASClient, bindings repository.BindingRepository, opts AuthorizerOptions, logger *zerolog.Logger) *authorizerUC {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	l := logger.With().Str("component", "NetworkAuthorizer").Logger()
	return &authorizerUC{nas: nas, bindings: bindings, opts: opts, log: &l, now: time.Now}
}

func outcome(status model.AuthorizationStatus, mac, msg string) model.AuthorizationOutcome {
	metrics.IncNASAuthorization(string(status))
	return model.AuthorizationOutcome{Status: status, MACAddress: mac, Message: msg}
}

// clearRemote removes every NAS binding for mac.
func (u *authorizerUC) clearRemote(ctx context.Context, mac string) error {
	existing, err := u.nas.FindBindings(ctx, mac)
	if err != nil {
		return fmt.Errorf("find bindings: %w", err)
	}
	for _, b := range existing {
		if err := u.nas.RemoveBinding(ctx, b.ID); err != nil {
			return fmt.Errorf("remove binding %s: %w", b.ID, err)
		}
	}
	return nil
}

func (u *authorizerUC) Authorize(ctx context.Context, req AuthorizeRequest) model.AuthorizationOutcome {
	if !u.opts.Enabled {
		return outcome(model.AuthorizationSkipped, req.MACAddress, "network authorization disabled")
	}
	mac, err := model.NormalizeMAC(req.MACAddress)
	if err != nil {
		return outcome(model.AuthorizationFailed, req.MACAddress, "invalid hardware address")
	}
	if req.DurationMinutes <= 0 {
		return outcome(model.AuthorizationFailed, mac, "non-positive duration")
	}

	expiresAt := u.now().Add(time.Duration(req.DurationMinutes) * time.Minute)
	log := u.log.With().Str("mac", mac).Logger()

	b := &model.MACBinding{
		OrderID:    req.OrderID,
		MACAddress: mac,
		IPAddress:  req.IPAddress,
		Comment:    req.Comment,
		ExpiresAt:  expiresAt,
		Status:     model.BindingActive,
	}

	rctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()

	remoteErr := u.clearRemote(rctx, mac)
	if remoteErr == nil {
		b.RemoteID, remoteErr = u.nas.CreateBinding(rctx, adapter.BindingRequest{
			MACAddress: mac,
			Address:    req.IPAddress,
			Server:     u.opts.Server,
			Comment:    req.Comment,
			ExpiresAt:  expiresAt,
		})
	}
	if remoteErr != nil {
		b.Status = model.BindingPending
		b.RemoteID = ""
	}

	if _, err := u.bindings.SupersedeByMAC(ctx, nil, mac); err != nil {
		log.Error().Err(err).Msg("failed to supersede local bindings")
	}
	if err := u.bindings.Save(ctx, nil, b); err != nil {
		log.Error().Err(err).Msg("failed to record binding")
	}

	if remoteErr != nil {
		log.Warn().Err(remoteErr).Msg("NAS binding failed; recorded as pending")
		return outcome(model.AuthorizationFailed, mac, "device could not be authorized automatically")
	}
	log.Info().Str("binding_id", b.RemoteID).Time("expires_at", expiresAt).Msg("device authorized")
	out := outcome(model.AuthorizationSuccess, mac, "device authorized")
	out.BindingID = b.RemoteID
	out.ExpiresAt = &expiresAt
	return out
}

func (u *authorizerUC) Remove(ctx context.Context, raw string) model.AuthorizationOutcome {
	if !u.opts.Enabled {
		return outcome(model.AuthorizationSkipped, raw, "network authorization disabled")
	}
	mac, err := model.NormalizeMAC(raw)
	if err != nil {
		return outcome(model.AuthorizationFailed, raw, "invalid hardware address")
	}
	rctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()
	if err := u.clearRemote(rctx, mac); err != nil {
		u.log.Warn().Err(err).Str("mac", mac).Msg("NAS unbind failed")
		return outcome(model.AuthorizationFailed, mac, "device could not be unbound")
	}
	if _, err := u.bindings.SupersedeByMAC(ctx, nil, mac); err != nil {
		u.log.Error().Err(err).Str("mac", mac).Msg("failed to update local bindings")
	}
	return outcome(model.AuthorizationSuccess, mac, "device unbound")
}

func (u *authorizerUC) RetryPending(ctx context.Context, b *model.MACBinding) error {
	if !u.opts.Enabled {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()
	if err := u.clearRemote(rctx, b.MACAddress); err != nil {
		return err
	}
	id, err := u.nas.CreateBinding(rctx, adapter.BindingRequest{
		MACAddress: b.MACAddress,
		Address:    b.IPAddress,
		Server:     u.opts.Server,
		Comment:    b.Comment,
		ExpiresAt:  b.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("create binding: %w", err)
	}
	metrics.IncNASAuthorization("retried")
	return u.bindings.UpdateStatus(ctx, nil, b.ID, model.BindingActive, id)
}

func (u *authorizerUC) ExpireBinding(ctx context.Context, b *model.MACBinding) error {
	if u.opts.Enabled && b.RemoteID != "" {
		rctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
		if err := u.nas.RemoveBinding(rctx, b.RemoteID); err != nil {
			return fmt.Errorf("remove binding %s: %w", b.RemoteID, err)
		}
	}
	return u.bindings.UpdateStatus(ctx, nil, b.ID, model.BindingExpired, "")
}
