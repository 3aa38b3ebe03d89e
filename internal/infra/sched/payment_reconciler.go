package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/usecase"
)

const reconcilerLockKey = "lock:payment-reconciler"

type outcome int

const (
	stillPending outcome = iota
	settledPaid
	settledFailed
	abandoned
)

// PaymentReconciler periodically re-confirms stale PENDING orders. This covers lost webhooks,
// customers who never returned to the status page, and crashes mid-confirmation. Orders that
// stay PENDING past abandonAfter are failed.
type PaymentReconciler struct {
	uc           usecase.ActivationUseCase
	orders       repository.OrderRepository
	lock         Locker
	interval     time.Duration
	staleAfter   time.Duration
	abandonAfter time.Duration
	batch        int
	log          *zerolog.Logger
	now          func() time.Time
}

func NewPaymentReconciler(
	uc usecase.ActivationUseCase,
	orders repository.OrderRepository,
	lock Locker,
	interval, staleAfter, abandonAfter time.Duration,
	batch int,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	if abandonAfter <= 0 {
		abandonAfter = 24 * time.Hour
	}
	if batch <= 0 {
		batch = 200
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:           uc,
		orders:       orders,
		lock:         lock,
		interval:     interval,
		staleAfter:   staleAfter,
		abandonAfter: abandonAfter,
		batch:        batch,
		log:          &l,
		now:          time.Now,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runLocked(ctx, w.lock, reconcilerLockKey, w.interval, w.log, w.tick)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	defer logging.TraceDuration(w.log, "ReconcileTick")()
	now := w.now()
	pending, err := w.orders.ListPendingOlderThan(ctx, nil, now.Add(-w.staleAfter), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending orders failed")
		return
	}
	counts := map[outcome]int{}
	for _, o := range pending {
		if ctx.Err() != nil {
			return
		}
		res := w.reconcile(ctx, o, now)
		counts[res]++
		if res == stillPending {
			// rotate to the back of the scan so a full batch of stuck orders cannot starve the rest
			if err := w.orders.TouchPending(ctx, nil, o.ID, now); err != nil {
				w.log.Warn().Err(err).Str("order_ref", o.Reference).Msg("touch pending order failed")
			}
		}
	}
	if len(pending) > 0 {
		w.log.Info().Int("scanned", len(pending)).
			Int("paid", counts[settledPaid]).Int("failed", counts[settledFailed]).Int("abandoned", counts[abandoned]).
			Msg("reconcile tick done")
	}
}

func (w *PaymentReconciler) reconcile(ctx context.Context, o *model.Order, now time.Time) outcome {
	log := w.log.With().Str("order_ref", o.Reference).Logger()
	res, err := w.uc.Confirm(ctx, usecase.ConfirmRequest{
		Reference:    o.Reference,
		ProviderTxID: o.ProviderTxID,
		Channel:      usecase.ChannelReconcile,
	})
	switch {
	case errors.Is(err, domain.ErrVerificationMismatch):
		// left PENDING for an operator
		log.Warn().Msg("verification mismatch; order needs manual review")
		return stillPending
	case err != nil:
		log.Warn().Err(err).Msg("reconcile confirm failed")
		return stillPending
	case res.Status == model.OrderStatusPaid:
		log.Info().Msg("order reconciled as paid")
		return settledPaid
	case res.Status == model.OrderStatusFailed:
		log.Info().Msg("order reconciled as failed")
		return settledFailed
	}

	if now.Sub(o.CreatedAt) < w.abandonAfter {
		return stillPending
	}
	ok, err := w.uc.Abandon(ctx, o, "no confirmed payment before abandon deadline")
	if err != nil {
		log.Error().Err(err).Msg("abandon failed")
		return stillPending
	}
	if !ok {
		return stillPending
	}
	log.Info().Msg("order abandoned")
	return abandoned
}
