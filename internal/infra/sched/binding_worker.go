package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/usecase"
)

const bindingsLockKey = "lock:binding-worker"

// BindingWorker removes NAS bypass bindings whose window has closed and retries bindings
// whose remote creation failed while the window is still open.
type BindingWorker struct {
	authorizer usecase.AuthorizerUseCase
	bindings   repository.BindingRepository
	lock       Locker
	interval   time.Duration
	batch      int
	log        *zerolog.Logger
	now        func() time.Time
}

func NewBindingWorker(authorizer usecase.AuthorizerUseCase, bindings repository.BindingRepository, lock Locker, interval time.Duration, batch int, logger *zerolog.Logger) *BindingWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	l := logger.With().Str("component", "BindingWorker").Logger()
	return &BindingWorker{
		authorizer: authorizer,
		bindings:   bindings,
		lock:       lock,
		interval:   interval,
		batch:      batch,
		log:        &l,
		now:        time.Now,
	}
}

func (w *BindingWorker) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runLocked(ctx, w.lock, bindingsLockKey, w.interval, w.log, w.tick)
		}
	}
}

func (w *BindingWorker) tick(ctx context.Context) {
	now := w.now()

	expired, err := w.bindings.ListExpired(ctx, nil, now, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list expired bindings failed")
	}
	for _, b := range expired {
		if err := w.authorizer.ExpireBinding(ctx, b); err != nil {
			w.log.Warn().Err(err).Str("mac", b.MACAddress).Int64("binding", b.ID).Msg("expire binding failed")
		}
	}

	pending, err := w.bindings.ListPending(ctx, nil, now, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending bindings failed")
		return
	}
	for _, b := range pending {
		if err := w.authorizer.RetryPending(ctx, b); err != nil {
			w.log.Warn().Err(err).Str("mac", b.MACAddress).Int64("binding", b.ID).Msg("binding retry failed")
		}
	}
	if len(expired)+len(pending) > 0 {
		w.log.Info().Int("expired", len(expired)).Int("retried", len(pending)).Msg("binding tick done")
	}
}
