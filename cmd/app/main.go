// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/adapters/events"
	"hotspot-billing/internal/infra/adapters/nas"
	payAdapters "hotspot-billing/internal/infra/adapters/payment"
	"hotspot-billing/internal/infra/adapters/telegram"
	"hotspot-billing/internal/infra/api"
	pg "hotspot-billing/internal/infra/db/postgres"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/memstore"
	"hotspot-billing/internal/infra/metrics"
	red "hotspot-billing/internal/infra/redis"
	"hotspot-billing/internal/infra/sched"
	"hotspot-billing/internal/infra/worker"
	"hotspot-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: in-memory NAS and noop payment provider")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("hotspot-billing stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] noop payment provider and in-memory NAS enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		if redisClient, err = red.NewClient(ctx, &cfg.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
	}

	// ---- Repositories ----
	var planRepo repository.PlanRepository = pg.NewPlanRepo(pool)
	if redisClient != nil {
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL)
	}
	orderRepo := pg.NewOrderRepo(pool)
	logRepo := pg.NewPaymentLogRepo(pool)
	voucherRepo := pg.NewVoucherRepo(pool)
	ledgerRepo := pg.NewUsageLedgerRepo(pool)
	radiusRepo := pg.NewRadiusRepo(pool)
	securityRepo := pg.NewSecurityRepo(pool)
	bindingRepo := pg.NewBindingRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Counters and locks ----
	var counters repository.CounterStore
	var locker sched.Locker = red.NoopLocker{}
	if cfg.Security.CounterBackend == "redis" {
		counters = red.NewCounterStore(redisClient)
	} else {
		mem := memstore.NewCounterStore()
		go mem.RunSweeper(ctx, time.Minute)
		counters = mem
	}
	if redisClient != nil {
		locker = red.NewLocker(redisClient)
	}

	// ---- Adapters ----
	gateways, err := buildGateways(cfg)
	if err != nil {
		return err
	}
	logger.Info().Strs("providers", gateways.Codes()).Msg("payment providers registered")

	var nasClient adapter.NASClient
	switch {
	case cfg.Runtime.Dev:
		nasClient = nas.NewMemoryNAS()
	case cfg.NAS.Enabled:
		if nasClient, err = nas.NewMikroTikClient(cfg.NAS); err != nil {
			return fmt.Errorf("nas: %w", err)
		}
	}

	var alerts adapter.AlertNotifier = telegram.NoopAlertNotifier{}
	if cfg.Alerts.Telegram.Token != "" {
		n, err := telegram.NewAlertNotifier(cfg.Alerts.Telegram, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram alerts disabled")
		} else {
			alerts = n
		}
	}

	var publisher adapter.EventPublisher = events.NoopPublisher{}
	if len(cfg.Events.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Events.Kafka, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("kafka events disabled")
		} else {
			defer kp.Close()
			publisher = kp
		}
	}

	// ---- Use cases ----
	codec := model.ExpirationCodec{Location: cfg.Radius.Location()}
	radiusUC := usecase.NewRadiusUseCase(radiusRepo, tm, codec, logger)
	securityUC := usecase.NewSecurityUseCase(
		voucherRepo, orderRepo, ledgerRepo, radiusRepo, securityRepo, counters, alerts, tm,
		usecase.SecurityPolicy{
			RateWindow:       cfg.Security.RateWindow,
			RateMaxAttempts:  cfg.Security.RateMaxAttempts,
			FailureWindow:    cfg.Security.FailureWindow,
			FailureThreshold: cfg.Security.FailureThreshold,
			LockoutDuration:  cfg.Security.LockoutDuration,
		},
		logger,
	)
	authorizerUC := usecase.NewAuthorizerUseCase(nasClient, bindingRepo, usecase.AuthorizerOptions{
		Enabled: nasClient != nil,
		Server:  cfg.NAS.Server,
		Timeout: cfg.NAS.Timeout,
	}, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	activationUC := usecase.NewActivationUseCase(
		orderRepo, logRepo, planRepo, voucherRepo, tm, gateways,
		radiusUC, securityUC, authorizerUC, publisher,
		usecase.ActivationOptions{
			PublicBaseURL:   cfg.Server.PublicBaseURL,
			CodeLength:      cfg.Voucher.CodeLength,
			DefaultCurrency: cfg.Payment.DefaultCurrency,
		},
		logger,
	)

	// ---- Background workers ----
	webhookPool := worker.NewPool(cfg.Workers.Webhook, logger)
	webhookPool.Start(ctx)
	defer webhookPool.Stop()

	reconciler := sched.NewPaymentReconciler(activationUC, orderRepo, locker,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.AbandonAfter, cfg.Reconciler.BatchSize, logger)
	go reconciler.Start(ctx)
	if nasClient != nil {
		bw := sched.NewBindingWorker(authorizerUC, bindingRepo, locker, cfg.Bindings.Interval, cfg.Bindings.BatchSize, logger)
		go bw.Start(ctx)
	}

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if !auth.Enabled() {
		logger.Warn().Msg("admin.jwt_secret not set; operator endpoints are disabled")
	}
	proxies, err := api.NewProxyTrust(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}
	srv := api.NewServer(activationUC, radiusUC, authorizerUC, planUC, webhookPool, auth, proxies, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(cfg.Server.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

func buildGateways(cfg *config.Config) (*payAdapters.Registry, error) {
	var gws []adapter.PaymentGateway
	if cfg.Payment.Flutterwave.Enabled {
		fw, err := payAdapters.NewFlutterwaveGateway(cfg.Payment.Flutterwave)
		if err != nil {
			return nil, fmt.Errorf("flutterwave: %w", err)
		}
		gws = append(gws, fw)
	}
	if cfg.Payment.MoMo.Enabled {
		mm, err := payAdapters.NewMoMoGateway(cfg.Payment.MoMo)
		if err != nil {
			return nil, fmt.Errorf("momo: %w", err)
		}
		gws = append(gws, mm)
	}
	if cfg.Runtime.Dev {
		gws = append(gws, payAdapters.NewNoopPaymentGateway())
	}
	if len(gws) == 0 {
		return nil, errors.New("no payment provider enabled")
	}
	return payAdapters.NewRegistry(gws...), nil
}
