package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"hrm-payroll/internal/domain/audit"
	"hrm-payroll/internal/domain/auth"
	"hrm-payroll/internal/domain/payroll"
	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/platform/cache"
	"hrm-payroll/internal/platform/config"
	"hrm-payroll/internal/platform/crypto"
	"hrm-payroll/internal/platform/db"
	"hrm-payroll/internal/platform/events"
	"hrm-payroll/internal/platform/jobs"
	"hrm-payroll/internal/platform/metrics"
	"hrm-payroll/internal/platform/storage"
	audithandler "hrm-payroll/internal/transport/http/handlers/audit"
	authhandler "hrm-payroll/internal/transport/http/handlers/auth"
	payrollhandler "hrm-payroll/internal/transport/http/handlers/payroll"
	taxhandler "hrm-payroll/internal/transport/http/handlers/tax"
	"hrm-payroll/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

// Run wires the service and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	enforcer, err := auth.NewEnforcer()
	if err != nil {
		return err
	}
	if err := enforcer.LoadFrom(ctx, auth.NewStore(pool)); err != nil {
		return err
	}

	ready := map[string]Pinger{"database": pool.Ping}
	var appCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		appCache = cache.NewRedis(rdb, "payroll:")
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return err
	}
	if !cipher.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set, payslips are stored unencrypted")
	}
	files, err := storage.NewLocal(cfg.StorageDir, cipher)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	collector := metrics.New()
	bus := events.NewBus(64)
	publishers := events.Fanout{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}
	publishers = append(publishers, bus)
	relay := events.NewRelay(events.NewOutboxStore(pool), publishers, cfg.OutboxBatchSize)

	scheduler := jobs.New(collector)
	scheduler.Every(jobs.JobOutboxRelay, cfg.OutboxPollInterval, func(ctx context.Context) (any, error) {
		return relay.RunOnce(ctx)
	})

	payrollStore := payroll.NewStore(pool)
	taxStore := tax.NewStore(pool)
	configService := payroll.NewConfigService(payrollStore, appCache, cfg.PayrollPeriodsPerYear)
	slabs := tax.NewSlabService(taxStore, appCache)
	declarations := tax.NewEngine(taxStore, slabs, configService, tax.DeductionCaps{
		tax.RegimeOld: cfg.TaxDeductionCapOld,
		tax.RegimeNew: cfg.TaxDeductionCapNew,
	})
	engine := payroll.NewEngine(
		payroll.NewResolver(configService, configService),
		payrollStore,
		payroll.NewStatutoryCalculator(configService, slabs),
		declarations,
		payrollStore,
		payroll.EngineConfig{
			PeriodsPerYear:   cfg.PayrollPeriodsPerYear,
			FYStartMonth:     cfg.PayrollFYStartMonth,
			WorkingDaysMode:  cfg.PayrollWorkingDaysMode,
			BatchConcurrency: cfg.PayrollBatchConcurrency,
		},
	)
	issuer := payroll.NewIssuer(payrollStore, payrollStore, configService,
		payroll.NewPDFRenderer(cfg.CompanyName, cfg.Currency), files, cfg.PayslipBaseURL)

	router := NewRouter(RouterDeps{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Ready:   ready,
		Handlers: []Registrar{
			authhandler.NewHandler(enforcer),
			&payrollhandler.Handler{
				Runs:        engine,
				Approvals:   payroll.NewApprovals(payrollStore),
				Ledger:      payroll.NewLedger(payrollStore),
				Payslips:    issuer,
				Config:      configService,
				Events:      bus,
				Jobs:        scheduler,
				Perms:       enforcer,
				Idempotency: middleware.NewIdempotencyStore(pool),
			},
			taxhandler.NewHandler(slabs, declarations, enforcer),
			audithandler.NewHandler(audit.New(pool), enforcer),
		},
	})

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	scheduler.Start(jobCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("payroll server listening", "addr", cfg.Addr, "env", cfg.Environment)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "err", err)
		}
	}
	stopJobs()
	scheduler.Wait()
	return nil
}
