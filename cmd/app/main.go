// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/infra/adapters/generation"
	"ai-content-boost/internal/infra/api"
	"ai-content-boost/internal/infra/audit"
	pg "ai-content-boost/internal/infra/db/postgres"
	"ai-content-boost/internal/infra/flags"
	"ai-content-boost/internal/infra/logging"
	"ai-content-boost/internal/infra/metrics"
	red "ai-content-boost/internal/infra/redis"
	"ai-content-boost/internal/infra/sched"
	"ai-content-boost/internal/infra/security"
	"ai-content-boost/internal/infra/worker"
	"ai-content-boost/internal/usecase"
)

// Overridden at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed timestamps)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go poolStatsLoop(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	statusCache := red.NewJobStatusCache(redisClient, cfg.Redis.TTL, logger)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Secret sealing ----
	var cipher *security.SecretCipher
	if cfg.Security.EncryptionKey != "" {
		cipher, err = security.NewSecretCipher(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("secret cipher init failed")
		}
	} else {
		logger.Warn().Msg("security.encryption_key not set; tenant secrets stored in plaintext")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	tenantRepo := pg.NewTenantRepo(pool, cipher)
	jobRepo := pg.NewJobRepo(pool)
	holdRepo := pg.NewQuotaHoldRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	idemRepo := pg.NewIdempotencyRepo(pool)
	queueRepo := pg.NewDispatchQueueRepo(pool, tm)
	flagRepo := pg.NewFlagRepo(pool)
	eventRepo := pg.NewEventRepo(pool)
	decisionRepo := pg.NewDecisionRepo(pool)

	sink := audit.NewSink(eventRepo, decisionRepo, logger)

	// ---- Use cases ----
	admissionUC := usecase.NewAdmissionUseCase(tenantRepo, jobRepo, holdRepo, ledgerRepo, idemRepo, queueRepo, tm, sink, logger)
	jobsUC := usecase.NewJobsUseCase(tenantRepo, jobRepo, holdRepo, ledgerRepo, queueRepo, tm, sink, logger)
	flagsUC := usecase.NewFlagsUseCase(flagRepo, logger)

	// ---- Generation backend ----
	backend, err := generation.NewBackend(ctx, &cfg.Generation)
	if err != nil {
		logger.Fatal().Err(err).Msg("generation backend init failed")
	}
	logger.Info().Str("backend", backend.Name()).Msg("generation backend ready")

	// ---- Flag poller ----
	poller := flags.NewPoller(cfg.Flags.PollInterval, flagRepo, logger)
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("flag poller stopped")
		}
	}()

	// ---- Retention sweeper ----
	sweeper := sched.NewRetentionSweeper(cfg.Retention.SweepInterval, cfg.Retention.EventTTL, eventRepo, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Workers ----
	workPool := worker.NewPool(cfg.Worker.Workers, logger)
	workPool.Start(ctx)
	processor := worker.NewJobProcessor(jobRepo, tenantRepo, holdRepo, ledgerRepo, queueRepo,
		backend, poller, statusCache, sink, &cfg.Worker, logger)
	go processor.Start(ctx, workPool)

	// ---- HTTP server ----
	srv := api.NewServer(cfg, admissionUC, jobsUC, flagsUC, tenantRepo, statusCache, rateLimiter, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	workPool.Stop()
	logger.Info().Msg("bye")
}

// poolStatsLoop exports pgx pool gauges until the context ends.
func poolStatsLoop(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
