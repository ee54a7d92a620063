package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afadil/wealthfolio-sub004/internal/config"
	"github.com/afadil/wealthfolio-sub004/internal/database"
	"github.com/afadil/wealthfolio-sub004/internal/database/repositories"
	"github.com/afadil/wealthfolio-sub004/internal/engine"
	"github.com/afadil/wealthfolio-sub004/internal/events"
	"github.com/afadil/wealthfolio-sub004/internal/fx"
	"github.com/afadil/wealthfolio-sub004/internal/marketdata"
	"github.com/afadil/wealthfolio-sub004/internal/marketdata/alphavantage"
	"github.com/afadil/wealthfolio-sub004/internal/marketdata/yahoo"
	"github.com/afadil/wealthfolio-sub004/internal/scheduler"
	"github.com/afadil/wealthfolio-sub004/internal/server"
	"github.com/afadil/wealthfolio-sub004/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting portfolio engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.New(cfg.ResolvedDBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Phase 1: repositories and domain services. None of these depend on
	// the event worker, so they can be built before it exists (§9).
	conn := db.Conn()
	accountRepo := repositories.NewAccountRepository(conn, log)
	assetRepo := repositories.NewAssetRepository(conn, log)
	activityRepo := repositories.NewActivityRepository(conn, log)
	snapshotRepo := repositories.NewSnapshotRepository(conn, log)
	valuationRepo := repositories.NewValuationRepository(conn, log)
	quoteStore := repositories.NewQuoteRepository(conn, log)
	quoteSyncRepo := repositories.NewQuoteSyncStateRepository(conn, log)
	taxonomyRepo := repositories.NewTaxonomyRepository(conn, log)
	fxRepo := repositories.NewFxRepository(conn, log)
	secretRepo := repositories.NewSecretRepository(conn, log)

	fxSvc := fx.NewService(fxRepo, log)
	ctx := context.Background()
	if err := fxSvc.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize fx service")
	}

	registry := buildMarketDataRegistry(cfg, secretRepo, log)

	eng := engine.NewService(engine.Config{
		BaseCurrency:  cfg.BaseCurrency,
		Accounts:      accountRepo,
		Assets:        assetRepo,
		Activities:    activityRepo,
		SnapshotRepo:  snapshotRepo,
		SnapshotStore: snapshotRepo,
		Valuations:    valuationRepo,
		QuoteStore:    quoteStore,
		QuoteSyncRepo: quoteSyncRepo,
		Taxonomies:    taxonomyRepo,
		FxService:     fxSvc,
		Registry:      registry,
	}, log)

	// Phase 2: event sink and worker, wired last so every Handlers callback
	// already has a live engine method behind it.
	sink := events.NewSink(log)
	worker := events.NewWorker(sink, events.Handlers{
		SyncMarketData:         eng.SyncMarketData,
		RecomputeSnapshots:     eng.RecomputeSnapshots,
		RecomputeTotalSnapshot: eng.RecomputeTotalSnapshot,
		UpdateQuoteSyncStates:  eng.UpdateQuoteSyncStates,
		RecomputeValuations:    eng.RecomputeValuations,
		EnrichAssets:           eng.EnrichAssets,
		SyncBroker:             eng.SyncBroker,
	}, log)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)
	defer cancelWorker()

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()
	if err := registerJobs(sched, sink, log); err != nil {
		log.Fatal().Err(err).Msg("failed to register jobs")
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Engine:  eng,
		Sink:    sink,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("stopped")
}

// buildMarketDataRegistry wires the Yahoo and Alpha Vantage providers behind
// a shared circuit breaker and validator; the registry gives each provider
// its own rate limiter. It always returns a registry: a missing Alpha
// Vantage API key surfaces as a per-request error from that provider.
func buildMarketDataRegistry(cfg *config.Config, secrets *repositories.SecretRepository, log zerolog.Logger) *marketdata.Registry {
	breaker := marketdata.NewCircuitBreakerWithConfig(marketdata.CircuitBreakerConfig{
		FailureThreshold:         cfg.CircuitBreakerFailureThreshold,
		RecoveryTimeout:          cfg.CircuitBreakerRecoveryTimeout,
		HalfOpenSuccessThreshold: cfg.CircuitBreakerHalfOpenSuccess,
	}, log)
	validator := marketdata.NewValidator()
	chain := marketdata.NewChain(marketdata.NewRulesResolver())

	providers := []marketdata.Provider{
		yahoo.NewProvider(log),
		alphavantage.NewProvider(secrets, log),
	}

	return marketdata.NewRegistry(providers, chain, breaker, validator, log)
}

// registerJobs schedules the periodic recompute cadence: every 15 minutes,
// at any hour, a PortfolioRecalcRequested event is emitted to the event
// worker, which plans the market-data sync and the rest of the recompute
// chain itself.
func registerJobs(sched *scheduler.Scheduler, sink *events.Sink, log zerolog.Logger) error {
	return sched.AddJob("@every 15m", pollJob{sink: sink, log: log})
}

type pollJob struct {
	sink *events.Sink
	log  zerolog.Logger
}

func (j pollJob) Name() string { return "market-data-poll" }

func (j pollJob) Run() error {
	j.sink.Emit(events.PortfolioRecalcRequested{})
	return nil
}
