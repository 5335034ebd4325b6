package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/events"
	"github.com/vanshika/chronos/internal/generator"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/metrics"
	"github.com/vanshika/chronos/internal/repository"
	"github.com/vanshika/chronos/internal/server"
	"github.com/vanshika/chronos/internal/service"
	"github.com/vanshika/chronos/internal/telemetry"
)

const ingestWorkers = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log output: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces failed", "error", err)
		}
	}()

	opened, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := opened.Close(context.Background()); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	publisher := buildPublisher(logger, cfg.Events)
	defer publisher.Close()

	registry := metrics.NewRegistry()
	svc := service.NewTransactionService(opened.Store,
		service.WithLogger(logger),
		service.WithStoreName(opened.Driver),
	)

	if cfg.Store.SeedOnStart {
		seed := generator.DefaultConfig()
		seed.PerScenario = cfg.Store.SeedSize
		seed.Baseline = 2 * cfg.Store.SeedSize
		n, err := svc.Seed(ctx, seed)
		if err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		if n > 0 {
			registry.Ingested(n)
		}
	}

	api := server.NewAPIHandlers(logger, svc,
		server.WithIngestor(service.NewBulkIngestor(opened.Store, ingestWorkers, 0)),
		server.WithPublisher(publisher),
		server.WithIngestRecorder(registry),
	)

	var health server.HealthService = server.StoreHealthService{Service: svc}
	if opened.Graph != nil {
		health = server.GraphHealthService{Client: opened.Graph}
	}

	deps := server.RouterDependencies{
		Health:           health,
		API:              api,
		AllowedOrigins:   cfg.HTTP.ParseAllowedOrigins(),
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Metrics = registry.Handler()
		deps.Recorder = registry
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func buildPublisher(logger *slog.Logger, cfg config.EventsConfig) events.Publisher {
	if cfg.NATSURL == "" {
		return events.Nop{}
	}
	pub, err := events.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, logger)
	if err != nil {
		logger.Warn("nats unavailable, events disabled", "url", cfg.NATSURL, "error", err)
		return events.Nop{}
	}
	return pub
}
