package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanshika/chronos/internal/client"
	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/controller"
	"github.com/vanshika/chronos/internal/events"
	"github.com/vanshika/chronos/internal/export"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/metrics"
	"github.com/vanshika/chronos/internal/scheduler"
	"github.com/vanshika/chronos/internal/telemetry"
	"github.com/vanshika/chronos/internal/tui"
)

const defaultLogFile = "chronos.log"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var (
		scenario     = flag.String("scenario", cfg.Client.Scenario, "scenario to load (all, terrorist_financing, crypto_sanctions, human_trafficking, baseline)")
		timeRange    = flag.String("time-range", cfg.Client.TimeRange, "window to load, e.g. 30d, 12h or all")
		apiURL       = flag.String("api", cfg.Client.BaseURL, "data service base URL")
		synthetic    = flag.String("synthetic", cfg.Client.SyntheticMode, "synthetic fallback: auto, always or never")
		remoteSearch = flag.Bool("remote-search", false, "send searches to the data service")
		exportDir    = flag.String("export-dir", ".", "directory snapshots are written to")
		exportFormat = flag.String("export-format", "json", "snapshot format: json or csv")
		headless     = flag.Bool("export", false, "load once, write a snapshot to stdout and exit")
		metricsAddr  = flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	)
	flag.Parse()

	cfg.Client.Scenario = *scenario
	cfg.Client.TimeRange = *timeRange
	cfg.Client.BaseURL = *apiURL
	cfg.Client.SyntheticMode = *synthetic

	// The terminal owns stdout while the UI runs.
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = defaultLogFile
	}
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log output: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("trace export unavailable", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces failed", "error", err)
		}
	}()

	registry := metrics.NewRegistry()
	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr, registry.Handler())
	}

	publisher := buildPublisher(logger, cfg.Events)
	defer publisher.Close()

	api := client.New(cfg.Client, client.WithLogger(logger), client.WithRecorder(registry))
	if api.Synthetic() {
		logger.Warn("synthetic fallback active", "base_url", cfg.Client.BaseURL)
	}

	queue := scheduler.NewQueue(64)
	defer queue.Close()

	ctrl := controller.New(api, queue, cfg,
		controller.WithLogger(logger),
		controller.WithPublisher(publisher),
		controller.WithRecorder(registry),
	)
	if err := ctrl.SetTimeRange(cfg.Client.TimeRange); err != nil {
		fmt.Fprintf(os.Stderr, "invalid time range: %v\n", err)
		os.Exit(2)
	}

	if *headless {
		if err := exportOnce(ctx, ctrl, *exportFormat, os.Stdout); err != nil {
			logger.Error("export failed", "error", err)
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	model := tui.New(ctx, ctrl, queue,
		tui.WithLogger(logger),
		tui.WithRemoteSearch(*remoteSearch),
		tui.WithExportDir(*exportDir),
		tui.WithExportFormat(*exportFormat),
		tui.WithLayout(cfg.Layout.Width, cfg.Layout.Height),
	)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("terminal host stopped", "error", err)
		fmt.Fprintf(os.Stderr, "chronos: %v\n", err)
		os.Exit(1)
	}
}

func exportOnce(ctx context.Context, ctrl *controller.Controller, format string, w io.Writer) error {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return err
	}
	switch ctrl.Load(ctx, ctrl.Scenario()) {
	case controller.StatusError:
		return ctrl.Error().Err
	case controller.StatusEmpty:
		return fmt.Errorf("scenario %q returned no transactions", ctrl.Scenario())
	}
	defer ctrl.Teardown()

	ctrl.SwitchView(controller.ModeNetwork)
	ctrl.Network().Settle(300)
	return exporter.Write(w, ctrl.Snapshot())
}

func serveMetrics(logger *slog.Logger, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics listener stopped", "addr", addr, "error", err)
	}
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
