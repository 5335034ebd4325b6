package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/events"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/repository"
	"github.com/vanshika/chronos/internal/service"
)

var (
	errMissingDataset = errors.New("dataset not found")
)

func main() {
	var (
		datasetDir   = flag.String("dataset-dir", "./seed-data", "Directory containing transactions.json")
		transactions = flag.String("transactions", "", "Path to transactions.json (overrides dataset-dir)")
		workers      = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
		batchSize    = flag.Int("batch-size", 500, "Transactions written per store call")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	base, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log output: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	logger := logging.Component(base, "ingest")

	txFile, err := resolveDatasetPath(*datasetDir, *transactions)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	records, err := loadRecords(txFile)
	if err != nil {
		logger.Error("failed to load transactions", "error", err, "path", txFile)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Error("transactions dataset empty", "path", txFile)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opened, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := opened.Close(context.Background()); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	ingestor := service.NewBulkIngestor(opened.Store, *workers, *batchSize)

	start := time.Now()
	logger.Info("ingesting transactions", "count", len(records), "workers", *workers, "store", opened.Driver)
	n, err := ingestor.IngestRecords(ctx, records)
	if err != nil {
		logger.Error("transaction ingestion failed", "error", err, "stored", n)
		os.Exit(1)
	}

	announce(ctx, logger, cfg.Events, n)
	logger.Info("ingestion complete", "duration", time.Since(start).String(), "transactions", n)
}

func announce(ctx context.Context, logger *slog.Logger, cfg config.EventsConfig, n int) {
	if cfg.NATSURL == "" {
		return
	}
	pub, err := events.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, logger)
	if err != nil {
		logger.Warn("nats unavailable, skipping ingestion event", "error", err)
		return
	}
	defer pub.Close()

	ev := events.New(events.TypeStoreIngested)
	ev.Count = n
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish ingestion event", "error", err)
	}
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, "transactions.json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

// loadRecords accepts either a bare array or a {"transactions": [...]} dataset.
func loadRecords(path string) ([]service.RawRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var dataset struct {
			Transactions json.RawMessage `json:"transactions"`
		}
		if err := json.Unmarshal(raw, &dataset); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		raw = dataset.Transactions
	}
	records, err := service.DecodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
