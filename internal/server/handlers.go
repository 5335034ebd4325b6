package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/events"
	"github.com/vanshika/chronos/internal/export"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/service"
)

const maxIngestBody = 32 << 20

// IngestRecorder counts stored transactions.
type IngestRecorder interface {
	Ingested(n int)
}

// HandlerOption configures APIHandlers.
type HandlerOption func(*APIHandlers)

// WithIngestor routes POSTed transactions through a concurrent bulk ingestor.
func WithIngestor(bi *service.BulkIngestor) HandlerOption {
	return func(h *APIHandlers) { h.ingestor = bi }
}

// WithPublisher announces ingestions on p.
func WithPublisher(p events.Publisher) HandlerOption {
	return func(h *APIHandlers) { h.publisher = p }
}

// WithIngestRecorder counts ingested transactions.
func WithIngestRecorder(r IngestRecorder) HandlerOption {
	return func(h *APIHandlers) { h.recorder = r }
}

// WithClock overrides the export timestamp clock.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *APIHandlers) { h.now = now }
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger    *slog.Logger
	service   *service.TransactionService
	ingestor  *service.BulkIngestor
	publisher events.Publisher
	recorder  IngestRecorder
	now       func() time.Time
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.TransactionService, opts ...HandlerOption) *APIHandlers {
	h := &APIHandlers{
		logger:    logging.Component(logger, "api"),
		service:   svc,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *APIHandlers) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := timelineQuery(r)
	tl, err := h.service.Timeline(r.Context(), q)
	if err != nil {
		h.fail(w, err, "failed to load timeline", "scenario", q.Scenario)
		return
	}

	respondJSON(w, http.StatusOK, timelineResponse{
		Status:            "success",
		Data:              service.ToRecords(tl.Transactions),
		Summary:           tl.Summary,
		Stats:             tl.Stats,
		TotalTransactions: len(tl.Transactions),
	})
}

func (h *APIHandlers) handlePatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.service.Patterns(r.Context())
	if err != nil {
		h.fail(w, err, "failed to summarise patterns")
		return
	}
	if patterns == nil {
		patterns = []domain.PatternSummary{}
	}
	respondJSON(w, http.StatusOK, patternsResponse{Status: "success", Patterns: patterns})
}

func (h *APIHandlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	scope, err := service.ParseScope(query.Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := h.service.Search(r.Context(), query.Get("q"), scope, parseInt(query.Get("limit"), 0))
	if err != nil {
		h.fail(w, err, "failed to search transactions", "q", query.Get("q"))
		return
	}

	records := service.ToRecords(service.Transactions(matches))
	respondJSON(w, http.StatusOK, searchResponse{Status: "success", Data: records, Total: len(records)})
}

func (h *APIHandlers) handleGeneratePattern(w http.ResponseWriter, r *http.Request) {
	pattern := h.service.GeneratePattern(r.Context())
	respondJSON(w, http.StatusOK, patternResponse{
		Status:  "success",
		Data:    pattern,
		Message: "Adversarial pattern generated",
	})
}

func (h *APIHandlers) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := timelineQuery(r)
	txs, err := h.service.Export(r.Context(), q)
	if err != nil {
		h.fail(w, err, "failed to export transactions", "scenario", q.Scenario)
		return
	}

	nodes, links := domain.BuildNetwork(txs)
	snap := domain.NewSnapshot(q.Scenario, h.now().UTC(), domain.SortChronologically(txs), nodes, links)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, snap); err != nil {
		h.logger.Error("failed to encode export", "error", err, "format", format)
		writeError(w, http.StatusInternalServerError, "failed to encode export")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(snap, exporter)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *APIHandlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	records, err := service.DecodeRecords(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "at least one transaction is required")
		return
	}

	n, err := h.ingest(r.Context(), records)
	if err != nil {
		h.fail(w, err, "failed to ingest transactions", "records", len(records))
		return
	}

	if h.recorder != nil {
		h.recorder.Ingested(n)
	}
	ev := events.New(events.TypeStoreIngested)
	ev.Count = n
	if err := h.publisher.Publish(r.Context(), ev); err != nil {
		h.logger.Warn("failed to publish ingestion event", "error", err)
	}

	respondJSON(w, http.StatusCreated, ingestResponse{Status: "success", Ingested: n})
}

func (h *APIHandlers) ingest(ctx context.Context, records []service.RawRecord) (int, error) {
	if h.ingestor != nil {
		return h.ingestor.IngestRecords(ctx, records)
	}
	return h.service.Ingest(ctx, records)
}

// fail maps validation errors to 400 and everything else to 500.
func (h *APIHandlers) fail(w http.ResponseWriter, err error, msg string, attrs ...any) {
	if errors.Is(err, domain.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(msg, append([]any{"error", err}, attrs...)...)
	writeError(w, http.StatusInternalServerError, msg)
}

func timelineQuery(r *http.Request) service.TimelineQuery {
	query := r.URL.Query()
	return service.TimelineQuery{
		Scenario:  query.Get("scenario"),
		TimeRange: query.Get("time_range"),
		Limit:     parseInt(query.Get("limit"), 0),
	}
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Status: "error", Message: msg})
}
