package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/repository"
)

// Generated pattern shape.
const (
	PatternSteps       = 8
	patternType        = "layering_scheme"
	patternDescription = "Complex layering with multiple intermediaries"
	searchLimit        = 100
)

// Option configures a TransactionService.
type Option func(*TransactionService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.nowFn = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TransactionService) { s.logger = logging.Component(logger, "service") }
}

// WithGenerator replaces the pattern generator.
func WithGenerator(gen *generator.Generator) Option {
	return func(s *TransactionService) { s.gen = gen }
}

// WithStoreName labels the store in health reports.
func WithStoreName(name string) Option {
	return func(s *TransactionService) { s.storeName = name }
}

// TransactionService answers the data API on top of a repository.Store.
type TransactionService struct {
	store     repository.Store
	storeName string
	nowFn     func() time.Time
	logger    *slog.Logger

	genMu sync.Mutex
	gen   *generator.Generator
}

// NewTransactionService builds the service.
func NewTransactionService(store repository.Store, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:     store,
		storeName: "memory",
		nowFn:     time.Now,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = generator.New(generator.Config{})
	}
	return s
}

// Timeline lists transactions for a scenario within the requested window.
// The window is anchored at the latest stored transaction so seeded
// datasets stay visible regardless of wall-clock time.
func (s *TransactionService) Timeline(ctx context.Context, q TimelineQuery) (Timeline, error) {
	window, err := ParseTimeRange(q.TimeRange)
	if err != nil {
		return Timeline{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	filter := repository.Filter{Scenario: q.Scenario, Limit: q.Limit, Newest: true}
	if window > 0 {
		latest, err := s.store.ListTransactions(ctx, repository.Filter{Scenario: q.Scenario, Limit: 1, Newest: true})
		if err != nil {
			return Timeline{}, fmt.Errorf("find latest transaction: %w", err)
		}
		if len(latest) > 0 {
			filter.Since = RangeStart(latest[0].Timestamp, window)
		}
	}
	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return Timeline{}, fmt.Errorf("list timeline: %w", err)
	}

	s.logger.Debug("timeline served", "scenario", q.Scenario, "time_range", q.TimeRange, "count", len(txs))
	return Timeline{
		Transactions: txs,
		Summary:      summarize(txs),
		Stats:        domain.ComputeStats(txs),
	}, nil
}

// Patterns groups every stored transaction by pattern type and scenario.
func (s *TransactionService) Patterns(ctx context.Context) ([]domain.PatternSummary, error) {
	txs, err := s.store.ListTransactions(ctx, repository.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	return domain.SummarizePatterns(txs), nil
}

// Search ranks stored transactions against term within scope.
func (s *TransactionService) Search(ctx context.Context, term string, scope SearchScope, limit int) ([]Match, error) {
	txs, err := s.store.ListTransactions(ctx, repository.Filter{})
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	matches := Search(txs, term, scope)
	if limit <= 0 {
		limit = searchLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GeneratePattern produces a synthetic layering chain.
func (s *TransactionService) GeneratePattern(context.Context) domain.Pattern {
	s.genMu.Lock()
	steps := s.gen.PatternChain(PatternSteps)
	s.genMu.Unlock()

	return domain.Pattern{
		ID:          "PATTERN_" + uuid.NewString(),
		PatternType: patternType,
		Description: patternDescription,
		Steps:       steps,
		CreatedAt:   s.nowFn().UTC(),
	}
}

// Ingest normalizes and stores records.
func (s *TransactionService) Ingest(ctx context.Context, records []RawRecord) (int, error) {
	txs, err := Normalize(records)
	if err != nil {
		return 0, err
	}
	if err := s.store.UpsertTransactions(ctx, txs); err != nil {
		return 0, fmt.Errorf("store transactions: %w", err)
	}
	return len(txs), nil
}

// Seed generates a dataset and stores it when the store is empty.
func (s *TransactionService) Seed(ctx context.Context, cfg generator.Config) (int, error) {
	total, err := s.store.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count before seed: %w", err)
	}
	if total > 0 {
		return 0, nil
	}
	dataset, err := generator.New(cfg).Generate(ctx)
	if err != nil {
		return 0, fmt.Errorf("generate seed dataset: %w", err)
	}
	n, err := s.Ingest(ctx, FromGenerated(dataset.Transactions))
	if err != nil {
		return 0, err
	}
	s.logger.Info("seeded transaction store", "count", n)
	return n, nil
}

// Export returns the transactions that a timeline query would serve.
func (s *TransactionService) Export(ctx context.Context, q TimelineQuery) ([]domain.Transaction, error) {
	tl, err := s.Timeline(ctx, q)
	if err != nil {
		return nil, err
	}
	return tl.Transactions, nil
}

// Health pings the store and counts its transactions.
func (s *TransactionService) Health(ctx context.Context) Health {
	h := Health{Store: s.storeName}
	if err := s.store.Ping(ctx); err != nil {
		h.Error = err.Error()
		return h
	}
	h.Reachable = true
	total, err := s.store.CountTransactions(ctx)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Transactions = total
	return h
}

// IsValidation reports whether err stems from bad input.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
