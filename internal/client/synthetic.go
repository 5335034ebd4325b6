package client

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
)

// Synthetic payload sizes.
const (
	SyntheticTimelineSize = 50
	SyntheticPatternSteps = 8
	syntheticPerScenario  = 10
	syntheticMessage      = "Demo mode - Using sample data"
)

// SyntheticSource builds demo payloads shaped like real responses.
type SyntheticSource struct {
	mu  sync.Mutex
	gen *generator.Generator
	now func() time.Time
}

// NewSyntheticSource seeds the underlying generator. A zero seed uses the clock.
func NewSyntheticSource(seed int64) *SyntheticSource {
	return &SyntheticSource{
		gen: generator.New(generator.Config{Seed: seed}),
		now: time.Now,
	}
}

// Payload returns the body the backing service would have answered for endpoint.
func (s *SyntheticSource) Payload(endpoint string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, query := splitEndpoint(endpoint)
	switch {
	case strings.Contains(path, "/chronos/timeline"):
		return s.timeline()
	case strings.Contains(path, "/chronos/patterns"):
		return s.patterns()
	case strings.Contains(path, "/chronos/search"):
		return s.search(query)
	case strings.Contains(path, "/hydra/generate"):
		return s.pattern()
	case strings.HasSuffix(path, "/health"):
		return map[string]any{"status": "success", "service": "chronos", "mode": "synthetic", "message": syntheticMessage}
	default:
		return map[string]any{"status": "mock", "message": "Demo mode - Backend API not available"}
	}
}

func (s *SyntheticSource) timeline() map[string]any {
	records := s.gen.SampleTransactions(SyntheticTimelineSize)
	suspicious := 0
	minAmount, maxAmount := 0.0, 0.0
	for i, r := range records {
		if r.SuspiciousScore > domain.SuspiciousThreshold {
			suspicious++
		}
		if i == 0 || r.Amount < minAmount {
			minAmount = r.Amount
		}
		if r.Amount > maxAmount {
			maxAmount = r.Amount
		}
	}
	return map[string]any{
		"status": "success",
		"data":   records,
		"summary": map[string]any{
			"total_transactions": len(records),
			"suspicious_count":   suspicious,
			"amount_range":       map[string]any{"min": minAmount, "max": maxAmount},
		},
		"total_transactions": len(records),
		"message":            syntheticMessage,
	}
}

func (s *SyntheticSource) patterns() map[string]any {
	var txs []domain.Transaction
	for _, name := range generator.Scenarios() {
		for _, r := range s.gen.Scenario(name, syntheticPerScenario) {
			txs = append(txs, domain.Transaction{
				Amount:         decimal.NewFromFloat(r.Amount),
				SuspicionScore: r.SuspiciousScore,
				Scenario:       r.Scenario,
				PatternType:    r.PatternType,
			})
		}
	}
	return map[string]any{
		"status":   "success",
		"patterns": domain.SummarizePatterns(txs),
		"message":  syntheticMessage,
	}
}

func (s *SyntheticSource) search(query string) map[string]any {
	values, _ := url.ParseQuery(query)
	term := strings.ToLower(values.Get("q"))
	var matches []generator.Record
	for _, r := range s.gen.SampleTransactions(SyntheticTimelineSize) {
		if term == "" || strings.Contains(strings.ToLower(r.ID), term) ||
			strings.Contains(strings.ToLower(r.FromAccount), term) ||
			strings.Contains(strings.ToLower(r.ToAccount), term) {
			matches = append(matches, r)
		}
	}
	return map[string]any{
		"status":  "success",
		"data":    matches,
		"total":   len(matches),
		"message": syntheticMessage,
	}
}

func (s *SyntheticSource) pattern() map[string]any {
	return map[string]any{
		"status": "success",
		"data": domain.Pattern{
			ID:          "PATTERN_" + uuid.NewString(),
			PatternType: "layering_scheme",
			Description: "Demo adversarial pattern - Complex layering with multiple intermediaries",
			Steps:       s.gen.PatternChain(SyntheticPatternSteps),
			CreatedAt:   s.now().UTC(),
		},
		"message": "Demo mode - Generated sample adversarial pattern",
	}
}

func splitEndpoint(endpoint string) (string, string) {
	path, query, _ := strings.Cut(endpoint, "?")
	return path, query
}
