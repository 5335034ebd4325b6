package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
	"github.com/vanshika/chronos/internal/repository"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func tx(id string, offset time.Duration, from, to string, score float64, scenario string) domain.Transaction {
	return domain.Transaction{
		ID:             id,
		Timestamp:      base.Add(offset),
		Amount:         decimal.NewFromInt(100),
		FromAccount:    from,
		ToAccount:      to,
		SuspicionScore: score,
		Scenario:       scenario,
		PatternType:    "smurfing",
	}
}

type stubStore struct {
	mu        sync.Mutex
	txs       []domain.Transaction
	listErr   error
	upsertErr error
	pingErr   error
	upserts   int
	filters   []repository.Filter
}

func (s *stubStore) UpsertTransactions(_ context.Context, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	s.txs = append(s.txs, txs...)
	return nil
}

func (s *stubStore) ListTransactions(_ context.Context, f repository.Filter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Transaction
	for _, tx := range s.txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	out = domain.SortChronologically(out)
	if f.Limit > 0 && len(out) > f.Limit {
		if f.Newest {
			out = out[len(out)-f.Limit:]
		} else {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (s *stubStore) CountTransactions(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.txs)), nil
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func TestTimeline_FiltersScenarioAndWindow(t *testing.T) {
	store := &stubStore{txs: []domain.Transaction{
		tx("old", 0, "A", "B", 0.2, "baseline"),
		tx("mid", 47*time.Hour, "B", "C", 0.9, "baseline"),
		tx("new", 48*time.Hour, "C", "D", 0.6, "baseline"),
		tx("other", 48*time.Hour, "C", "D", 0.6, "crypto_sanctions"),
	}}
	svc := NewTransactionService(store)

	tl, err := svc.Timeline(context.Background(), TimelineQuery{Scenario: "baseline", TimeRange: "1d"})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(tl.Transactions) != 2 || tl.Transactions[0].ID != "mid" {
		t.Fatalf("unexpected window %+v", tl.Transactions)
	}
	if tl.Summary.TotalTransactions != 2 || tl.Summary.SuspiciousCount != 2 {
		t.Fatalf("unexpected summary %+v", tl.Summary)
	}
	if tl.Stats.Risk != domain.RiskHigh {
		t.Fatalf("expected HIGH risk, got %s", tl.Stats.Risk)
	}
}

func TestTimeline_WindowAppliedBeforeLimit(t *testing.T) {
	store := &stubStore{}
	for i := 0; i < 6; i++ {
		store.txs = append(store.txs, tx(fmt.Sprintf("T%d", i), time.Duration(i)*time.Hour, "A", "B", 0.1, "baseline"))
	}
	svc := NewTransactionService(store)

	tl, err := svc.Timeline(context.Background(), TimelineQuery{Scenario: "baseline", TimeRange: "24h", Limit: 3})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	var ids []string
	for _, tx := range tl.Transactions {
		ids = append(ids, tx.ID)
	}
	if got := strings.Join(ids, ","); got != "T3,T4,T5" {
		t.Fatalf("timeline = %s, want newest three in order", got)
	}

	last := store.filters[len(store.filters)-1]
	if !last.Newest || !last.Since.Equal(base.Add(5*time.Hour-24*time.Hour)) {
		t.Fatalf("window not pushed into the store filter: %+v", last)
	}
}

func TestTimeline_Errors(t *testing.T) {
	svc := NewTransactionService(&stubStore{})
	if _, err := svc.Timeline(context.Background(), TimelineQuery{TimeRange: "forever"}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	boom := errors.New("boom")
	svc = NewTransactionService(&stubStore{listErr: boom})
	if _, err := svc.Timeline(context.Background(), TimelineQuery{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestPatterns(t *testing.T) {
	store := &stubStore{txs: []domain.Transaction{
		tx("1", 0, "A", "B", 0.2, "baseline"),
		tx("2", time.Hour, "A", "B", 0.4, "baseline"),
		tx("3", time.Hour, "A", "B", 0.9, "crypto_sanctions"),
	}}
	patterns, err := NewTransactionService(store).Patterns(context.Background())
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	if len(patterns) != 2 || patterns[0].Scenario != "baseline" || patterns[0].Count != 2 {
		t.Fatalf("unexpected patterns %+v", patterns)
	}
}

func TestSearch_Ranking(t *testing.T) {
	txs := []domain.Transaction{
		tx("TXN_010", 0, "SHELL_A", "ACC", 0.3, "baseline"),
		tx("TXN_001", time.Hour, "ACC", "SHELL_B", 0.9, "baseline"),
		tx("X_TXN_001", 2*time.Hour, "B", "C", 0.5, "baseline"),
	}

	matches := Search(txs, "txn_001", ScopeID)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Transaction.ID != "TXN_001" || matches[0].Rank != rankExact {
		t.Fatalf("exact match should rank first, got %+v", matches[0])
	}
	if matches[1].Rank != rankContains {
		t.Fatalf("expected contains rank, got %d", matches[1].Rank)
	}

	accounts := Search(txs, "shell", ScopeAccount)
	if len(accounts) != 2 || accounts[0].Transaction.ID != "TXN_001" {
		t.Fatalf("ties should order by suspicion, got %+v", Transactions(accounts))
	}

	if got := Search(txs, "nothing-here", ScopeAll); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if got := Search(txs, "   ", ScopeAll); got != nil {
		t.Fatal("blank term should match nothing")
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeAll {
		t.Fatalf("expected all, got %v %v", s, err)
	}
	if s, err := ParseScope("Account"); err != nil || s != ScopeAccount {
		t.Fatalf("expected account, got %v %v", s, err)
	}
	if _, err := ParseScope("amount"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceSearchLimit(t *testing.T) {
	store := &stubStore{}
	for i := 0; i < 5; i++ {
		store.txs = append(store.txs, tx(strings.Repeat("a", i+1), time.Duration(i)*time.Minute, "A", "B", 0.1, "baseline"))
	}
	matches, err := NewTransactionService(store).Search(context.Background(), "a", ScopeID, 3)
	if err != nil || len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d (%v)", len(matches), err)
	}
}

func TestGeneratePattern(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTransactionService(&stubStore{},
		WithClock(func() time.Time { return now }),
		WithGenerator(generator.New(generator.Config{Seed: 7})),
	)
	p := svc.GeneratePattern(context.Background())
	if !strings.HasPrefix(p.ID, "PATTERN_") {
		t.Fatalf("unexpected id %q", p.ID)
	}
	if len(p.Steps) != PatternSteps || !p.CreatedAt.Equal(now) {
		t.Fatalf("unexpected pattern %+v", p)
	}
	if p.Steps[0].Technique != "structuring" || p.Steps[PatternSteps-1].Technique != "layering" {
		t.Fatalf("unexpected techniques %+v", p.Steps)
	}
}

func TestIngestAndSeed(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewTransactionService(store)

	n, err := svc.Seed(context.Background(), generator.Config{PerScenario: 5, Baseline: 5, Seed: 1, Now: base})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 20 {
		t.Fatalf("expected 20 seeded transactions, got %d", n)
	}
	n, err = svc.Seed(context.Background(), generator.Config{PerScenario: 5, Seed: 1})
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op, got %d (%v)", n, err)
	}

	_, err = svc.Ingest(context.Background(), []RawRecord{{"id": "bad"}})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	store := &stubStore{txs: []domain.Transaction{tx("1", 0, "A", "B", 0.1, "baseline")}}
	h := NewTransactionService(store, WithStoreName("stub")).Health(context.Background())
	if !h.Reachable || h.Transactions != 1 || h.Store != "stub" {
		t.Fatalf("unexpected health %+v", h)
	}

	store.pingErr = errors.New("down")
	h = NewTransactionService(store).Health(context.Background())
	if h.Reachable || h.Error != "down" {
		t.Fatalf("expected unreachable, got %+v", h)
	}
}

func TestToRecordRoundTripsThroughNormalize(t *testing.T) {
	orig := tx("R1", time.Hour, "A", "B", 0.75, "baseline")
	orig.Amount = decimal.RequireFromString("1234.56")
	txs, err := Normalize(FromGenerated(ToRecords([]domain.Transaction{orig})))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got := txs[0]
	if got.ID != orig.ID || !got.Timestamp.Equal(orig.Timestamp) || !got.Amount.Equal(orig.Amount) || got.SuspicionScore != orig.SuspicionScore {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, orig)
	}
}
