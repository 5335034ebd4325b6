// Package repository persists transactions for the data service.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/chronos/internal/domain"
)

// ScenarioAll disables scenario filtering.
const ScenarioAll = "all"

const (
	defaultBatchSize = 500
	maxListLimit     = 10000
)

// Store is implemented by every transaction backend.
type Store interface {
	UpsertTransactions(ctx context.Context, txs []domain.Transaction) error
	ListTransactions(ctx context.Context, filter Filter) ([]domain.Transaction, error)
	CountTransactions(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Filter narrows a listing. Zero values disable the matching clause.
type Filter struct {
	Scenario string
	Since    time.Time
	Until    time.Time
	Limit    int
	// Newest keeps the latest rows when Limit truncates. Results are still
	// returned in chronological order.
	Newest bool
}

// ErrMissingID is returned when a transaction cannot be keyed.
var ErrMissingID = errors.New("transaction id is required")

func (f Filter) scenario() string {
	s := strings.TrimSpace(f.Scenario)
	if strings.EqualFold(s, ScenarioAll) {
		return ""
	}
	return s
}

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		return maxListLimit
	}
	return f.Limit
}

func (f Filter) direction() string {
	if f.Newest {
		return "DESC"
	}
	return "ASC"
}

// Matches reports whether tx passes the filter.
func (f Filter) Matches(tx domain.Transaction) bool {
	if s := f.scenario(); s != "" && tx.Scenario != s {
		return false
	}
	if !f.Since.IsZero() && tx.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && tx.Timestamp.After(f.Until) {
		return false
	}
	return true
}

func validate(txs []domain.Transaction) error {
	for i, tx := range txs {
		if tx.ID == "" {
			return fmt.Errorf("transaction %d: %w", i, ErrMissingID)
		}
		if tx.FromAccount == "" || tx.ToAccount == "" {
			return fmt.Errorf("transaction %s: both from and to accounts are required", tx.ID)
		}
	}
	return nil
}

func batches(txs []domain.Transaction, size int) [][]domain.Transaction {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]domain.Transaction
	for start := 0; start < len(txs); start += size {
		end := start + size
		if end > len(txs) {
			end = len(txs)
		}
		out = append(out, txs[start:end])
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
