package repository

import (
	"context"
	"sync"

	"github.com/vanshika/chronos/internal/domain"
)

// MemoryStore keeps transactions in process. It backs the default server
// configuration and the tests.
type MemoryStore struct {
	mu  sync.RWMutex
	txs map[string]domain.Transaction
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[string]domain.Transaction)}
}

func (s *MemoryStore) UpsertTransactions(_ context.Context, txs []domain.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.txs[tx.ID] = tx
	}
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, filter Filter) ([]domain.Transaction, error) {
	s.mu.RLock()
	matched := make([]domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if filter.Matches(tx) {
			matched = append(matched, tx)
		}
	}
	s.mu.RUnlock()

	out := domain.SortChronologically(matched)
	if limit := filter.limit(); len(out) > limit {
		if filter.Newest {
			out = out[len(out)-limit:]
		} else {
			out = out[:limit]
		}
	}
	return out, nil
}

func (s *MemoryStore) CountTransactions(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.txs)), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
