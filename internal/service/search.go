package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanshika/chronos/internal/domain"
)

// SearchScope restricts which fields a search term is matched against.
type SearchScope string

const (
	ScopeAll      SearchScope = "all"
	ScopeID       SearchScope = "id"
	ScopeAccount  SearchScope = "account"
	ScopeScenario SearchScope = "scenario"
	ScopePattern  SearchScope = "pattern"
)

// ParseScope maps user input onto a scope. Empty input means ScopeAll.
func ParseScope(raw string) (SearchScope, error) {
	switch s := SearchScope(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeID, ScopeAccount, ScopeScenario, ScopePattern:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown search scope %q", domain.ErrValidation, raw)
	}
}

// Ranks assigned by Search.
const (
	rankNone = iota
	rankContains
	rankPrefix
	rankExact
)

// Match is a search hit with its rank; higher ranks matched more precisely.
type Match struct {
	Transaction domain.Transaction `json:"transaction"`
	Rank        int                `json:"rank"`
}

// Search ranks txs against term within scope. Results are ordered by rank,
// then suspicion (highest first), then time. An empty term matches nothing.
func Search(txs []domain.Transaction, term string, scope SearchScope) []Match {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var matches []Match
	for _, tx := range txs {
		best := rankNone
		for _, field := range fieldsFor(tx, scope) {
			if r := rankField(strings.ToLower(field), needle); r > best {
				best = r
			}
		}
		if best > rankNone {
			matches = append(matches, Match{Transaction: tx, Rank: best})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		if a.Transaction.SuspicionScore != b.Transaction.SuspicionScore {
			return a.Transaction.SuspicionScore > b.Transaction.SuspicionScore
		}
		return a.Transaction.Timestamp.Before(b.Transaction.Timestamp)
	})
	return matches
}

// Transactions strips ranks from matches.
func Transactions(matches []Match) []domain.Transaction {
	out := make([]domain.Transaction, len(matches))
	for i, m := range matches {
		out[i] = m.Transaction
	}
	return out
}

func fieldsFor(tx domain.Transaction, scope SearchScope) []string {
	switch scope {
	case ScopeID:
		return []string{tx.ID}
	case ScopeAccount:
		return []string{tx.FromAccount, tx.ToAccount}
	case ScopeScenario:
		return []string{tx.Scenario}
	case ScopePattern:
		return []string{tx.PatternType}
	default:
		return []string{tx.ID, tx.FromAccount, tx.ToAccount, tx.Scenario, tx.PatternType, tx.Description}
	}
}

func rankField(field, needle string) int {
	switch {
	case field == needle:
		return rankExact
	case strings.HasPrefix(field, needle):
		return rankPrefix
	case strings.Contains(field, needle):
		return rankContains
	default:
		return rankNone
	}
}
