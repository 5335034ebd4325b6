package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PatternStep is one hop of a generated laundering pattern.
type PatternStep struct {
	Step         int             `json:"step"`
	FromAccount  string          `json:"from_account"`
	ToAccount    string          `json:"to_account"`
	Amount       decimal.Decimal `json:"amount"`
	DelayMinutes int             `json:"delay_minutes"`
	Technique    string          `json:"technique"`
}

// Pattern groups generated steps under an identifier.
type Pattern struct {
	ID          string        `json:"pattern_id"`
	PatternType string        `json:"pattern_type"`
	Description string        `json:"description"`
	Steps       []PatternStep `json:"transactions"`
	CreatedAt   time.Time     `json:"timestamp"`
}

// PatternSummary aggregates transactions sharing a pattern type and scenario.
type PatternSummary struct {
	PatternType      string          `json:"pattern_type"`
	Scenario         string          `json:"scenario"`
	Count            int             `json:"transaction_count"`
	AverageSuspicion float64         `json:"avg_suspicion"`
	AverageAmount    decimal.Decimal `json:"avg_amount"`
}

// SummarizePatterns groups txs by pattern type and scenario, ordered by
// pattern type then scenario.
func SummarizePatterns(txs []Transaction) []PatternSummary {
	type key struct{ pattern, scenario string }
	type acc struct {
		count  int
		score  float64
		amount decimal.Decimal
	}
	groups := make(map[key]*acc)
	var order []key
	for _, tx := range txs {
		k := key{tx.PatternType, tx.Scenario}
		a, ok := groups[k]
		if !ok {
			a = &acc{amount: decimal.Zero}
			groups[k] = a
			order = append(order, k)
		}
		a.count++
		a.score += tx.SuspicionScore
		a.amount = a.amount.Add(tx.Amount)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].pattern == order[j].pattern {
			return order[i].scenario < order[j].scenario
		}
		return order[i].pattern < order[j].pattern
	})
	out := make([]PatternSummary, 0, len(order))
	for _, k := range order {
		a := groups[k]
		out = append(out, PatternSummary{
			PatternType:      k.pattern,
			Scenario:         k.scenario,
			Count:            a.count,
			AverageSuspicion: a.score / float64(a.count),
			AverageAmount:    a.amount.Div(decimal.NewFromInt(int64(a.count))).Round(2),
		})
	}
	return out
}
