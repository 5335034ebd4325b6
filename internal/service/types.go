package service

import (
	"time"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
)

// TimelineQuery selects the transactions served to the timeline.
type TimelineQuery struct {
	Scenario  string
	TimeRange string
	Limit     int
}

// Timeline is a chronologically ordered slice with its summary.
type Timeline struct {
	Transactions []domain.Transaction
	Summary      Summary
	Stats        domain.Stats
}

// Summary mirrors the summary block of the timeline payload.
type Summary struct {
	TotalTransactions int         `json:"total_transactions"`
	SuspiciousCount   int         `json:"suspicious_count"`
	AmountRange       AmountRange `json:"amount_range"`
}

// AmountRange bounds the amounts of a timeline.
type AmountRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Health reports store reachability.
type Health struct {
	Store        string `json:"store"`
	Reachable    bool   `json:"reachable"`
	Transactions int64  `json:"transactions"`
	Error        string `json:"error,omitempty"`
}

// ToRecord converts tx to the wire shape served by the API.
func ToRecord(tx domain.Transaction) generator.Record {
	return generator.Record{
		ID:              tx.ID,
		Timestamp:       tx.Timestamp.UTC().Format(time.RFC3339),
		FromAccount:     tx.FromAccount,
		ToAccount:       tx.ToAccount,
		Amount:          tx.AmountFloat(),
		SuspiciousScore: tx.SuspicionScore,
		PatternType:     tx.PatternType,
		Scenario:        tx.Scenario,
		Description:     tx.Description,
	}
}

// ToRecords converts a slice.
func ToRecords(txs []domain.Transaction) []generator.Record {
	out := make([]generator.Record, len(txs))
	for i, tx := range txs {
		out[i] = ToRecord(tx)
	}
	return out
}

// FromGenerated turns generator output into raw records for Normalize.
func FromGenerated(records []generator.Record) []RawRecord {
	out := make([]RawRecord, len(records))
	for i, r := range records {
		out[i] = RawRecord{
			"id":               r.ID,
			"timestamp":        r.Timestamp,
			"from_account":     r.FromAccount,
			"to_account":       r.ToAccount,
			"amount":           r.Amount,
			"suspicious_score": r.SuspiciousScore,
			"pattern_type":     r.PatternType,
			"scenario":         r.Scenario,
			"description":      r.Description,
		}
	}
	return out
}

func summarize(txs []domain.Transaction) Summary {
	s := Summary{TotalTransactions: len(txs)}
	for i, tx := range txs {
		if tx.SuspicionScore > domain.SuspiciousThreshold {
			s.SuspiciousCount++
		}
		amount := tx.AmountFloat()
		if i == 0 || amount < s.AmountRange.Min {
			s.AmountRange.Min = amount
		}
		if amount > s.AmountRange.Max {
			s.AmountRange.Max = amount
		}
	}
	return s
}
