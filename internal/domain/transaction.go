package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SuspicionLevel buckets a suspicion score for display.
type SuspicionLevel string

const (
	LevelNormal     SuspicionLevel = "normal"
	LevelSuspicious SuspicionLevel = "suspicious"
	LevelCritical   SuspicionLevel = "critical"
)

// Score thresholds shared by the views, the stats and the connection rules.
const (
	SuspiciousThreshold = 0.5
	CriticalThreshold   = 0.8
	// FlowThreshold marks a transaction as part of a suspicious flow.
	FlowThreshold = 0.7
)

// LevelForScore classifies a suspicion score. Boundaries are inclusive on the lower end.
func LevelForScore(score float64) SuspicionLevel {
	switch {
	case score >= CriticalThreshold:
		return LevelCritical
	case score >= SuspiciousThreshold:
		return LevelSuspicious
	default:
		return LevelNormal
	}
}

// Color returns the display color associated with the level.
func (l SuspicionLevel) Color() string {
	switch l {
	case LevelCritical:
		return "#ff4757"
	case LevelSuspicious:
		return "#ffa502"
	default:
		return "#00d4ff"
	}
}

// Radius returns the marker radius used by the timeline for the level.
func (l SuspicionLevel) Radius() float64 {
	switch l {
	case LevelCritical:
		return 8
	case LevelSuspicious:
		return 6
	default:
		return 4
	}
}

// Transaction is a single normalized value transfer between two accounts.
// Values are immutable once normalized; self-loops are permitted.
type Transaction struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Amount         decimal.Decimal `json:"amount"`
	FromAccount    string          `json:"from_account"`
	ToAccount      string          `json:"to_account"`
	SuspicionScore float64         `json:"suspicious_score"`
	Scenario       string          `json:"scenario"`
	PatternType    string          `json:"pattern_type"`
	Description    string          `json:"description"`
}

// Level is derived from the score on every call.
func (t Transaction) Level() SuspicionLevel {
	return LevelForScore(t.SuspicionScore)
}

// Color is the display color of the transaction's level.
func (t Transaction) Color() string {
	return t.Level().Color()
}

// IsFlagged reports whether the transaction participates in suspicious flows.
func (t Transaction) IsFlagged() bool {
	return t.SuspicionScore > FlowThreshold
}

// AmountFloat returns the amount as a float for scaling and layout math.
func (t Transaction) AmountFloat() float64 {
	f, _ := t.Amount.Float64()
	return f
}

// SortChronologically returns a copy of txs ordered by timestamp, ties broken by ID.
func SortChronologically(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
