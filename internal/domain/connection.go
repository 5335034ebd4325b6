package domain

import "math"

// Connection joins two consecutive timeline transactions that form a flow:
// the first is flagged and its recipient is the sender of the next. Suspicion
// is the higher of the two scores.
type Connection struct {
	Source      Transaction
	Target      Transaction
	SourceIndex int
	TargetIndex int
	Suspicion   float64
}

// BuildConnections expects txs in timeline order.
func BuildConnections(txs []Transaction) []Connection {
	var out []Connection
	for i := 0; i+1 < len(txs); i++ {
		cur, next := txs[i], txs[i+1]
		if !cur.IsFlagged() || cur.ToAccount != next.FromAccount {
			continue
		}
		out = append(out, Connection{
			Source:      cur,
			Target:      next,
			SourceIndex: i,
			TargetIndex: i + 1,
			Suspicion:   math.Max(cur.SuspicionScore, next.SuspicionScore),
		})
	}
	return out
}
