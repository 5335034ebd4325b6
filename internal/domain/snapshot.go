package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NodeSnapshot is a detached copy of an AccountNode.
type NodeSnapshot struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Suspicious bool    `json:"suspicious"`
	TxCount    int     `json:"transaction_count"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// LinkSnapshot is a detached copy of a FlowLink.
type LinkSnapshot struct {
	Source        string          `json:"source"`
	Target        string          `json:"target"`
	Suspicious    bool            `json:"suspicious"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
}

// Snapshot is a point-in-time copy of the visualization state for exporters.
type Snapshot struct {
	Scenario     string         `json:"scenario"`
	TakenAt      time.Time      `json:"taken_at"`
	Transactions []Transaction  `json:"transactions"`
	NetworkNodes []NodeSnapshot `json:"network_nodes"`
	NetworkLinks []LinkSnapshot `json:"network_links"`
	Stats        Stats          `json:"stats"`
}

// NewSnapshot copies txs and the network structures so later mutation of the
// live view does not leak into the snapshot.
func NewSnapshot(scenario string, takenAt time.Time, txs []Transaction, nodes []*AccountNode, links []FlowLink) Snapshot {
	snap := Snapshot{
		Scenario:     scenario,
		TakenAt:      takenAt,
		Transactions: append([]Transaction(nil), txs...),
		NetworkNodes: make([]NodeSnapshot, 0, len(nodes)),
		NetworkLinks: make([]LinkSnapshot, 0, len(links)),
		Stats:        ComputeStats(txs),
	}
	for _, n := range nodes {
		snap.NetworkNodes = append(snap.NetworkNodes, NodeSnapshot{
			ID:         n.ID,
			Label:      n.Label,
			Suspicious: n.Suspicious,
			TxCount:    len(n.Transactions),
			X:          n.X,
			Y:          n.Y,
		})
	}
	for _, l := range links {
		snap.NetworkLinks = append(snap.NetworkLinks, LinkSnapshot{
			Source:        l.Source.Key(),
			Target:        l.Target.Key(),
			Suspicious:    l.Suspicious,
			Amount:        l.Amount,
			TransactionID: l.Transaction.ID,
		})
	}
	return snap
}
