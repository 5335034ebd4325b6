package domain

import "github.com/shopspring/decimal"

// AccountNode is one distinct account in the relationship network.
type AccountNode struct {
	ID           string
	Label        string
	Transactions []Transaction
	Suspicious   bool

	X, Y   float64
	VX, VY float64
	// FX and FY pin the node when non-nil.
	FX, FY *float64

	Opacity float64
}

// Endpoint references a link end either by raw account ID or by a resolved node.
type Endpoint struct {
	ID   string
	Node *AccountNode
}

// Key returns the account ID regardless of representation.
func (e Endpoint) Key() string {
	if e.Node != nil {
		return e.Node.ID
	}
	return e.ID
}

// Resolved reports whether the endpoint points at a node.
func (e Endpoint) Resolved() bool {
	return e.Node != nil
}

// FlowLink is a directed edge created for every transaction.
type FlowLink struct {
	Source      Endpoint
	Target      Endpoint
	Suspicious  bool
	Amount      decimal.Decimal
	Transaction Transaction
	Opacity     float64
}

// Touches reports whether either end of the link is the given account.
func (l FlowLink) Touches(id string) bool {
	return l.Source.Key() == id || l.Target.Key() == id
}

// Default opacities used when nothing is selected.
const (
	NodeOpacity = 1.0
	LinkOpacity = 0.6
)

// NodeLabel shortens an account ID for display.
func NodeLabel(id string) string {
	const keep = 8
	r := []rune(id)
	if len(r) <= keep {
		return id + "..."
	}
	return string(r[:keep]) + "..."
}

// BuildNetwork derives one node per distinct account, in order of first appearance,
// and one unresolved link per transaction.
func BuildNetwork(txs []Transaction) ([]*AccountNode, []FlowLink) {
	index := make(map[string]*AccountNode)
	nodes := make([]*AccountNode, 0)

	touch := func(id string, tx Transaction) {
		node, ok := index[id]
		if !ok {
			node = &AccountNode{ID: id, Label: NodeLabel(id), Opacity: NodeOpacity}
			index[id] = node
			nodes = append(nodes, node)
		}
		node.Transactions = append(node.Transactions, tx)
		if tx.IsFlagged() {
			node.Suspicious = true
		}
	}

	links := make([]FlowLink, 0, len(txs))
	for _, tx := range txs {
		touch(tx.FromAccount, tx)
		if tx.ToAccount != tx.FromAccount {
			touch(tx.ToAccount, tx)
		}
		links = append(links, FlowLink{
			Source:      Endpoint{ID: tx.FromAccount},
			Target:      Endpoint{ID: tx.ToAccount},
			Suspicious:  tx.IsFlagged(),
			Amount:      tx.Amount,
			Transaction: tx,
			Opacity:     LinkOpacity,
		})
	}
	return nodes, links
}

// IsConnected reports whether a link exists between a and b in either direction.
// Endpoints may be raw IDs or resolved nodes.
func IsConnected(links []FlowLink, a, b string) bool {
	for _, l := range links {
		s, t := l.Source.Key(), l.Target.Key()
		if (s == a && t == b) || (s == b && t == a) {
			return true
		}
	}
	return false
}
