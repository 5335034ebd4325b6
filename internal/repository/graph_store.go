package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/graph"
)

// GraphStore keeps accounts and transactions as a property graph:
// (:Account)-[:SENT]->(:Transaction)-[:RECEIVED_BY]->(:Account).
type GraphStore struct {
	client    graph.Client
	batchSize int
}

// NewGraphStore wraps client.
func NewGraphStore(client graph.Client) *GraphStore {
	return &GraphStore{client: client, batchSize: defaultBatchSize}
}

// EnsureSchema creates the uniqueness constraints the upsert relies on.
func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := s.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// UpsertTransactions merges txs in batches. Account edges are replaced so a
// re-ingested transaction never keeps stale endpoints.
func (s *GraphStore) UpsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	for _, batch := range batches(txs, s.batchSize) {
		rows := make([]map[string]any, 0, len(batch))
		for _, tx := range batch {
			rows = append(rows, transactionParams(tx))
		}
		if _, err := s.client.ExecuteWrite(ctx, upsertTransactionsCypher, map[string]any{"rows": rows}); err != nil {
			return fmt.Errorf("upsert %d transactions: %w", len(batch), err)
		}
	}
	return nil
}

// ListTransactions returns matching transactions in chronological order.
func (s *GraphStore) ListTransactions(ctx context.Context, filter Filter) ([]domain.Transaction, error) {
	params := map[string]any{
		"scenario": filter.scenario(),
		"since":    formatTime(filter.Since),
		"until":    formatTime(filter.Until),
		"limit":    filter.limit(),
	}
	res, err := s.client.ExecuteRead(ctx, listTransactionsCypher(filter), params)
	if err != nil {
		return nil, fmt.Errorf("list transactions query: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(res.Records))
	for _, record := range res.Records {
		tx, err := transactionFromRecord(record)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if filter.Newest {
		slices.Reverse(txs)
	}
	return txs, nil
}

// CountTransactions returns the number of stored transactions.
func (s *GraphStore) CountTransactions(ctx context.Context) (int64, error) {
	res, err := s.client.ExecuteRead(ctx, countTransactionsCypher, nil)
	if err != nil {
		return 0, fmt.Errorf("count transactions query: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return res.Records[0].Int("total")
}

// Ping verifies the graph is reachable.
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

func transactionParams(tx domain.Transaction) map[string]any {
	return map[string]any{
		"id":              tx.ID,
		"timestamp":       formatTime(tx.Timestamp),
		"amount":          tx.Amount.String(),
		"fromAccount":     tx.FromAccount,
		"toAccount":       tx.ToAccount,
		"suspiciousScore": tx.SuspicionScore,
		"scenario":        tx.Scenario,
		"patternType":     tx.PatternType,
		"description":     tx.Description,
	}
}

func transactionFromRecord(record graph.Record) (domain.Transaction, error) {
	id := record.String("id")
	ts, err := record.Time("timestamp")
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	amount, err := decimal.NewFromString(record.String("amount"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: amount: %w", id, err)
	}
	score, err := record.Float("suspiciousScore")
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	return domain.Transaction{
		ID:             id,
		Timestamp:      ts,
		Amount:         amount,
		FromAccount:    record.String("fromAccount"),
		ToAccount:      record.String("toAccount"),
		SuspicionScore: score,
		Scenario:       record.String("scenario"),
		PatternType:    record.String("patternType"),
		Description:    record.String("description"),
	}, nil
}

var schemaCypher = []string{
	`CREATE CONSTRAINT account_id IF NOT EXISTS FOR (a:Account) REQUIRE a.id IS UNIQUE`,
	`CREATE CONSTRAINT transaction_id IF NOT EXISTS FOR (t:Transaction) REQUIRE t.id IS UNIQUE`,
	`CREATE INDEX transaction_scenario IF NOT EXISTS FOR (t:Transaction) ON (t.scenario)`,
}

const upsertTransactionsCypher = `
UNWIND $rows AS row
MERGE (t:Transaction {id: row.id})
SET t.timestamp = datetime(row.timestamp),
    t.amount = row.amount,
    t.suspiciousScore = row.suspiciousScore,
    t.scenario = row.scenario,
    t.patternType = row.patternType,
    t.description = row.description
WITH t, row
OPTIONAL MATCH (t)-[old:SENT|RECEIVED_BY]-(:Account)
DELETE old
WITH DISTINCT t, row
MERGE (src:Account {id: row.fromAccount})
MERGE (dst:Account {id: row.toAccount})
MERGE (src)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(dst)
`

func listTransactionsCypher(filter Filter) string {
	dir := filter.direction()
	return fmt.Sprintf(listTransactionsTemplate, dir, dir)
}

const listTransactionsTemplate = `
MATCH (src:Account)-[:SENT]->(t:Transaction)-[:RECEIVED_BY]->(dst:Account)
WHERE ($scenario = '' OR t.scenario = $scenario)
  AND ($since = '' OR t.timestamp >= datetime($since))
  AND ($until = '' OR t.timestamp <= datetime($until))
RETURN t.id AS id,
       t.timestamp AS timestamp,
       t.amount AS amount,
       src.id AS fromAccount,
       dst.id AS toAccount,
       t.suspiciousScore AS suspiciousScore,
       t.scenario AS scenario,
       t.patternType AS patternType,
       t.description AS description
ORDER BY t.timestamp %s, t.id %s
LIMIT $limit
`

const countTransactionsCypher = `
MATCH (t:Transaction)
RETURN count(t) AS total
`
