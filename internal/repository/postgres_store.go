package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vanshika/chronos/internal/domain"
)

var dbTracer = otel.Tracer("chronos/db")

// pq error code for a missing relation.
const undefinedTable = "42P01"

// PostgresStore keeps transactions in a single relational table.
type PostgresStore struct {
	db        *sql.DB
	batchSize int
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, batchSize: defaultBatchSize}
}

// Migrate creates the transactions table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTransactionsTableSQL); err != nil {
		return fmt.Errorf("migrate transactions table: %w", err)
	}
	return nil
}

// UpsertTransactions writes txs in batches, each batch as one array-bound
// statement inside a transaction.
func (s *PostgresStore) UpsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "INSERT")
	defer span.End()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return traceErr(span, fmt.Errorf("begin upsert: %w", err))
	}
	defer func() { _ = dbtx.Rollback() }()

	for _, batch := range batches(txs, s.batchSize) {
		cols := columnsFor(batch)
		_, err := dbtx.ExecContext(ctx, upsertTransactionsSQL,
			pq.Array(cols.ids),
			pq.Array(cols.timestamps),
			pq.Array(cols.amounts),
			pq.Array(cols.from),
			pq.Array(cols.to),
			pq.Array(cols.scores),
			pq.Array(cols.scenarios),
			pq.Array(cols.patterns),
			pq.Array(cols.descriptions),
		)
		if err != nil {
			return traceErr(span, explain(fmt.Errorf("upsert %d transactions: %w", len(batch), err)))
		}
	}
	if err := dbtx.Commit(); err != nil {
		return traceErr(span, fmt.Errorf("commit upsert: %w", err))
	}
	return nil
}

// ListTransactions returns matching rows ordered by timestamp then id.
func (s *PostgresStore) ListTransactions(ctx context.Context, filter Filter) ([]domain.Transaction, error) {
	ctx, span := startSpan(ctx, "SELECT")
	defer span.End()

	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, traceErr(span, explain(fmt.Errorf("list transactions: %w", err)))
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.Timestamp, &tx.Amount, &tx.FromAccount, &tx.ToAccount,
			&tx.SuspicionScore, &tx.Scenario, &tx.PatternType, &tx.Description,
		); err != nil {
			return nil, traceErr(span, fmt.Errorf("scan transaction: %w", err))
		}
		tx.Timestamp = tx.Timestamp.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, traceErr(span, fmt.Errorf("iterate transactions: %w", err))
	}
	if filter.Newest {
		slices.Reverse(txs)
	}
	return txs, nil
}

// CountTransactions returns the table row count.
func (s *PostgresStore) CountTransactions(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, countTransactionsSQL).Scan(&total); err != nil {
		return 0, explain(fmt.Errorf("count transactions: %w", err))
	}
	return total, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type columns struct {
	ids, timestamps, amounts, from, to []string
	scenarios, patterns, descriptions  []string
	scores                             []float64
}

func columnsFor(txs []domain.Transaction) columns {
	var c columns
	for _, tx := range txs {
		c.ids = append(c.ids, tx.ID)
		c.timestamps = append(c.timestamps, formatTime(tx.Timestamp))
		c.amounts = append(c.amounts, tx.Amount.String())
		c.from = append(c.from, tx.FromAccount)
		c.to = append(c.to, tx.ToAccount)
		c.scores = append(c.scores, tx.SuspicionScore)
		c.scenarios = append(c.scenarios, tx.Scenario)
		c.patterns = append(c.patterns, tx.PatternType)
		c.descriptions = append(c.descriptions, tx.Description)
	}
	return c
}

func buildListQuery(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if s := filter.scenario(); s != "" {
		args = append(args, s)
		clauses = append(clauses, fmt.Sprintf("scenario = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.UTC())
		clauses = append(clauses, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(selectTransactionsSQL)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	args = append(args, filter.limit())
	dir := filter.direction()
	fmt.Fprintf(&b, " ORDER BY occurred_at %s, id %s LIMIT $%d", dir, dir, len(args))
	return b.String(), args
}

// explain adds a migration hint when the table is missing.
func explain(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w (run migrations first)", err)
	}
	return err
}

func startSpan(ctx context.Context, verb string) (context.Context, trace.Span) {
	return dbTracer.Start(ctx, "db."+strings.ToLower(verb), trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", verb),
		attribute.String("db.sql.table", "transactions"),
	))
}

func traceErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

const createTransactionsTableSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id               TEXT PRIMARY KEY,
    occurred_at      TIMESTAMPTZ NOT NULL,
    amount           NUMERIC(18, 2) NOT NULL,
    from_account     TEXT NOT NULL,
    to_account       TEXT NOT NULL,
    suspicious_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    scenario         TEXT NOT NULL DEFAULT 'unknown',
    pattern_type     TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transactions_scenario_idx ON transactions (scenario, occurred_at);
CREATE INDEX IF NOT EXISTS transactions_occurred_at_idx ON transactions (occurred_at);
`

const upsertTransactionsSQL = `
INSERT INTO transactions (id, occurred_at, amount, from_account, to_account, suspicious_score, scenario, pattern_type, description)
SELECT * FROM unnest($1::text[], $2::timestamptz[], $3::numeric[], $4::text[], $5::text[], $6::float8[], $7::text[], $8::text[], $9::text[])
ON CONFLICT (id) DO UPDATE SET
    occurred_at = EXCLUDED.occurred_at,
    amount = EXCLUDED.amount,
    from_account = EXCLUDED.from_account,
    to_account = EXCLUDED.to_account,
    suspicious_score = EXCLUDED.suspicious_score,
    scenario = EXCLUDED.scenario,
    pattern_type = EXCLUDED.pattern_type,
    description = EXCLUDED.description
`

const selectTransactionsSQL = `SELECT id, occurred_at, amount, from_account, to_account, suspicious_score, scenario, pattern_type, description FROM transactions`

const countTransactionsSQL = `SELECT COUNT(*) FROM transactions`
