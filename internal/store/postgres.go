package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmirror/todoist-notion-sync/internal/sync"
)

// schemaSQL is embedded so the service can self-bootstrap its audit schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable audit trail of processed webhook events.
// The mirror itself lives in Notion; this store only records what the
// engine decided and how it ended, so operators can answer "what happened
// to event X" without the source's delivery logs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// RecordOutcome appends one audit row. Duplicate processing ids are
// ignored, so a retried audit write stays idempotent.
func (p *PostgresStore) RecordOutcome(ctx context.Context, e sync.AuditEntry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sync_audit(processing_id, event_name, identity, table_name, action, status, detail, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (processing_id) DO NOTHING
	`, e.ProcessingID, e.EventName, e.Identity, e.Table, e.Action, e.Status, e.Detail, e.OccurredAt)
	return err
}

// StatusCounts returns outcome counts grouped by status for the window
// [from,to). A half-open interval avoids double counting at boundaries.
func (p *PostgresStore) StatusCounts(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM sync_audit
		WHERE occurred_at >= $1
		  AND occurred_at <  $2
		GROUP BY status
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// History returns the audit trail for one identity, most recent first.
func (p *PostgresStore) History(ctx context.Context, identity string, limit int) ([]sync.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT processing_id, event_name, identity, table_name, action, status, detail, occurred_at
		FROM sync_audit
		WHERE identity = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []sync.AuditEntry
	for rows.Next() {
		var e sync.AuditEntry
		if err := rows.Scan(&e.ProcessingID, &e.EventName, &e.Identity, &e.Table, &e.Action, &e.Status, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
