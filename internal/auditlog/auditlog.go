// Package auditlog persists each validation call's inputs and outcome to
// Postgres for forensic replay, the verifier-side counterpart of the
// teacher's risk-assessment persistence.
package auditlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgx connection pool with the handful of queries the
// verifier needs.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool against connStr and verifies it with a
// ping before returning.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("auditlog: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("auditlog: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// schema is executed once at startup; CREATE TABLE IF NOT EXISTS keeps
// InitSchema idempotent across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS validation_records (
	id           UUID PRIMARY KEY,
	digest_kind  TEXT NOT NULL,
	observed     INTEGER NOT NULL,
	log_length   INTEGER NOT NULL,
	result       TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates the validation_records table if it does not already
// exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("auditlog: schema init: %w", err)
	}
	return nil
}

// Record is one persisted validation call.
type Record struct {
	ID         uuid.UUID
	DigestKind string
	Observed   int
	LogLength  int
	Result     string
}

// Save persists a validation record and returns its generated ID.
func (s *Store) Save(ctx context.Context, digestKind string, observed, logLength int, result string) (uuid.UUID, error) {
	id := uuid.New()
	const insertSQL = `
		INSERT INTO validation_records (id, digest_kind, observed, log_length, result)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, insertSQL, id, digestKind, observed, logLength, result); err != nil {
		return uuid.Nil, fmt.Errorf("auditlog: insert record: %w", err)
	}
	return id, nil
}

// Recent returns the limit most recently recorded validations, newest
// first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const querySQL = `
		SELECT id, digest_kind, observed, log_length, result
		FROM validation_records
		ORDER BY recorded_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, querySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.DigestKind, &r.Observed, &r.LogLength, &r.Result); err != nil {
			return nil, fmt.Errorf("auditlog: scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditlog: row iteration: %w", err)
	}
	return out, nil
}
