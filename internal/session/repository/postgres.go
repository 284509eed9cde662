package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moon-oracle/backend/internal/session/domain"
)

const (
	pgSelectSession = `
SELECT session_id, read_count, created_at, updated_at
FROM sessions
WHERE session_id = $1`

	pgInsertSessionIfAbsent = `
INSERT INTO sessions (session_id, read_count, created_at, updated_at)
VALUES ($1, 0, $2, $2)
ON CONFLICT (session_id) DO NOTHING`

	pgIncrementSession = `
INSERT INTO sessions (session_id, read_count, created_at, updated_at)
VALUES ($1, 1, $2, $2)
ON CONFLICT (session_id) DO UPDATE
SET read_count = sessions.read_count + 1,
    updated_at = EXCLUDED.updated_at
RETURNING session_id, read_count, created_at, updated_at`
)

// PostgresRepository persists sessions in the sessions table created by the embedded migrations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, pgSelectSession, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: get %q: %w", id, err)
	}
	return s, nil
}

// CreateIfAbsent inserts a zero-count row; a conflicting row is left as is.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, pgInsertSessionIfAbsent, id, at.UTC()); err != nil {
		return fmt.Errorf("session repository: create %q: %w", id, err)
	}
	return nil
}

// IncrementCount runs a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING, which Postgres executes atomically per row.
func (r *PostgresRepository) IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, pgIncrementSession, id, at.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: increment %q: %w", id, err)
	}
	return s, nil
}

// PingContext pings the database.
func (r *PostgresRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.Count, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
