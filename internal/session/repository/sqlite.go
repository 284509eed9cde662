package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"moon-oracle/backend/internal/session/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    read_count INTEGER NOT NULL DEFAULT 0 CHECK (read_count >= 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`

const (
	sqliteSelectSession = `
SELECT session_id, read_count, created_at, updated_at
FROM sessions
WHERE session_id = ?`

	sqliteInsertSessionIfAbsent = `
INSERT INTO sessions (session_id, read_count, created_at, updated_at)
VALUES (?, 0, ?, ?)
ON CONFLICT(session_id) DO NOTHING`

	sqliteIncrementSession = `
INSERT INTO sessions (session_id, read_count, created_at, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    read_count = sessions.read_count + 1,
    updated_at = excluded.updated_at
RETURNING session_id, read_count, created_at, updated_at`
)

// SQLiteRepository is a single-file Repository backed by modernc.org/sqlite.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and ensures the sessions table exists.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps the upsert serialized without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// GetByID returns the session for id, or nil if not found.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSQLiteSession(r.db.QueryRowContext(ctx, sqliteSelectSession, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: get %q: %w", id, err)
	}
	return s, nil
}

// CreateIfAbsent inserts a zero-count row unless one exists.
func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, id string, at time.Time) error {
	ms := at.UTC().UnixMilli()
	if _, err := r.db.ExecContext(ctx, sqliteInsertSessionIfAbsent, id, ms, ms); err != nil {
		return fmt.Errorf("session repository: create %q: %w", id, err)
	}
	return nil
}

// IncrementCount upserts and increments in one statement.
func (r *SQLiteRepository) IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	ms := at.UTC().UnixMilli()
	s, err := scanSQLiteSession(r.db.QueryRowContext(ctx, sqliteIncrementSession, id, ms, ms))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: increment %q: %w", id, err)
	}
	return s, nil
}

// PingContext pings the database.
func (r *SQLiteRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func scanSQLiteSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var createdMs, updatedMs int64
	if err := row.Scan(&s.ID, &s.Count, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	s.CreatedAt = time.UnixMilli(createdMs).UTC()
	s.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &s, nil
}
