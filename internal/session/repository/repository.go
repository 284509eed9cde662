package repository

import (
	"context"
	"time"

	"moon-oracle/backend/internal/session/domain"
)

// CollectionName is the logical name of the session store reported by diagnostics.
const CollectionName = "session"

// Repository defines persistence for session usage counters.
// Every backend must make IncrementCount a single atomic upsert-and-increment so concurrent
// callers for the same id observe distinct, consecutive counts.
type Repository interface {
	// GetByID returns the session for id, or nil if the session has never been seen.
	// It returns an error only for store failures, not for missing records.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// CreateIfAbsent inserts a session with count 0 when none exists. Existing records are untouched.
	CreateIfAbsent(ctx context.Context, id string, at time.Time) error
	// IncrementCount creates the record at count 1 or adds 1 to its count, and returns the updated record.
	// A nil session with a nil error means the store acknowledged the write but returned no document.
	IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error)
	// PingContext reports whether the store is reachable.
	PingContext(ctx context.Context) error
	// Close releases store resources.
	Close() error
}
