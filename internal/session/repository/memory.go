package repository

import (
	"context"
	"sync"
	"time"

	"moon-oracle/backend/internal/session/domain"
)

// MemoryRepository is an in-process Repository. State is lost on restart; use for development and tests.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Session)}
}

// GetByID returns a copy of the stored session, or nil if absent.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// CreateIfAbsent stores a zero-count session for id unless one exists.
func (r *MemoryRepository) CreateIfAbsent(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; ok {
		return nil
	}
	r.m[id] = domain.Session{ID: id, Count: 0, CreatedAt: at, UpdatedAt: at}
	return nil
}

// IncrementCount adds 1 to the session count under the repository lock, creating it if needed.
func (r *MemoryRepository) IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		s = domain.Session{ID: id, CreatedAt: at}
	}
	s.Count++
	s.UpdatedAt = at
	r.m[id] = s
	return &s, nil
}

// PingContext always succeeds.
func (r *MemoryRepository) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
