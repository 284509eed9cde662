package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"moon-oracle/backend/internal/session/domain"
)

// SessionRepo is the minimal session repository needed by the counter.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	CreateIfAbsent(ctx context.Context, id string, at time.Time) error
	IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error)
}

// Counter tracks how many readings each session has consumed.
// Every operation trims the session id and rejects invalid ones with domain.ErrInvalidSessionID.
type Counter struct {
	repo      SessionRepo
	quota     int64
	now       func() time.Time
	activated metric.Int64Counter
}

// NewCounter returns a Counter over repo. A quota below 1 falls back to domain.DefaultQuota.
func NewCounter(repo SessionRepo, quota int64) *Counter {
	if quota < 1 {
		quota = domain.DefaultQuota
	}
	activated, err := otel.Meter("moon-oracle/session").Int64Counter(
		"oracle.sessions.activated",
		metric.WithDescription("Activate calls, including repeats for an existing session."),
	)
	if err != nil {
		log.Printf("session: activation counter: %v", err)
	}
	return &Counter{
		repo:      repo,
		quota:     quota,
		now:       func() time.Time { return time.Now().UTC() },
		activated: activated,
	}
}

// Quota returns the number of readings a session may receive.
func (c *Counter) Quota() int64 {
	return c.quota
}

// Activate ensures a record exists for id with count 0. Repeated calls never change an existing count.
func (c *Counter) Activate(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	if err := c.repo.CreateIfAbsent(ctx, id, c.now()); err != nil {
		return err
	}
	if c.activated != nil {
		c.activated.Add(ctx, 1)
	}
	return nil
}

// Count returns the number of readings consumed by id; 0 for a session never seen.
func (c *Counter) Count(ctx context.Context, id string) (int64, error) {
	if err := domain.ValidateID(id); err != nil {
		return 0, err
	}
	s, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, nil
	}
	return s.Count, nil
}

// State reports whether id is unseen, active or sealed under the counter's quota.
func (c *Counter) State(ctx context.Context, id string) (domain.State, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.StateUnseen, err
	}
	s, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return domain.StateUnseen, err
	}
	return domain.StateOf(s, c.quota), nil
}

// ReadAndIncrement atomically adds one reading to id (creating the record if needed) and returns the new count.
// When the store acknowledges the write without returning a record, the count is re-read; if that read also
// finds nothing the count is taken to be 1.
func (c *Counter) ReadAndIncrement(ctx context.Context, id string) (int64, error) {
	if err := domain.ValidateID(id); err != nil {
		return 0, err
	}
	s, err := c.repo.IncrementCount(ctx, id, c.now())
	if err != nil {
		return 0, err
	}
	if s != nil {
		return s.Count, nil
	}

	log.Printf("session: increment for %q returned no record; re-reading", id)
	s, err = c.repo.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("session: re-read after increment: %w", err)
	}
	if s == nil {
		return 1, nil
	}
	return s.Count, nil
}
