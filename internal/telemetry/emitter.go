package telemetry

import (
	"context"
	"errors"

	"moon-oracle/backend/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter sends each event to every configured emitter.
type MultiEmitter struct {
	emitters []EventEmitter
}

// NewMultiEmitter returns a fan-out emitter. Nil emitters are skipped.
func NewMultiEmitter(emitters ...EventEmitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			m.emitters = append(m.emitters, e)
		}
	}
	return m
}

// Emit calls every emitter even when one fails and returns the joined errors.
func (m *MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if m == nil || event == nil {
		return nil
	}
	var errs []error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports how many emitters receive events.
func (m *MultiEmitter) Len() int {
	if m == nil {
		return 0
	}
	return len(m.emitters)
}
