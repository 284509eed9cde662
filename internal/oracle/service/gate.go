package service

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"moon-oracle/backend/internal/oracle/deck"
	"moon-oracle/backend/internal/oracle/domain"
	sessiondomain "moon-oracle/backend/internal/session/domain"
	"moon-oracle/backend/internal/telemetry"
	telemetrydomain "moon-oracle/backend/internal/telemetry/domain"
)

const eventSource = "oracle"

// Counter is the session counter the gate consults and advances.
type Counter interface {
	Activate(ctx context.Context, id string) error
	Count(ctx context.Context, id string) (int64, error)
	ReadAndIncrement(ctx context.Context, id string) (int64, error)
	Quota() int64
}

// Gate decides per request whether a session gets a reading and builds it.
type Gate struct {
	counter  Counter
	cards    []deck.Card
	emitter  telemetry.EventEmitter
	outcomes metric.Int64Counter

	// mu serializes use of rnd, which may be a non-thread-safe *rand.Rand.
	mu  sync.Mutex
	rnd deck.Rand
}

// NewGate returns a Gate over the standard deck. A nil rnd uses deck.Default; a nil emitter disables events.
func NewGate(counter Counter, rnd deck.Rand, emitter telemetry.EventEmitter) *Gate {
	if rnd == nil {
		rnd = deck.Default
	}
	outcomes, err := otel.Meter("moon-oracle/oracle").Int64Counter(
		"oracle.gate.outcomes",
		metric.WithDescription("Reading gate decisions by outcome."),
	)
	if err != nil {
		log.Printf("oracle: outcome counter: %v", err)
	}
	return &Gate{
		counter:  counter,
		cards:    deck.Standard(),
		emitter:  emitter,
		outcomes: outcomes,
		rnd:      rnd,
	}
}

// Activate registers the session without consuming a reading.
func (g *Gate) Activate(ctx context.Context, id string) (*domain.Activation, error) {
	if err := sessiondomain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := g.counter.Activate(ctx, id); err != nil {
		return nil, err
	}
	g.emit(id, telemetrydomain.EventSessionActivated, nil)
	return &domain.Activation{Phrase: ActivationPhrase, Status: "ready"}, nil
}

// Read runs the gate for one request:
//   - count already at quota: veil-closing alert, nothing consumed;
//   - increment lands past quota (concurrent readers): sealed alert;
//   - otherwise draw distinct cards and narrate them.
func (g *Gate) Read(ctx context.Context, id string) (*domain.Result, error) {
	if err := sessiondomain.ValidateID(id); err != nil {
		return nil, err
	}
	quota := g.counter.Quota()

	total, err := g.counter.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	if total >= quota {
		return g.finish(ctx, id, &domain.Result{
			Outcome: domain.OutcomeVeilClosing,
			Count:   total,
			Alerts:  alert(FinalWarning),
		}), nil
	}

	current, err := g.counter.ReadAndIncrement(ctx, id)
	if err != nil {
		return nil, err
	}
	if current > quota {
		log.Printf("oracle: session %q incremented past quota (%d > %d)", id, current, quota)
		return g.finish(ctx, id, &domain.Result{
			Outcome: domain.OutcomeSealed,
			Count:   current,
			Alerts:  alert(FinalBlock(quota)),
		}), nil
	}

	g.mu.Lock()
	cards, err := deck.Draw(g.rnd, g.cards, deck.ReadingSize)
	var reading *domain.Reading
	if err == nil {
		reading = Narrate(g.rnd, cards)
	}
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return g.finish(ctx, id, &domain.Result{
		Outcome: domain.OutcomeReading,
		Count:   current,
		Reading: reading,
	}), nil
}

func (g *Gate) finish(ctx context.Context, id string, res *domain.Result) *domain.Result {
	if g.outcomes != nil {
		g.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome.String())))
	}
	eventType := telemetrydomain.EventReadingServed
	switch res.Outcome {
	case domain.OutcomeVeilClosing:
		eventType = telemetrydomain.EventVeilClosing
	case domain.OutcomeSealed:
		eventType = telemetrydomain.EventSealed
	}
	meta := map[string]any{"count": res.Count, "quota": g.counter.Quota()}
	if res.Reading != nil {
		names := make([]string, len(res.Reading.Cards))
		for i, c := range res.Reading.Cards {
			names[i] = c.Name
		}
		meta["cards"] = names
	}
	g.emit(id, eventType, meta)
	return res
}

func (g *Gate) emit(id, eventType string, meta map[string]any) {
	if g.emitter == nil {
		return
	}
	telemetry.EmitAsync(g.emitter, telemetrydomain.NewEvent(id, eventType, eventSource, meta))
}
