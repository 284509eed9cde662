package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"moon-oracle/backend/internal/oracle/deck"
	"moon-oracle/backend/internal/oracle/domain"
	sessiondomain "moon-oracle/backend/internal/session/domain"
	"moon-oracle/backend/internal/session/repository"
	sessionservice "moon-oracle/backend/internal/session/service"
	telemetrydomain "moon-oracle/backend/internal/telemetry/domain"
)

// eventRecorder collects emitted events; Emit is called from EmitAsync goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []*telemetrydomain.Event
}

func (r *eventRecorder) Emit(ctx context.Context, e *telemetrydomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) waitFor(t *testing.T, n int) []*telemetrydomain.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		r.mu.Lock()
		got := append([]*telemetrydomain.Event(nil), r.events...)
		r.mu.Unlock()
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// stubCounter returns canned counts to reach the race-only branch.
type stubCounter struct {
	count, next int64
	quota       int64
	countErr    error
	incErr      error
	incCalls    int
}

func (s *stubCounter) Activate(ctx context.Context, id string) error { return nil }
func (s *stubCounter) Count(ctx context.Context, id string) (int64, error) {
	return s.count, s.countErr
}
func (s *stubCounter) ReadAndIncrement(ctx context.Context, id string) (int64, error) {
	s.incCalls++
	return s.next, s.incErr
}
func (s *stubCounter) Quota() int64 {
	if s.quota > 0 {
		return s.quota
	}
	return sessiondomain.DefaultQuota
}

func newMemoryGate(t *testing.T, seed uint64) (*Gate, *sessionservice.Counter, *eventRecorder) {
	t.Helper()
	counter := sessionservice.NewCounter(repository.NewMemoryRepository(), sessiondomain.DefaultQuota)
	rec := &eventRecorder{}
	return NewGate(counter, rand.New(rand.NewPCG(seed, seed+1)), rec), counter, rec
}

func TestGate_QuotaScenario(t *testing.T) {
	ctx := context.Background()
	g, counter, _ := newMemoryGate(t, 1)

	if _, err := g.Activate(ctx, "X"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	for i := 1; i <= 3; i++ {
		res, err := g.Read(ctx, "X")
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if res.Outcome != domain.OutcomeReading || res.Reading == nil {
			t.Fatalf("Read %d outcome = %v, want reading", i, res.Outcome)
		}
		if res.Count != int64(i) {
			t.Errorf("Read %d count = %d", i, res.Count)
		}
		if len(res.Reading.Cards) != 3 {
			t.Errorf("Read %d returned %d cards", i, len(res.Reading.Cards))
		}
	}
	for i := 0; i < 2; i++ {
		res, err := g.Read(ctx, "X")
		if err != nil {
			t.Fatalf("Read after quota: %v", err)
		}
		if res.Outcome != domain.OutcomeVeilClosing {
			t.Fatalf("outcome = %v, want veil_closing", res.Outcome)
		}
		if len(res.Alerts) != 1 || res.Alerts[0].Name != "alert" || res.Alerts[0].Description != FinalWarning {
			t.Errorf("alerts = %+v", res.Alerts)
		}
		if res.Reading != nil {
			t.Error("veil closing must not carry a reading")
		}
	}
	if n, _ := counter.Count(ctx, "X"); n != 3 {
		t.Errorf("count after refusals = %d, want 3 (refusals do not consume)", n)
	}
}

func TestGate_ReadWithoutActivate(t *testing.T) {
	g, counter, _ := newMemoryGate(t, 2)
	res, err := g.Read(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Outcome != domain.OutcomeReading {
		t.Errorf("outcome = %v, want reading", res.Outcome)
	}
	if n, _ := counter.Count(context.Background(), "fresh"); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestGate_ActivateDoesNotReset(t *testing.T) {
	ctx := context.Background()
	g, counter, _ := newMemoryGate(t, 3)
	for i := 0; i < 2; i++ {
		if _, err := g.Read(ctx, "Y"); err != nil {
			t.Fatal(err)
		}
	}
	act, err := g.Activate(ctx, "Y")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if act.Phrase != ActivationPhrase || act.Status != "ready" {
		t.Errorf("activation = %+v", act)
	}
	if n, _ := counter.Count(ctx, "Y"); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestGate_SealedBranch(t *testing.T) {
	stub := &stubCounter{count: 2, next: 4}
	g := NewGate(stub, nil, nil)
	res, err := g.Read(context.Background(), "racer")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Outcome != domain.OutcomeSealed {
		t.Fatalf("outcome = %v, want sealed", res.Outcome)
	}
	if len(res.Alerts) != 1 || res.Alerts[0].Description != FinalBlock(3) {
		t.Errorf("alerts = %+v", res.Alerts)
	}
}

func TestGate_SealedCopyNamesQuota(t *testing.T) {
	stub := &stubCounter{count: 4, next: 6, quota: 5}
	res, err := NewGate(stub, nil, nil).Read(context.Background(), "racer")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Outcome != domain.OutcomeSealed {
		t.Fatalf("outcome = %v, want sealed", res.Outcome)
	}
	if got := res.Alerts[0].Description; !strings.Contains(got, "sealed after 5 visions") {
		t.Errorf("description = %q", got)
	}
}

func TestGate_ExactlyAtQuotaIsServed(t *testing.T) {
	stub := &stubCounter{count: 2, next: 3}
	res, err := NewGate(stub, nil, nil).Read(context.Background(), "edge")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != domain.OutcomeReading {
		t.Errorf("outcome = %v, want reading for the third vision", res.Outcome)
	}
}

func TestGate_PreCheckSkipsIncrement(t *testing.T) {
	stub := &stubCounter{count: 7}
	res, err := NewGate(stub, nil, nil).Read(context.Background(), "done")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != domain.OutcomeVeilClosing {
		t.Errorf("outcome = %v", res.Outcome)
	}
	if stub.incCalls != 0 {
		t.Errorf("ReadAndIncrement called %d times, want 0", stub.incCalls)
	}
}

func TestGate_Errors(t *testing.T) {
	storeErr := errors.New("down")
	ctx := context.Background()

	if _, err := NewGate(&stubCounter{countErr: storeErr}, nil, nil).Read(ctx, "s"); !errors.Is(err, storeErr) {
		t.Errorf("count failure: err = %v", err)
	}
	if _, err := NewGate(&stubCounter{incErr: storeErr}, nil, nil).Read(ctx, "s"); !errors.Is(err, storeErr) {
		t.Errorf("increment failure: err = %v", err)
	}
	if _, err := NewGate(&stubCounter{}, nil, nil).Read(ctx, ""); !errors.Is(err, sessiondomain.ErrInvalidSessionID) {
		t.Errorf("empty id: err = %v", err)
	}
	if _, err := NewGate(&stubCounter{}, nil, nil).Activate(ctx, ""); !errors.Is(err, sessiondomain.ErrInvalidSessionID) {
		t.Errorf("blank activate: err = %v", err)
	}
}

func TestGate_WhitespaceIsSignificant(t *testing.T) {
	ctx := context.Background()
	g, counter, _ := newMemoryGate(t, 4)
	for i := 0; i < 3; i++ {
		if _, err := g.Read(ctx, "abc"); err != nil {
			t.Fatal(err)
		}
	}
	res, err := g.Read(ctx, "  abc\t")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != domain.OutcomeReading {
		t.Errorf("padded id outcome = %v, want reading", res.Outcome)
	}
	if n, _ := counter.Count(ctx, "  abc\t"); n != 1 {
		t.Errorf("count for padded id = %d, want 1", n)
	}
	if n, _ := counter.Count(ctx, "abc"); n != 3 {
		t.Errorf("count for abc = %d, want 3", n)
	}
	if _, err := g.Read(ctx, "   "); err != nil {
		t.Errorf("whitespace-only id: %v", err)
	}
}

func TestGate_EmitsEvents(t *testing.T) {
	ctx := context.Background()
	g, _, rec := newMemoryGate(t, 5)
	if _, err := g.Activate(ctx, "E"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := g.Read(ctx, "E"); err != nil {
			t.Fatal(err)
		}
	}
	events := rec.waitFor(t, 5)
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	counts := make(map[string]int)
	for _, e := range events {
		if e.SessionID != "E" || e.Source != "oracle" {
			t.Errorf("event = %+v", e)
		}
		counts[e.EventType]++
	}
	want := map[string]int{
		telemetrydomain.EventSessionActivated: 1,
		telemetrydomain.EventReadingServed:    3,
		telemetrydomain.EventVeilClosing:      1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s events = %d, want %d", k, counts[k], v)
		}
	}
}

func TestGate_ConcurrentReadsNeverExceedQuota(t *testing.T) {
	const readers = 20
	g, counter, _ := newMemoryGate(t, 6)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[domain.Outcome]int)
	)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := g.Read(context.Background(), "crowd")
			if err != nil {
				t.Errorf("Read: %v", err)
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if outcomes[domain.OutcomeReading] != 3 {
		t.Errorf("readings served = %d, want exactly 3 (outcomes %v)", outcomes[domain.OutcomeReading], outcomes)
	}
	if total := outcomes[domain.OutcomeReading] + outcomes[domain.OutcomeVeilClosing] + outcomes[domain.OutcomeSealed]; total != readers {
		t.Errorf("outcomes %v do not add up to %d", outcomes, readers)
	}
	if n, _ := counter.Count(context.Background(), "crowd"); n < 3 {
		t.Errorf("final count = %d, want >= 3", n)
	}
}

func TestGate_ReadingCardsFromDeck(t *testing.T) {
	g, _, _ := newMemoryGate(t, 7)
	valid := make(map[deck.Card]bool)
	for _, c := range deck.Standard() {
		valid[c] = true
	}
	for i := 0; i < 3; i++ {
		res, err := g.Read(context.Background(), "deck-check")
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range res.Reading.Cards {
			if !valid[c] {
				t.Errorf("card %+v not in deck", c)
			}
		}
		if !strings.HasPrefix(res.Reading.Message, "child of the Moon, hear me: ") &&
			!strings.HasPrefix(res.Reading.Message, "soul in crossing, hear me: ") {
			t.Errorf("message starts %q", res.Reading.Message[:30])
		}
		if res.Reading.CTA != CTA || res.Reading.CTASub != CTASub {
			t.Errorf("cta = %q / %q", res.Reading.CTA, res.Reading.CTASub)
		}
	}
}
