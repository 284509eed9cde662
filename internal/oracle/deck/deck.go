// Package deck holds the fixed oracle deck and the draw used for readings.
package deck

import (
	"errors"
	"math/rand/v2"
)

// Card is one oracle card. Field names are the JSON keys clients render.
type Card struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Meaning string `json:"meaning"`
	Whisper string `json:"whisper"`
}

// ReadingSize is the number of cards revealed in a public reading.
const ReadingSize = 3

// standard is the deck in display order. Never mutated; Standard returns a copy.
var standard = [...]Card{
	{Name: "The Moon", Symbol: "🌙", Meaning: "intuition, dreams, hidden waters", Whisper: "Trust the tide beneath the mind."},
	{Name: "The Star", Symbol: "✨", Meaning: "healing, hope, luminous guidance", Whisper: "A silver thread is guiding you home."},
	{Name: "The Tower", Symbol: "🗼", Meaning: "revelation, rupture, divine reset", Whisper: "What falls was never yours to carry."},
	{Name: "The Empress", Symbol: "🌿", Meaning: "creation, sweetness, fertile ground", Whisper: "What you tend will bloom."},
	{Name: "The Magician", Symbol: "🜂", Meaning: "will, craft, manifestation", Whisper: "As within, so without — choose and conjure."},
	{Name: "Death", Symbol: "🦋", Meaning: "transmutation, ending, sacred molt", Whisper: "Shed the husk; the wings are ready."},
	{Name: "The Lovers", Symbol: "💫", Meaning: "union, choice, mirrored flame", Whisper: "What you vow to becomes you."},
	{Name: "The Hermit", Symbol: "🕯️", Meaning: "solitude, lantern, inner path", Whisper: "Go inward; there is a door only you can open."},
}

// ErrDeckTooSmall is returned when more cards are requested than the deck holds.
var ErrDeckTooSmall = errors.New("deck: not enough cards to draw")

// Rand is the source of randomness for draws. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// globalRand uses the goroutine-safe top-level math/rand/v2 functions.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Default is safe for concurrent use. A *rand.Rand is not, so share one only under a lock.
var Default Rand = globalRand{}

// Standard returns a copy of the eight-card oracle deck.
func Standard() []Card {
	out := make([]Card, len(standard))
	copy(out, standard[:])
	return out
}

// Draw returns n distinct cards from cards in draw order, using a partial Fisher-Yates shuffle over a copy.
// Every ordered n-subset is equally likely when r is uniform. cards is not modified.
func Draw(r Rand, cards []Card, n int) ([]Card, error) {
	if n < 0 || n > len(cards) {
		return nil, ErrDeckTooSmall
	}
	if r == nil {
		r = Default
	}
	pool := make([]Card, len(cards))
	copy(pool, cards)
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n], nil
}
