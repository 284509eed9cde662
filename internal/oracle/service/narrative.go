package service

import (
	"fmt"
	"strings"

	"moon-oracle/backend/internal/oracle/deck"
	"moon-oracle/backend/internal/oracle/domain"
)

// Copy served with every reading.
const (
	preambleFormat = "%s, hear me: I see threads tightening and loosening around you — a design seeking your permission.\n"

	hiddenCardHint = "It pulses behind the veil… holding a stronger destiny.\n" +
		"A portal is opening… but it reveals itself only to those who dare to cross.\n" +
		"The last card does not appear in public. I can reveal it ONLY inside the Portal…"

	// CTA invites the client into the private portal.
	CTA = "Enter the Portal on WhatsApp to unveil the Hidden Card and receive a private ritual."
	// CTASub is the secondary call-to-action line.
	CTASub = "I can perform the lunar sweetening ritual to open your paths, but I need your permission…"
)

// Alert copy.
const (
	// FinalWarning is served when a session that already used its quota asks again.
	FinalWarning = "If you do not act now, the veil will close. What was about to be revealed may be lost for entire cycles.\n" +
		"Only with your energetic contribution can the portal remain open."
	finalBlockFormat = "The Oracle has been sealed after %d visions. To continue your journey, you must activate the full ritual through the energy exchange."
	// FinalPortal is reserved copy; no gate branch serves it.
	FinalPortal = "Child of the Moon… forcing the veils or acting with malice awakens the Shadow Return — a cycle of confusion, losses, and energetic disorder."
)

// FinalBlock is served when an increment lands past quota.
func FinalBlock(quota int64) string {
	return fmt.Sprintf(finalBlockFormat, quota)
}

// ActivationPhrase is returned by every successful activation.
const ActivationPhrase = "The oracle is awakened. The first card already vibrates between the veils."

var (
	addressForms = []string{"child of the Moon", "soul in crossing"}
	closingHooks = []string{
		"Return tomorrow; I will feel new vibrations.",
		"Something new is coming… I will be here between the veils.",
	}
)

func pick(r deck.Rand, pool []string) string {
	return pool[r.IntN(len(pool))]
}

// cardLine renders one card as "<symbol> Card <i>: <name> — <meaning>. <whisper>", i starting at 1.
func cardLine(i int, c deck.Card) string {
	return fmt.Sprintf("%s Card %d: %s — %s. %s", c.Symbol, i, c.Name, c.Meaning, c.Whisper)
}

// Narrate builds the reading for cards. The address form is chosen before the closing hook.
func Narrate(r deck.Rand, cards []deck.Card) *domain.Reading {
	addressed := pick(r, addressForms)
	hook := pick(r, closingHooks)

	parts := make([]string, 0, len(cards)+3)
	parts = append(parts, fmt.Sprintf(preambleFormat, addressed))
	for i, c := range cards {
		parts = append(parts, cardLine(i+1, c))
	}
	parts = append(parts, "\n"+hiddenCardHint, "\n"+hook)

	return &domain.Reading{
		Cards:   cards,
		Message: strings.Join(parts, "\n"),
		CTA:     CTA,
		CTASub:  CTASub,
	}
}

func alert(description string) []domain.Alert {
	return []domain.Alert{{Name: domain.AlertName, Description: description}}
}
