package domain

import "moon-oracle/backend/internal/oracle/deck"

// Outcome is the branch the reading gate took for a request.
type Outcome int

const (
	// OutcomeReading means a full reading was served and one unit of quota consumed.
	OutcomeReading Outcome = iota
	// OutcomeVeilClosing means the session had already used its quota; nothing was consumed.
	OutcomeVeilClosing
	// OutcomeSealed means the increment itself overshot the quota (concurrent readers).
	OutcomeSealed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReading:
		return "reading"
	case OutcomeVeilClosing:
		return "veil_closing"
	case OutcomeSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// AlertName is the name of every alert item.
const AlertName = "alert"

// Alert is the single element of the list returned when no reading is served.
type Alert struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Reading is a served reading: the drawn cards, the narrative and the call-to-action copy.
type Reading struct {
	Cards   []deck.Card `json:"cards"`
	Message string      `json:"message"`
	CTA     string      `json:"cta"`
	CTASub  string      `json:"cta_sub"`
}

// Result is the gate's answer. Exactly one of Reading or Alerts is set, matching Outcome.
type Result struct {
	Outcome Outcome
	Count   int64
	Reading *Reading
	Alerts  []Alert
}

// Body returns the JSON response body: the Reading object, or the alert list.
func (r *Result) Body() any {
	if r.Reading != nil {
		return r.Reading
	}
	return r.Alerts
}

// Activation is the response to a session activation.
type Activation struct {
	Phrase string `json:"phrase"`
	Status string `json:"status"`
}
