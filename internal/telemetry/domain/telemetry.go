package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the oracle.
const (
	EventSessionActivated = "session_activated"
	EventReadingServed    = "reading_served"
	EventVeilClosing      = "veil_closing"
	EventSealed           = "sealed"
	EventHTTPRequest      = "http_request"
)

// Event is one telemetry record (optionally scoped to a session). It is the JSON body written to Kafka.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds an Event with a fresh id and the current UTC time. metadata is marshalled to JSON;
// values that cannot be marshalled leave Metadata empty.
func NewEvent(sessionID, eventType, source string, metadata map[string]any) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			e.Metadata = b
		}
	}
	return e
}
