package domain

import (
	"errors"
	"time"
)

// DefaultQuota is the number of readings a session may receive before it is sealed.
const DefaultQuota = 3

// MaxIDLength bounds client-supplied session identifiers, in bytes.
const MaxIDLength = 256

// ErrInvalidSessionID is returned when a session identifier is empty or too long.
var ErrInvalidSessionID = errors.New("session_id must be a non-empty string of at most 256 bytes")

// Session is the persisted usage record for one client-chosen session identifier.
// Count never decreases; it only changes through an atomic increment.
type Session struct {
	ID        string
	Count     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State is the lifecycle position of a session relative to its quota.
type State int

const (
	// StateUnseen means no record exists yet.
	StateUnseen State = iota
	// StateActive means the record exists and count is below the quota.
	StateActive
	// StateSealed means count has reached or passed the quota.
	StateSealed
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateActive:
		return "active"
	case StateSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// StateOf derives the lifecycle state of s for the given quota. A nil session is unseen.
func StateOf(s *Session, quota int64) State {
	if s == nil {
		return StateUnseen
	}
	if s.Count >= quota {
		return StateSealed
	}
	return StateActive
}

// ValidateID returns ErrInvalidSessionID when id is empty or longer than MaxIDLength.
// Ids are opaque: whitespace is significant and the id is used as sent.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return ErrInvalidSessionID
	}
	return nil
}
