package models

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is a persisted like, approval or disapproval of a freet by a user.
type Reaction struct {
	ID        uuid.UUID    `json:"id"`
	Kind      ReactionKind `json:"kind"`
	UserID    uuid.UUID    `json:"userId"`
	FreetID   uuid.UUID    `json:"freetId"`
	CreatedAt time.Time    `json:"createdAt"`
}

// EvidenceLink is the ledger entry for one url under one polarity on a freet.
type EvidenceLink struct {
	ID       uuid.UUID   `json:"id"`
	FreetID  uuid.UUID   `json:"freetId"`
	Polarity Polarity    `json:"polarity"`
	URL      string      `json:"url"`
	Count    int         `json:"count"`
	Users    []uuid.UUID `json:"users"` // ordered set of contributors
}

// HasUser reports whether user is among the contributors.
func (l *EvidenceLink) HasUser(user uuid.UUID) bool {
	for _, u := range l.Users {
		if u == user {
			return true
		}
	}
	return false
}

// ReputationSummary is returned by approve, disapprove, retract, like and unlike.
type ReputationSummary struct {
	FreetID     uuid.UUID `json:"freetId"`
	Likes       int       `json:"likes"`
	Approves    int       `json:"approves"`
	Disapproves int       `json:"disapproves"`
	Polarity    Polarity  `json:"polarity,omitempty"`
}

// ReactionState describes what one actor currently holds on a freet.
type ReactionState struct {
	FreetID  uuid.UUID `json:"freetId"`
	Liked    bool      `json:"liked"`
	Polarity Polarity  `json:"polarity,omitempty"`
	Links    []string  `json:"links"`
}

// LinkResult is returned by AttachLink and DetachLink; Count is the ledger
// count after the operation (zero once the entry has been removed).
type LinkResult struct {
	FreetID  uuid.UUID `json:"freetId"`
	Polarity Polarity  `json:"polarity"`
	URL      string    `json:"url"`
	Count    int       `json:"count"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ReputationEvent is pushed to websocket subscribers after a completed mutation.
type ReputationEvent struct {
	Type      string             `json:"type"`
	FreetID   uuid.UUID          `json:"freetId"`
	ActorID   uuid.UUID          `json:"actorId"`
	Polarity  Polarity           `json:"polarity,omitempty"`
	URL       string             `json:"url,omitempty"`
	Count     int                `json:"count,omitempty"`
	Summary   *ReputationSummary `json:"summary,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
