package actors

import (
	"fritter/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// FreetScoped is implemented by every message that mutates one freet. The
// supervisor routes these to that freet's actor.
type FreetScoped interface {
	GetFreetID() uuid.UUID
}

// EventPublisher receives an event after every completed mutation.
type EventPublisher interface {
	Publish(event *models.ReputationEvent)
}

// Message types for reputation operations
type (
	ApproveMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
	}

	DisapproveMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
	}

	RetractMsg struct {
		FreetID  uuid.UUID
		ActorID  uuid.UUID
		Polarity models.Polarity
	}

	AttachLinkMsg struct {
		FreetID  uuid.UUID
		ActorID  uuid.UUID
		Polarity models.Polarity
		URL      string
	}

	DetachLinkMsg struct {
		FreetID  uuid.UUID
		ActorID  uuid.UUID
		Polarity models.Polarity
		URL      string
	}

	LikeMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
	}

	UnlikeMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
	}

	ReconcileMsg struct {
		FreetID uuid.UUID
	}
)

// Message types for freet content operations
type (
	UpdateFreetMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
		Content string
	}

	DeleteFreetMsg struct {
		FreetID uuid.UUID
		ActorID uuid.UUID
	}

	// Answered by the supervisor with the number of live freet actors.
	GetCountsMsg struct{}
)

func (m *ApproveMsg) GetFreetID() uuid.UUID     { return m.FreetID }
func (m *DisapproveMsg) GetFreetID() uuid.UUID  { return m.FreetID }
func (m *RetractMsg) GetFreetID() uuid.UUID     { return m.FreetID }
func (m *AttachLinkMsg) GetFreetID() uuid.UUID  { return m.FreetID }
func (m *DetachLinkMsg) GetFreetID() uuid.UUID  { return m.FreetID }
func (m *LikeMsg) GetFreetID() uuid.UUID        { return m.FreetID }
func (m *UnlikeMsg) GetFreetID() uuid.UUID      { return m.FreetID }
func (m *ReconcileMsg) GetFreetID() uuid.UUID   { return m.FreetID }
func (m *UpdateFreetMsg) GetFreetID() uuid.UUID { return m.FreetID }
func (m *DeleteFreetMsg) GetFreetID() uuid.UUID { return m.FreetID }

// PassivateMsg is sent by a freet actor to its supervisor when it has nothing
// left to own: the freet does not exist, was deleted, or the actor sat idle.
type PassivateMsg struct {
	FreetID uuid.UUID
	PID     *actor.PID
}
