package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallType string

const (
	CallDirect CallType = "1:1"
	CallGroup  CallType = "group"
)

type CallState string

const (
	CallRinging CallState = "ringing"
	CallActive  CallState = "active"
	CallEnded   CallState = "ended"
)

// CallSession is the in-memory state for one ongoing or pending call.
// A session never outlives its last participant.
type CallSession struct {
	ID           string
	Type         CallType
	State        CallState
	WorkspaceID  uuid.UUID
	Initiator    uuid.UUID
	Participants map[uuid.UUID]struct{}
	StartedAt    time.Time
}

func NewCallSession(callType CallType, state CallState, workspaceID, initiator uuid.UUID) *CallSession {
	return &CallSession{
		ID:           uuid.New().String(),
		Type:         callType,
		State:        state,
		WorkspaceID:  workspaceID,
		Initiator:    initiator,
		Participants: map[uuid.UUID]struct{}{initiator: {}},
		StartedAt:    time.Now().UTC(),
	}
}

func (c *CallSession) HasParticipant(userID uuid.UUID) bool {
	_, ok := c.Participants[userID]
	return ok
}

// AddParticipant is idempotent: re-adding an existing participant is a no-op.
func (c *CallSession) AddParticipant(userID uuid.UUID) bool {
	if c.HasParticipant(userID) {
		return false
	}
	c.Participants[userID] = struct{}{}
	return true
}

func (c *CallSession) RemoveParticipant(userID uuid.UUID) {
	delete(c.Participants, userID)
}

func (c *CallSession) Empty() bool {
	return len(c.Participants) == 0
}

// ParticipantList returns a snapshot of the participant user ids.
func (c *CallSession) ParticipantList() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for id := range c.Participants {
		ids = append(ids, id)
	}
	return ids
}
