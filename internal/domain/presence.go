package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy, PresenceOffline:
		return true
	default:
		return false
	}
}

// PresenceRecord tracks one (user, workspace) pair while the user is
// reachable. The in-memory copy is the source of truth; the stored mirror
// is best-effort.
type PresenceRecord struct {
	UserID      uuid.UUID      `json:"user_id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	Status      PresenceStatus `json:"status"`
	LastSeen    time.Time      `json:"last_seen"`
}
