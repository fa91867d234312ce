package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room is a chat channel scoped to a workspace.
type Room struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewRoom(workspaceID uuid.UUID, name string) *Room {
	return &Room{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
}

// Board is a task board scoped to a workspace. Board mutations persist via
// the REST layer; the realtime relay only needs the workspace linkage.
type Board struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}
