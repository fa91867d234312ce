package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Level returns the ordering rank of a role; unknown roles rank below member.
func (r Role) Level() int {
	switch r {
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Owner     uuid.UUID `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

func NewWorkspace(name string, owner uuid.UUID) *Workspace {
	return &Workspace{
		ID:        uuid.New(),
		Name:      name,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
}

// Membership binds a user to a workspace with a role.
type Membership struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}
