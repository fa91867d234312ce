package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
)

type UserInteractor interface {
	CreateUser(ctx context.Context, name string, email string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

type WorkspaceInteractor interface {
	CreateWorkspace(ctx context.Context, name string, owner uuid.UUID) (*domain.Workspace, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	AddMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role domain.Role) error
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error)
}

// MembershipGate is the workspace role-authorization check re-run before
// every sensitive action. Results are never cached: roles can change
// between actions.
type MembershipGate interface {
	CheckAccess(ctx context.Context, userID, workspaceID uuid.UUID, minimum domain.Role) (domain.Role, error)
}
