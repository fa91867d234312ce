package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserEmailExists    = errors.New("user with email already exists")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrBoardNotFound      = errors.New("board not found")
	ErrPermissionNotFound = errors.New("document permission not found")
	ErrSnapshotNotFound   = errors.New("document snapshot not found")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *domain.Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error)
	AddMember(ctx context.Context, membership *domain.Membership) error
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error)
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
	SaveMessage(ctx context.Context, message *domain.ChatMessage) error
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error)
}

type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)
}

type DocumentRepository interface {
	GetPermission(ctx context.Context, documentID, userID uuid.UUID) (*domain.DocumentPermission, error)
	GrantPermission(ctx context.Context, permission *domain.DocumentPermission) error
	GetSnapshot(ctx context.Context, documentID uuid.UUID) (*domain.DocumentSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *domain.DocumentSnapshot) error
}

type PresenceRepository interface {
	Upsert(ctx context.Context, record *domain.PresenceRecord) error
}
