package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
)

type WorkspaceService struct {
	workspaces repository.WorkspaceRepository
	gate       MembershipGate
	log        *slog.Logger
}

func NewWorkspaceService(workspaces repository.WorkspaceRepository, gate MembershipGate, log *slog.Logger) *WorkspaceService {
	if log == nil {
		log = slog.Default()
	}
	return &WorkspaceService{workspaces: workspaces, gate: gate, log: log}
}

func (s *WorkspaceService) CreateWorkspace(ctx context.Context, name string, owner uuid.UUID) (*domain.Workspace, error) {
	const op = "service.workspace.create"
	log := s.log.With(slog.String("op", op))

	if name == "" {
		return nil, errors.New("workspace name is required")
	}
	if owner == uuid.Nil {
		return nil, errors.New("owner is required")
	}

	workspace := domain.NewWorkspace(name, owner)
	if err := s.workspaces.Create(ctx, workspace); err != nil {
		return nil, err
	}

	log.Info("workspace created",
		slog.String("workspace_id", workspace.ID.String()),
		slog.String("owner", owner.String()),
	)
	return workspace, nil
}

func (s *WorkspaceService) GetWorkspace(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	return s.workspaces.GetByID(ctx, id)
}

// AddMember requires the actor to hold at least the admin role.
func (s *WorkspaceService) AddMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role domain.Role) error {
	if role == "" {
		role = domain.RoleMember
	}
	if role.Level() == 0 {
		return errors.New("unknown role: " + string(role))
	}

	if _, err := s.gate.CheckAccess(ctx, actorID, workspaceID, domain.RoleAdmin); err != nil {
		return err
	}

	return s.workspaces.AddMember(ctx, &domain.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	})
}

func (s *WorkspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	return s.workspaces.ListMembers(ctx, workspaceID)
}
