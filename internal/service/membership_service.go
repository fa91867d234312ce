package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
)

var ErrAccessDenied = errors.New("access denied")

type MembershipService struct {
	workspaces repository.WorkspaceRepository
}

func NewMembershipService(workspaces repository.WorkspaceRepository) *MembershipService {
	return &MembershipService{workspaces: workspaces}
}

// CheckAccess resolves the user's role in the workspace and denies when no
// membership exists or the role ranks below the minimum.
func (s *MembershipService) CheckAccess(ctx context.Context, userID, workspaceID uuid.UUID, minimum domain.Role) (domain.Role, error) {
	membership, err := s.workspaces.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return "", ErrAccessDenied
		}
		return "", err
	}

	if !membership.Role.AtLeast(minimum) {
		return "", ErrAccessDenied
	}

	return membership.Role, nil
}
