package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
)

// In-memory repositories back local development and tests.

type InMemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*domain.User
	emails map[string]uuid.UUID
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:  make(map[uuid.UUID]*domain.User),
		emails: make(map[string]uuid.UUID),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if user.Email != "" {
		if _, ok := r.emails[user.Email]; ok {
			return ErrUserEmailExists
		}
		r.emails[user.Email] = user.ID
	}

	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

type InMemoryWorkspaceRepository struct {
	mu         sync.RWMutex
	workspaces map[uuid.UUID]*domain.Workspace
	members    map[uuid.UUID]map[uuid.UUID]*domain.Membership
}

func NewInMemoryWorkspaceRepository() *InMemoryWorkspaceRepository {
	return &InMemoryWorkspaceRepository{
		workspaces: make(map[uuid.UUID]*domain.Workspace),
		members:    make(map[uuid.UUID]map[uuid.UUID]*domain.Membership),
	}
}

func (r *InMemoryWorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.workspaces[workspace.ID] = workspace
	if r.members[workspace.ID] == nil {
		r.members[workspace.ID] = make(map[uuid.UUID]*domain.Membership)
	}
	r.members[workspace.ID][workspace.Owner] = &domain.Membership{
		WorkspaceID: workspace.ID,
		UserID:      workspace.Owner,
		Role:        domain.RoleOwner,
		JoinedAt:    workspace.CreatedAt,
	}
	return nil
}

func (r *InMemoryWorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	workspace, ok := r.workspaces[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return workspace, nil
}

func (r *InMemoryWorkspaceRepository) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	membership, ok := r.members[workspaceID][userID]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	return membership, nil
}

func (r *InMemoryWorkspaceRepository) AddMember(ctx context.Context, membership *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[membership.WorkspaceID] == nil {
		r.members[membership.WorkspaceID] = make(map[uuid.UUID]*domain.Membership)
	}
	r.members[membership.WorkspaceID][membership.UserID] = membership
	return nil
}

func (r *InMemoryWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Membership, 0, len(r.members[workspaceID]))
	for _, membership := range r.members[workspaceID] {
		result = append(result, membership)
	}
	return result, nil
}

type InMemoryRoomRepository struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]*domain.Room
	members  map[uuid.UUID]map[uuid.UUID]struct{}
	messages map[uuid.UUID][]*domain.ChatMessage
}

func NewInMemoryRoomRepository() *InMemoryRoomRepository {
	return &InMemoryRoomRepository{
		rooms:    make(map[uuid.UUID]*domain.Room),
		members:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		messages: make(map[uuid.UUID][]*domain.ChatMessage),
	}
}

func (r *InMemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[room.ID] = room
	if r.members[room.ID] == nil {
		r.members[room.ID] = make(map[uuid.UUID]struct{})
	}
	return nil
}

func (r *InMemoryRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (r *InMemoryRoomRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[roomID][userID]
	return ok, nil
}

func (r *InMemoryRoomRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[roomID] == nil {
		r.members[roomID] = make(map[uuid.UUID]struct{})
	}
	r.members[roomID][userID] = struct{}{}
	return nil
}

func (r *InMemoryRoomRepository) SaveMessage(ctx context.Context, message *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[message.RoomID] = append(r.messages[message.RoomID], message)
	return nil
}

func (r *InMemoryRoomRepository) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := r.messages[roomID]
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	result := make([]*domain.ChatMessage, len(messages))
	copy(result, messages)
	return result, nil
}

type InMemoryBoardRepository struct {
	mu     sync.RWMutex
	boards map[uuid.UUID]*domain.Board
}

func NewInMemoryBoardRepository() *InMemoryBoardRepository {
	return &InMemoryBoardRepository{boards: make(map[uuid.UUID]*domain.Board)}
}

func (r *InMemoryBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.boards[board.ID] = board
	return nil
}

func (r *InMemoryBoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	board, ok := r.boards[id]
	if !ok {
		return nil, ErrBoardNotFound
	}
	return board, nil
}

type InMemoryDocumentRepository struct {
	mu          sync.RWMutex
	permissions map[uuid.UUID]map[uuid.UUID]*domain.DocumentPermission
	snapshots   map[uuid.UUID]*domain.DocumentSnapshot
	writes      int
}

func NewInMemoryDocumentRepository() *InMemoryDocumentRepository {
	return &InMemoryDocumentRepository{
		permissions: make(map[uuid.UUID]map[uuid.UUID]*domain.DocumentPermission),
		snapshots:   make(map[uuid.UUID]*domain.DocumentSnapshot),
	}
}

func (r *InMemoryDocumentRepository) GetPermission(ctx context.Context, documentID, userID uuid.UUID) (*domain.DocumentPermission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	permission, ok := r.permissions[documentID][userID]
	if !ok {
		return nil, ErrPermissionNotFound
	}
	return permission, nil
}

func (r *InMemoryDocumentRepository) GrantPermission(ctx context.Context, permission *domain.DocumentPermission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.permissions[permission.DocumentID] == nil {
		r.permissions[permission.DocumentID] = make(map[uuid.UUID]*domain.DocumentPermission)
	}
	r.permissions[permission.DocumentID][permission.UserID] = permission
	return nil
}

func (r *InMemoryDocumentRepository) GetSnapshot(ctx context.Context, documentID uuid.UUID) (*domain.DocumentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[documentID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (r *InMemoryDocumentRepository) SaveSnapshot(ctx context.Context, snapshot *domain.DocumentSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *snapshot
	stored.State = append([]byte(nil), snapshot.State...)
	r.snapshots[snapshot.DocumentID] = &stored
	r.writes++
	return nil
}

// SnapshotCount reports how many snapshot writes the repository has received.
func (r *InMemoryDocumentRepository) SnapshotCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

type InMemoryPresenceRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]map[uuid.UUID]*domain.PresenceRecord
}

func NewInMemoryPresenceRepository() *InMemoryPresenceRepository {
	return &InMemoryPresenceRepository{
		records: make(map[uuid.UUID]map[uuid.UUID]*domain.PresenceRecord),
	}
}

func (r *InMemoryPresenceRepository) Upsert(ctx context.Context, record *domain.PresenceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records[record.WorkspaceID] == nil {
		r.records[record.WorkspaceID] = make(map[uuid.UUID]*domain.PresenceRecord)
	}
	r.records[record.WorkspaceID][record.UserID] = record
	return nil
}
