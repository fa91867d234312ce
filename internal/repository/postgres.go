package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelUser(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserEmailExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"name":       user.Name,
		"avatar_url": user.AvatarURL,
		"updated_at": user.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type PostgresWorkspaceRepository struct {
	db *gorm.DB
}

func NewPostgresWorkspaceRepository(db *gorm.DB) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{db: db}
}

func (r *PostgresWorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if workspace == nil {
		return errors.New("workspace is nil")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.Workspace{
			ID:        workspace.ID,
			Name:      workspace.Name,
			Owner:     workspace.Owner,
			CreatedAt: workspace.CreatedAt,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&model.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      workspace.Owner,
			Role:        string(domain.RoleOwner),
			JoinedAt:    workspace.CreatedAt,
		}).Error
	})
}

func (r *PostgresWorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var workspace model.Workspace
	err := r.db.WithContext(ctx).First(&workspace, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}

	return &domain.Workspace{
		ID:        workspace.ID,
		Name:      workspace.Name,
		Owner:     workspace.Owner,
		CreatedAt: workspace.CreatedAt,
	}, nil
}

func (r *PostgresWorkspaceRepository) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var member model.WorkspaceMember
	err := r.db.WithContext(ctx).
		First(&member, "workspace_id = ? AND user_id = ?", workspaceID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return toDomainMembership(&member), nil
}

func (r *PostgresWorkspaceRepository) AddMember(ctx context.Context, membership *domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if membership == nil {
		return errors.New("membership is nil")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&model.WorkspaceMember{
		WorkspaceID: membership.WorkspaceID,
		UserID:      membership.UserID,
		Role:        string(membership.Role),
		JoinedAt:    membership.JoinedAt,
	}).Error
}

func (r *PostgresWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var members []model.WorkspaceMember
	if err := r.db.WithContext(ctx).Find(&members, "workspace_id = ?", workspaceID).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Membership, 0, len(members))
	for i := range members {
		result = append(result, toDomainMembership(&members[i]))
	}
	return result, nil
}

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	return r.db.WithContext(ctx).Create(&model.Room{
		ID:          room.ID,
		WorkspaceID: room.WorkspaceID,
		Name:        room.Name,
		CreatedAt:   room.CreatedAt,
	}).Error
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &domain.Room{
		ID:          room.ID,
		WorkspaceID: room.WorkspaceID,
		Name:        room.Name,
		CreatedAt:   room.CreatedAt,
	}, nil
}

func (r *PostgresRoomRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRoomRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.RoomMember{RoomID: roomID, UserID: userID}).Error
}

func (r *PostgresRoomRepository) SaveMessage(ctx context.Context, message *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message == nil {
		return errors.New("message is nil")
	}

	msg, err := toModelMessage(message)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *PostgresRoomRepository) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.ChatMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg, err := toDomainMessage(&messages[i])
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}

type PostgresBoardRepository struct {
	db *gorm.DB
}

func NewPostgresBoardRepository(db *gorm.DB) *PostgresBoardRepository {
	return &PostgresBoardRepository{db: db}
}

func (r *PostgresBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if board == nil {
		return errors.New("board is nil")
	}

	return r.db.WithContext(ctx).Create(&model.Board{
		ID:          board.ID,
		WorkspaceID: board.WorkspaceID,
		Name:        board.Name,
		CreatedAt:   board.CreatedAt,
	}).Error
}

func (r *PostgresBoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var board model.Board
	err := r.db.WithContext(ctx).First(&board, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}

	return &domain.Board{
		ID:          board.ID,
		WorkspaceID: board.WorkspaceID,
		Name:        board.Name,
		CreatedAt:   board.CreatedAt,
	}, nil
}

type PostgresDocumentRepository struct {
	db *gorm.DB
}

func NewPostgresDocumentRepository(db *gorm.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

func (r *PostgresDocumentRepository) GetPermission(ctx context.Context, documentID, userID uuid.UUID) (*domain.DocumentPermission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var permission model.DocumentPermission
	err := r.db.WithContext(ctx).
		First(&permission, "document_id = ? AND user_id = ?", documentID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}

	return &domain.DocumentPermission{
		DocumentID: permission.DocumentID,
		UserID:     permission.UserID,
		Access:     domain.DocumentAccess(permission.Access),
	}, nil
}

func (r *PostgresDocumentRepository) GrantPermission(ctx context.Context, permission *domain.DocumentPermission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if permission == nil {
		return errors.New("permission is nil")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access"}),
	}).Create(&model.DocumentPermission{
		DocumentID: permission.DocumentID,
		UserID:     permission.UserID,
		Access:     string(permission.Access),
	}).Error
}

func (r *PostgresDocumentRepository) GetSnapshot(ctx context.Context, documentID uuid.UUID) (*domain.DocumentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snapshot model.DocumentSnapshot
	err := r.db.WithContext(ctx).First(&snapshot, "document_id = ?", documentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return &domain.DocumentSnapshot{
		DocumentID: snapshot.DocumentID,
		State:      snapshot.State,
		UpdatedAt:  snapshot.UpdatedAt,
	}, nil
}

func (r *PostgresDocumentRepository) SaveSnapshot(ctx context.Context, snapshot *domain.DocumentSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot == nil {
		return errors.New("snapshot is nil")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&model.DocumentSnapshot{
		DocumentID: snapshot.DocumentID,
		State:      snapshot.State,
		UpdatedAt:  snapshot.UpdatedAt,
	}).Error
}

type PostgresPresenceRepository struct {
	db *gorm.DB
}

func NewPostgresPresenceRepository(db *gorm.DB) *PostgresPresenceRepository {
	return &PostgresPresenceRepository{db: db}
}

func (r *PostgresPresenceRepository) Upsert(ctx context.Context, record *domain.PresenceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return errors.New("record is nil")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen"}),
	}).Create(&model.UserPresence{
		UserID:      record.UserID,
		WorkspaceID: record.WorkspaceID,
		Status:      string(record.Status),
		LastSeen:    record.LastSeen,
	}).Error
}

func toModelUser(user *domain.User) *model.User {
	var email *string
	if user.Email != "" {
		e := user.Email
		email = &e
	}
	return &model.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     email,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toDomainUser(user *model.User) *domain.User {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     email,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toDomainMembership(member *model.WorkspaceMember) *domain.Membership {
	return &domain.Membership{
		WorkspaceID: member.WorkspaceID,
		UserID:      member.UserID,
		Role:        domain.Role(member.Role),
		JoinedAt:    member.JoinedAt,
	}
}

func toModelMessage(message *domain.ChatMessage) (*model.ChatMessage, error) {
	metadata := ""
	if message.Metadata != nil {
		raw, err := json.Marshal(message.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(raw)
	}
	return &model.ChatMessage{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		Type:      message.Type,
		Metadata:  metadata,
		CreatedAt: message.CreatedAt,
	}, nil
}

func toDomainMessage(message *model.ChatMessage) (*domain.ChatMessage, error) {
	var metadata map[string]any
	if message.Metadata != "" {
		if err := json.Unmarshal([]byte(message.Metadata), &metadata); err != nil {
			return nil, err
		}
	}
	return &domain.ChatMessage{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		Type:      message.Type,
		Metadata:  metadata,
		CreatedAt: message.CreatedAt,
	}, nil
}
