package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Email     *string   `gorm:"size:255;uniqueIndex:idx_users_email,where:email IS NOT NULL"`
	AvatarURL string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Workspace struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Owner     uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type WorkspaceMember struct {
	WorkspaceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Role        string    `gorm:"size:32;not null"`
	JoinedAt    time.Time `gorm:"not null"`
}

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"size:255;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type RoomMember struct {
	RoomID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;index;not null"`
	SenderID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Content   string    `gorm:"type:text;not null"`
	Type      string    `gorm:"size:32;not null"`
	Metadata  string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index;not null"`
}

type Board struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"size:255;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type DocumentPermission struct {
	DocumentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Access     string    `gorm:"size:32;not null"`
}

type DocumentSnapshot struct {
	DocumentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	State      []byte    `gorm:"type:bytea;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type UserPresence struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status      string    `gorm:"size:32;not null"`
	LastSeen    time.Time `gorm:"not null"`
}
