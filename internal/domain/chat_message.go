package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	Content   string
	Type      string
	Metadata  map[string]any
	CreatedAt time.Time
}

// NewChatMessage assigns the server-side id and timestamp; client-supplied
// values are never trusted.
func NewChatMessage(roomID, senderID uuid.UUID, content, msgType string, metadata map[string]any) *ChatMessage {
	if msgType == "" {
		msgType = "text"
	}
	return &ChatMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		Type:      msgType,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
