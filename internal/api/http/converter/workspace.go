package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
)

type WorkspaceResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Owner     uuid.UUID `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	Online    []string  `json:"online"`
}

func WorkspaceToApi(w *domain.Workspace, online []uuid.UUID) *WorkspaceResponse {
	ids := make([]string, 0, len(online))
	for _, id := range online {
		ids = append(ids, id.String())
	}
	return &WorkspaceResponse{
		ID:        w.ID,
		Name:      w.Name,
		Owner:     w.Owner,
		CreatedAt: w.CreatedAt,
		Online:    ids,
	}
}

type MessageResponse struct {
	ID        uuid.UUID      `json:"id"`
	RoomID    uuid.UUID      `json:"room_id"`
	SenderID  uuid.UUID      `json:"sender_id"`
	Content   string         `json:"content"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func MessagesToApi(messages []*domain.ChatMessage) []MessageResponse {
	result := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		result = append(result, MessageResponse{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			Type:      msg.Type,
			Metadata:  msg.Metadata,
			CreatedAt: msg.CreatedAt,
		})
	}
	return result
}
