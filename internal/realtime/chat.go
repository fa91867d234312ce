package realtime

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

const maxChatMessageLength = 4000

// ChatRelay persists a message and fans it out to every subscriber of the
// room, including the sender's other connections.
type ChatRelay struct {
	log    *slog.Logger
	router *Router
	rooms  repository.RoomRepository
}

func NewChatRelay(router *Router, rooms repository.RoomRepository, log *slog.Logger) *ChatRelay {
	if log == nil {
		log = slog.Default()
	}
	return &ChatRelay{log: log, router: router, rooms: rooms}
}

// SendMessage runs the full relay pipeline: membership lookup, persist,
// hydrated broadcast. Any failure emits a scoped chat_error to the sender
// only; there is never a partial broadcast.
func (c *ChatRelay) SendMessage(ctx context.Context, conn *domain.Connection, roomID uuid.UUID, content, msgType string, metadata map[string]any) {
	const op = "realtime.chat.send"
	log := c.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID.String()),
		slog.String("user_id", conn.UserID.String()),
	)

	content = strings.TrimSpace(content)
	if content == "" {
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonBadPayload, "message content is required"))
		return
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonBadPayload, "message is too long"))
		return
	}

	member, err := c.rooms.IsMember(ctx, roomID, conn.UserID)
	if err != nil {
		log.Error("room membership lookup failed", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonPersistenceFailed, "could not verify room membership"))
		return
	}
	if !member {
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonUnauthorized, "not a member of this room"))
		return
	}

	message := domain.NewChatMessage(roomID, conn.UserID, content, msgType, metadata)
	if err := c.rooms.SaveMessage(ctx, message); err != nil {
		log.Error("failed to save chat message", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonPersistenceFailed, "could not save message"))
		return
	}

	c.router.Broadcast(domain.RoomChannel(roomID), domain.Event{
		Type: EventNewMessage,
		Payload: map[string]any{
			"id":         message.ID.String(),
			"room_id":    roomID.String(),
			"content":    message.Content,
			"type":       message.Type,
			"metadata":   message.Metadata,
			"created_at": message.CreatedAt,
			"sender":     conn.User,
		},
	})
}

// RelayTyping forwards a typing indicator to the room, excluding the
// originating connection.
func (c *ChatRelay) RelayTyping(conn *domain.Connection, roomID uuid.UUID, typing bool) {
	channel := domain.RoomChannel(roomID)
	if !conn.HasChannel(channel) {
		return
	}

	c.router.Broadcast(channel, domain.Event{
		Type: EventUserTyping,
		Payload: map[string]any{
			"room_id": roomID.String(),
			"user":    conn.User,
			"typing":  typing,
		},
	}, conn.ID)
}

// VerifyRoomAccess reports whether the user may join the room channel.
func (c *ChatRelay) VerifyRoomAccess(ctx context.Context, userID, roomID uuid.UUID) error {
	member, err := c.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.New("not a member of this room")
	}
	return nil
}
