package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/internal/service"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

// Hub is the single coordinator object owning all real-time state. It is
// constructed once at process start and handed to every handler; tests
// construct a fresh hub each.
type Hub struct {
	log       *slog.Logger
	registry  *Registry
	router    *Router
	chat      *ChatRelay
	tasks     *TaskRelay
	calls     *CallManager
	documents *DocumentBridge
	gate      service.MembershipGate
}

type HubDeps struct {
	Gate      service.MembershipGate
	Rooms     repository.RoomRepository
	Boards    repository.BoardRepository
	Documents repository.DocumentRepository
	Presence  repository.PresenceRepository
	Snapshots SnapshotPolicy
	Log       *slog.Logger
}

func NewHub(deps HubDeps) *Hub {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	router := NewRouter(log)
	return &Hub{
		log:       log,
		registry:  NewRegistry(deps.Presence, log),
		router:    router,
		chat:      NewChatRelay(router, deps.Rooms, log),
		tasks:     NewTaskRelay(router, deps.Boards, deps.Gate, log),
		calls:     NewCallManager(router, deps.Gate, log),
		documents: NewDocumentBridge(router, deps.Documents, deps.Snapshots, log),
		gate:      deps.Gate,
	}
}

func (h *Hub) Registry() *Registry        { return h.registry }
func (h *Hub) Router() *Router            { return h.router }
func (h *Hub) Calls() *CallManager        { return h.calls }
func (h *Hub) Documents() *DocumentBridge { return h.documents }

// Register places a new authenticated connection into the session registry
// and subscribes it to its personal channel.
func (h *Hub) Register(conn *domain.Connection) {
	h.registry.Register(conn)
	h.router.Join(conn, domain.UserChannel(conn.UserID))
	h.log.Info("connection registered",
		slog.String("connection", conn.ID),
		slog.String("user_id", conn.UserID.String()),
	)
}

// Disconnect deterministically unwinds every registry, router, call and
// document membership for the connection, synchronously.
func (h *Hub) Disconnect(conn *domain.Connection) {
	removed, remaining := h.registry.Unregister(conn.ID)
	if removed == nil {
		return
	}

	if remaining == 0 {
		h.calls.HandleDisconnect(conn)
	}
	h.documents.HandleDisconnect(conn)

	channels := conn.ChannelList()
	h.router.LeaveAll(conn)

	// Presence demotion for every workspace this connection had joined,
	// when no sibling connection keeps the user reachable there.
	for _, channel := range channels {
		workspaceID, ok := parseWorkspaceChannel(channel)
		if !ok {
			continue
		}
		if h.userStillInWorkspace(conn.UserID, channel) {
			continue
		}
		h.registry.DropPresence(conn.UserID, workspaceID)
		h.router.Broadcast(channel, domain.Event{
			Type: EventUserOffline,
			Payload: map[string]any{
				"workspace_id": workspaceID.String(),
				"user_id":      conn.UserID.String(),
			},
		})
	}

	conn.CloseEvents()
	h.log.Info("connection closed",
		slog.String("connection", conn.ID),
		slog.String("user_id", conn.UserID.String()),
	)
}

// Dispatch routes one inbound envelope to its component handler. Decode
// failures keep the connection open and produce a scoped error.
func (h *Hub) Dispatch(ctx context.Context, conn *domain.Connection, envelope domain.Envelope) {
	switch envelope.Type {
	case EventJoinWorkspace:
		var p workspacePayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.joinWorkspace(ctx, conn, p.WorkspaceID)
	case EventLeaveWorkspace:
		var p workspacePayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.leaveWorkspace(conn, p.WorkspaceID)
	case EventJoinRoom:
		var p roomPayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.joinRoom(ctx, conn, p.RoomID)
	case EventLeaveRoom:
		var p roomPayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.router.Leave(conn, domain.RoomChannel(p.RoomID))
		conn.EnqueueEvent(domain.Event{Type: EventRoomLeft, Payload: map[string]any{"room_id": p.RoomID.String()}})
	case EventJoinBoard:
		var p boardPayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.joinBoard(ctx, conn, p.BoardID)
	case EventLeaveBoard:
		var p boardPayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.router.Leave(conn, domain.BoardChannel(p.BoardID))
		conn.EnqueueEvent(domain.Event{Type: EventBoardLeft, Payload: map[string]any{"board_id": p.BoardID.String()}})

	case EventSendMessage:
		var p sendMessagePayload
		if !h.decode(conn, envelope, &p, EventChatError) {
			return
		}
		h.chat.SendMessage(ctx, conn, p.RoomID, p.Content, p.Type, p.Metadata)
	case EventTypingStart, EventTypingStop:
		var p roomPayload
		if !h.decode(conn, envelope, &p, EventChatError) {
			return
		}
		h.chat.RelayTyping(conn, p.RoomID, envelope.Type == EventTypingStart)
	case EventUpdatePresence:
		var p presencePayload
		if !h.decode(conn, envelope, &p, EventError) {
			return
		}
		h.updatePresence(conn, p)

	case EventTaskCreated, EventTaskUpdated, EventTaskMoved, EventTaskDeleted, EventListCreated:
		payload, err := parseRelayPayload(envelope.Payload)
		if err != nil {
			// The task relay is fire-and-forget even for malformed input.
			h.log.Debug("dropping malformed task event", slog.String("type", envelope.Type), sl.Err(err))
			return
		}
		h.tasks.Relay(ctx, conn, envelope.Type, payload)
	case EventWhiteboardBegin, EventWhiteboardDraw, EventWhiteboardLine:
		payload, err := parseRelayPayload(envelope.Payload)
		if err != nil {
			h.log.Debug("dropping malformed whiteboard event", slog.String("type", envelope.Type), sl.Err(err))
			return
		}
		h.tasks.RelayWhiteboard(conn, envelope.Type, payload)

	case EventStartVideoCall:
		var p startCallPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.StartCall(ctx, conn, p.TargetUserID, p.WorkspaceID, domain.CallType(p.CallType))
	case EventAcceptCall:
		var p callPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.AcceptCall(conn, p.CallID)
	case EventRejectCall:
		var p callPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.RejectCall(conn, p.CallID)
	case EventEndCall:
		var p callPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.EndCall(conn, p.CallID)
	case EventJoinGroupCall:
		var p joinGroupCallPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.JoinGroupCall(ctx, conn, p.WorkspaceID)
	case EventLeaveGroupCall:
		var p callPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.LeaveGroupCall(conn, p.CallID)
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCCandidate:
		var p signalPayload
		if !h.decode(conn, envelope, &p, EventCallError) {
			return
		}
		h.calls.RelaySignal(conn, envelope.Type, &p)

	case EventDocumentJoin:
		var p documentJoinPayload
		if !h.decode(conn, envelope, &p, EventDocumentError) {
			return
		}
		h.documents.Join(ctx, conn, p.DocumentID)
	case EventDocumentLeave:
		var p documentJoinPayload
		if !h.decode(conn, envelope, &p, EventDocumentError) {
			return
		}
		h.documents.Leave(conn, p.DocumentID)
	case EventDocumentUpdate:
		var p documentUpdatePayload
		if !h.decode(conn, envelope, &p, EventDocumentError) {
			return
		}
		h.documents.RelayUpdate(conn, p.DocumentID, p.Update)

	default:
		conn.EnqueueEvent(domain.ErrorEvent(EventError, domain.ReasonBadPayload, "unsupported event type: "+envelope.Type))
	}
}

func (h *Hub) joinWorkspace(ctx context.Context, conn *domain.Connection, workspaceID uuid.UUID) {
	if _, err := h.gate.CheckAccess(ctx, conn.UserID, workspaceID, domain.RoleMember); err != nil {
		conn.EnqueueEvent(domain.ErrorEvent(EventError, domain.ReasonUnauthorized, "not a member of this workspace"))
		return
	}

	channel := domain.WorkspaceChannel(workspaceID)
	firstHere := !h.userStillInWorkspace(conn.UserID, channel)
	h.router.Join(conn, channel)

	record := h.registry.Presence(conn.UserID, workspaceID)
	if record == nil {
		record = h.registry.SetPresence(conn.UserID, workspaceID, domain.PresenceOnline)
	}

	if firstHere {
		h.router.Broadcast(channel, domain.Event{
			Type: EventUserOnline,
			Payload: map[string]any{
				"workspace_id": workspaceID.String(),
				"user":         conn.User,
				"status":       record.Status,
			},
		}, conn.ID)
	}

	online := h.registry.ListOnline(workspaceID)
	ids := make([]string, 0, len(online))
	for _, id := range online {
		ids = append(ids, id.String())
	}
	conn.EnqueueEvent(domain.Event{
		Type: EventWorkspaceJoined,
		Payload: map[string]any{
			"workspace_id": workspaceID.String(),
			"online":       ids,
		},
	})
}

func (h *Hub) leaveWorkspace(conn *domain.Connection, workspaceID uuid.UUID) {
	channel := domain.WorkspaceChannel(workspaceID)
	if !conn.HasChannel(channel) {
		return
	}
	h.router.Leave(conn, channel)

	if !h.userStillInWorkspace(conn.UserID, channel) {
		h.registry.DropPresence(conn.UserID, workspaceID)
		h.router.Broadcast(channel, domain.Event{
			Type: EventUserOffline,
			Payload: map[string]any{
				"workspace_id": workspaceID.String(),
				"user_id":      conn.UserID.String(),
			},
		})
	}

	conn.EnqueueEvent(domain.Event{Type: EventWorkspaceLeft, Payload: map[string]any{"workspace_id": workspaceID.String()}})
}

func (h *Hub) joinRoom(ctx context.Context, conn *domain.Connection, roomID uuid.UUID) {
	if err := h.chat.VerifyRoomAccess(ctx, conn.UserID, roomID); err != nil {
		conn.EnqueueEvent(domain.ErrorEvent(EventChatError, domain.ReasonUnauthorized, "not a member of this room"))
		return
	}
	h.router.Join(conn, domain.RoomChannel(roomID))
	conn.EnqueueEvent(domain.Event{Type: EventRoomJoined, Payload: map[string]any{"room_id": roomID.String()}})
}

func (h *Hub) joinBoard(ctx context.Context, conn *domain.Connection, boardID uuid.UUID) {
	if err := h.tasks.VerifyBoardAccess(ctx, conn.UserID, boardID); err != nil {
		conn.EnqueueEvent(domain.ErrorEvent(EventError, domain.ReasonUnauthorized, "no access to this board"))
		return
	}
	h.router.Join(conn, domain.BoardChannel(boardID))
	conn.EnqueueEvent(domain.Event{Type: EventBoardJoined, Payload: map[string]any{"board_id": boardID.String()}})
}

func (h *Hub) updatePresence(conn *domain.Connection, p presencePayload) {
	status := domain.PresenceStatus(p.Status)
	if !status.Valid() || status == domain.PresenceOffline {
		conn.EnqueueEvent(domain.ErrorEvent(EventError, domain.ReasonBadPayload, "unsupported presence status"))
		return
	}

	channel := domain.WorkspaceChannel(p.WorkspaceID)
	if !conn.HasChannel(channel) {
		conn.EnqueueEvent(domain.ErrorEvent(EventError, domain.ReasonUnauthorized, "join the workspace first"))
		return
	}

	record := h.registry.SetPresence(conn.UserID, p.WorkspaceID, status)
	h.router.Broadcast(channel, domain.Event{
		Type: EventPresenceUpdated,
		Payload: map[string]any{
			"workspace_id": p.WorkspaceID.String(),
			"user":         conn.User,
			"status":       record.Status,
			"last_seen":    record.LastSeen,
		},
	})
}

// userStillInWorkspace reports whether any live connection of the user is
// subscribed to the workspace channel.
func (h *Hub) userStillInWorkspace(userID uuid.UUID, channel string) bool {
	for _, sibling := range h.registry.Connections(userID) {
		if sibling.HasChannel(channel) {
			return true
		}
	}
	return false
}

func (h *Hub) decode(conn *domain.Connection, envelope domain.Envelope, target any, errorEvent string) bool {
	if len(envelope.Payload) == 0 {
		conn.EnqueueEvent(domain.ErrorEvent(errorEvent, domain.ReasonBadPayload, "payload is required for "+envelope.Type))
		return false
	}
	if err := json.Unmarshal(envelope.Payload, target); err != nil {
		conn.EnqueueEvent(domain.ErrorEvent(errorEvent, domain.ReasonBadPayload, "malformed payload for "+envelope.Type))
		return false
	}
	return true
}

func parseWorkspaceChannel(channel string) (uuid.UUID, bool) {
	const prefix = "workspace:"
	if len(channel) <= len(prefix) || channel[:len(prefix)] != prefix {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(channel[len(prefix):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
