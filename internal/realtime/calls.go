package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/service"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

// CallManager runs the per-call state machine and relays WebRTC signals.
// Sessions live only in memory; a session with no participants is destroyed
// atomically with the removal that emptied it.
type CallManager struct {
	mu        sync.Mutex
	log       *slog.Logger
	router    *Router
	gate      service.MembershipGate
	calls     map[string]*domain.CallSession
	userCalls map[uuid.UUID]map[string]struct{}
}

func NewCallManager(router *Router, gate service.MembershipGate, log *slog.Logger) *CallManager {
	if log == nil {
		log = slog.Default()
	}
	return &CallManager{
		log:       log,
		router:    router,
		gate:      gate,
		calls:     make(map[string]*domain.CallSession),
		userCalls: make(map[uuid.UUID]map[string]struct{}),
	}
}

// StartCall creates a 1:1 session in the ringing state. Both users must
// pass the membership gate for the workspace; a failed check emits
// call_error to the caller only and leaves no session behind.
func (m *CallManager) StartCall(ctx context.Context, conn *domain.Connection, target, workspaceID uuid.UUID, callType domain.CallType) {
	const op = "realtime.calls.start"
	log := m.log.With(
		slog.String("op", op),
		slog.String("workspace_id", workspaceID.String()),
		slog.String("caller", conn.UserID.String()),
		slog.String("target", target.String()),
	)

	if callType == "" {
		callType = domain.CallDirect
	}
	if callType != domain.CallDirect {
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonBadPayload, "start_video_call only creates 1:1 calls"))
		return
	}
	if target == conn.UserID {
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonBadPayload, "cannot call yourself"))
		return
	}

	if _, err := m.gate.CheckAccess(ctx, conn.UserID, workspaceID, domain.RoleMember); err != nil {
		log.Info("caller failed membership gate", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonUnauthorized, "not a member of this workspace"))
		return
	}
	if _, err := m.gate.CheckAccess(ctx, target, workspaceID, domain.RoleMember); err != nil {
		log.Info("target failed membership gate", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonUnauthorized, "target is not a member of this workspace"))
		return
	}

	session := domain.NewCallSession(domain.CallDirect, domain.CallRinging, workspaceID, conn.UserID)
	session.AddParticipant(target)

	m.mu.Lock()
	m.calls[session.ID] = session
	m.indexParticipantLocked(conn.UserID, session.ID)
	m.indexParticipantLocked(target, session.ID)
	m.mu.Unlock()

	log.Info("call started", slog.String("call_id", session.ID))

	m.router.Broadcast(domain.UserChannel(target), domain.Event{
		Type: EventIncomingCall,
		Payload: map[string]any{
			"call_id":      session.ID,
			"call_type":    session.Type,
			"workspace_id": workspaceID.String(),
			"caller":       conn.User,
		},
	})
	conn.EnqueueEvent(domain.Event{
		Type: EventCallStarted,
		Payload: map[string]any{
			"call_id":      session.ID,
			"call_type":    session.Type,
			"workspace_id": workspaceID.String(),
			"target":       target.String(),
		},
	})
}

// AcceptCall transitions a ringing session to active.
func (m *CallManager) AcceptCall(conn *domain.Connection, callID string) {
	m.mu.Lock()
	session, ok := m.calls[callID]
	if !ok || !session.HasParticipant(conn.UserID) {
		m.mu.Unlock()
		m.rejectRequest(conn, callID, ok)
		return
	}
	session.State = domain.CallActive
	participants := session.ParticipantList()
	m.mu.Unlock()

	m.notifyParticipants(participants, domain.Event{
		Type: EventCallAccepted,
		Payload: map[string]any{
			"call_id":     callID,
			"accepted_by": conn.User,
		},
	})
}

// RejectCall ends the session and destroys it.
func (m *CallManager) RejectCall(conn *domain.Connection, callID string) {
	m.mu.Lock()
	session, ok := m.calls[callID]
	if !ok || !session.HasParticipant(conn.UserID) {
		m.mu.Unlock()
		m.rejectRequest(conn, callID, ok)
		return
	}
	session.State = domain.CallEnded
	participants := session.ParticipantList()
	m.destroyLocked(session)
	m.mu.Unlock()

	m.notifyParticipants(participants, domain.Event{
		Type: EventCallRejected,
		Payload: map[string]any{
			"call_id":     callID,
			"rejected_by": conn.User,
		},
	})
}

// EndCall destroys the session regardless of its current state.
func (m *CallManager) EndCall(conn *domain.Connection, callID string) {
	m.mu.Lock()
	session, ok := m.calls[callID]
	if !ok || !session.HasParticipant(conn.UserID) {
		m.mu.Unlock()
		m.rejectRequest(conn, callID, ok)
		return
	}
	session.State = domain.CallEnded
	participants := session.ParticipantList()
	m.destroyLocked(session)
	m.mu.Unlock()

	m.notifyParticipants(participants, domain.Event{
		Type: EventCallEnded,
		Payload: map[string]any{
			"call_id":  callID,
			"ended_by": conn.User,
		},
	})
}

// JoinGroupCall finds the workspace's open group call or creates one with
// the joiner as initiator. Re-joining is a no-op for the participant set.
func (m *CallManager) JoinGroupCall(ctx context.Context, conn *domain.Connection, workspaceID uuid.UUID) {
	const op = "realtime.calls.join_group"
	log := m.log.With(
		slog.String("op", op),
		slog.String("workspace_id", workspaceID.String()),
		slog.String("user_id", conn.UserID.String()),
	)

	if _, err := m.gate.CheckAccess(ctx, conn.UserID, workspaceID, domain.RoleMember); err != nil {
		log.Info("join rejected by membership gate", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonUnauthorized, "not a member of this workspace"))
		return
	}

	// Find-or-create and participant insertion happen in one critical
	// section so two rapid joins cannot spawn two sessions.
	m.mu.Lock()
	session := m.openGroupCallLocked(workspaceID)
	if session == nil {
		session = domain.NewCallSession(domain.CallGroup, domain.CallActive, workspaceID, conn.UserID)
		m.calls[session.ID] = session
	} else {
		session.AddParticipant(conn.UserID)
	}
	m.indexParticipantLocked(conn.UserID, session.ID)
	participants := session.ParticipantList()
	m.mu.Unlock()

	m.router.Join(conn, domain.CallChannel(session.ID))

	m.router.Broadcast(domain.CallChannel(session.ID), domain.Event{
		Type: EventUserJoinedCall,
		Payload: map[string]any{
			"call_id": session.ID,
			"user":    conn.User,
		},
	}, conn.ID)

	ids := make([]string, 0, len(participants))
	for _, id := range participants {
		ids = append(ids, id.String())
	}
	conn.EnqueueEvent(domain.Event{
		Type: EventJoinedGroupCall,
		Payload: map[string]any{
			"call_id":      session.ID,
			"workspace_id": workspaceID.String(),
			"participants": ids,
		},
	})
	log.Info("joined group call", slog.String("call_id", session.ID))
}

// LeaveGroupCall removes the user; an emptied session is destroyed with the
// removal.
func (m *CallManager) LeaveGroupCall(conn *domain.Connection, callID string) {
	m.mu.Lock()
	session, ok := m.calls[callID]
	if !ok || !session.HasParticipant(conn.UserID) {
		m.mu.Unlock()
		m.rejectRequest(conn, callID, ok)
		return
	}
	m.removeParticipantLocked(session, conn.UserID)
	m.mu.Unlock()

	m.router.Leave(conn, domain.CallChannel(callID))
	m.router.Broadcast(domain.CallChannel(callID), domain.Event{
		Type: EventUserLeftCall,
		Payload: map[string]any{
			"call_id": callID,
			"user":    conn.User,
		},
	})
	conn.EnqueueEvent(domain.Event{
		Type:    EventLeftGroupCall,
		Payload: map[string]any{"call_id": callID},
	})
}

// HandleDisconnect unwinds every call the user participated in. A user may
// sit in several concurrent group calls; all of them are cleaned up.
func (m *CallManager) HandleDisconnect(conn *domain.Connection) {
	m.mu.Lock()
	callIDs := make([]string, 0, len(m.userCalls[conn.UserID]))
	for callID := range m.userCalls[conn.UserID] {
		callIDs = append(callIDs, callID)
	}
	remaining := make(map[string][]uuid.UUID, len(callIDs))
	for _, callID := range callIDs {
		session, ok := m.calls[callID]
		if !ok {
			continue
		}
		m.removeParticipantLocked(session, conn.UserID)
		survivors := session.ParticipantList()
		// A 1:1 call cannot continue without its peer; tear it down now
		// rather than leaving a one-participant session behind.
		if session.Type == domain.CallDirect && !session.Empty() {
			session.State = domain.CallEnded
			m.destroyLocked(session)
		}
		remaining[callID] = survivors
	}
	m.mu.Unlock()

	for callID, participants := range remaining {
		m.notifyParticipants(participants, domain.Event{
			Type: EventUserDisconnectedCall,
			Payload: map[string]any{
				"call_id": callID,
				"user":    conn.User,
			},
		})
	}
}

// RelaySignal forwards an offer, answer or ICE candidate to the target
// user's personal channel. No state changes and no authorization re-check:
// the call's own join/accept flow is the authorization boundary. A target
// with no live connection yields call_error so the sender can abandon the
// negotiation instead of waiting on an answer that cannot come.
func (m *CallManager) RelaySignal(conn *domain.Connection, eventType string, payload *signalPayload) {
	if m.router.SubscriberCount(domain.UserChannel(payload.TargetUserID)) == 0 {
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonNotFound, "signal target is not connected"))
		return
	}

	m.router.Broadcast(domain.UserChannel(payload.TargetUserID), domain.Event{
		Type: eventType,
		Payload: map[string]any{
			"call_id":   payload.CallID,
			"from":      conn.User,
			"sdp":       payload.SDP,
			"candidate": payload.Candidate,
		},
	})
}

// ActiveCall returns the session for inspection; nil when absent.
func (m *CallManager) ActiveCall(callID string) *domain.CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[callID]
}

func (m *CallManager) openGroupCallLocked(workspaceID uuid.UUID) *domain.CallSession {
	for _, session := range m.calls {
		if session.Type == domain.CallGroup && session.WorkspaceID == workspaceID && session.State == domain.CallActive {
			return session
		}
	}
	return nil
}

func (m *CallManager) indexParticipantLocked(userID uuid.UUID, callID string) {
	if m.userCalls[userID] == nil {
		m.userCalls[userID] = make(map[string]struct{})
	}
	m.userCalls[userID][callID] = struct{}{}
}

func (m *CallManager) removeParticipantLocked(session *domain.CallSession, userID uuid.UUID) {
	session.RemoveParticipant(userID)
	if userCalls := m.userCalls[userID]; userCalls != nil {
		delete(userCalls, session.ID)
		if len(userCalls) == 0 {
			delete(m.userCalls, userID)
		}
	}
	if session.Empty() {
		delete(m.calls, session.ID)
		m.log.Info("call destroyed", slog.String("call_id", session.ID))
	}
}

func (m *CallManager) destroyLocked(session *domain.CallSession) {
	for userID := range session.Participants {
		if userCalls := m.userCalls[userID]; userCalls != nil {
			delete(userCalls, session.ID)
			if len(userCalls) == 0 {
				delete(m.userCalls, userID)
			}
		}
	}
	delete(m.calls, session.ID)
	m.log.Info("call destroyed", slog.String("call_id", session.ID))
}

func (m *CallManager) rejectRequest(conn *domain.Connection, callID string, exists bool) {
	if !exists {
		conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonNotFound, "call not found"))
		return
	}
	conn.EnqueueEvent(domain.ErrorEvent(EventCallError, domain.ReasonUnauthorized, "not a participant of this call"))
}

// notifyParticipants delivers an event to every connection of every listed
// participant via their personal channels.
func (m *CallManager) notifyParticipants(participants []uuid.UUID, event domain.Event) {
	for _, userID := range participants {
		m.router.Broadcast(domain.UserChannel(userID), event)
	}
}
