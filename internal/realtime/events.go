package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

// Client -> server event types.
const (
	EventJoinWorkspace  = "join_workspace"
	EventLeaveWorkspace = "leave_workspace"
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventJoinBoard      = "join_board"
	EventLeaveBoard     = "leave_board"

	EventSendMessage    = "send_message"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
	EventUpdatePresence = "update_presence"

	EventTaskCreated = "task_created"
	EventTaskUpdated = "task_updated"
	EventTaskMoved   = "task_moved"
	EventTaskDeleted = "task_deleted"
	EventListCreated = "list_created"

	EventWhiteboardBegin = "wb_begin"
	EventWhiteboardDraw  = "wb_draw"
	EventWhiteboardLine  = "wb_line"

	EventStartVideoCall  = "start_video_call"
	EventAcceptCall      = "accept_call"
	EventRejectCall      = "reject_call"
	EventEndCall         = "end_call"
	EventJoinGroupCall   = "join_group_call"
	EventLeaveGroupCall  = "leave_group_call"
	EventWebRTCOffer     = "webrtc_offer"
	EventWebRTCAnswer    = "webrtc_answer"
	EventWebRTCCandidate = "webrtc_ice_candidate"

	EventDocumentJoin   = "document_join"
	EventDocumentLeave  = "document_leave"
	EventDocumentUpdate = "document_update"
)

// Server -> client event types.
const (
	EventWorkspaceJoined = "workspace_joined"
	EventWorkspaceLeft   = "workspace_left"
	EventRoomJoined      = "room_joined"
	EventRoomLeft        = "room_left"
	EventBoardJoined     = "board_joined"
	EventBoardLeft       = "board_left"

	EventNewMessage      = "new_message"
	EventUserTyping      = "user_typing"
	EventUserOnline      = "user_online"
	EventUserOffline     = "user_offline"
	EventPresenceUpdated = "presence_updated"

	EventIncomingCall         = "incoming_call"
	EventCallStarted          = "call_started"
	EventCallAccepted         = "call_accepted"
	EventCallRejected         = "call_rejected"
	EventCallEnded            = "call_ended"
	EventUserJoinedCall       = "user_joined_call"
	EventUserLeftCall         = "user_left_call"
	EventUserDisconnectedCall = "user_disconnected_from_call"
	EventJoinedGroupCall      = "joined_group_call"
	EventLeftGroupCall        = "left_group_call"
	EventCollaboratorJoined   = "collaborator_joined"
	EventCollaboratorLeft     = "collaborator_left"
	EventDocumentState        = "document_state"

	EventError         = "error"
	EventChatError     = "chat_error"
	EventCallError     = "call_error"
	EventDocumentError = "document_error"
)

type workspacePayload struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

type roomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type boardPayload struct {
	BoardID uuid.UUID `json:"board_id"`
}

type sendMessagePayload struct {
	RoomID   uuid.UUID      `json:"room_id"`
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

type presencePayload struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Status      string    `json:"status"`
}

type startCallPayload struct {
	TargetUserID uuid.UUID `json:"target_user_id"`
	WorkspaceID  uuid.UUID `json:"workspace_id"`
	CallType     string    `json:"call_type"`
}

type callPayload struct {
	CallID string `json:"call_id"`
}

type joinGroupCallPayload struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

type signalPayload struct {
	CallID       string                     `json:"call_id"`
	TargetUserID uuid.UUID                  `json:"target_user_id"`
	SDP          *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate    *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

type documentJoinPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

type documentUpdatePayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Update     []byte    `json:"update"`
}

// relayPayload keeps the original body verbatim while giving access to the
// board linkage; used by the task and whiteboard relays.
type relayPayload struct {
	BoardID uuid.UUID      `json:"board_id"`
	Data    map[string]any `json:"-"`
}

func parseRelayPayload(raw json.RawMessage) (*relayPayload, error) {
	var ids relayPayload
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &ids.Data); err != nil {
		return nil, err
	}
	return &ids, nil
}
