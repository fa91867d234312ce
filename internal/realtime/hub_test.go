package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	hub        *Hub
	workspaces *repository.InMemoryWorkspaceRepository
	rooms      *repository.InMemoryRoomRepository
	boards     *repository.InMemoryBoardRepository
	documents  *repository.InMemoryDocumentRepository
}

func newHubFixture() *hubFixture {
	workspaces := repository.NewInMemoryWorkspaceRepository()
	rooms := repository.NewInMemoryRoomRepository()
	boards := repository.NewInMemoryBoardRepository()
	documents := repository.NewInMemoryDocumentRepository()

	hub := NewHub(HubDeps{
		Gate:      service.NewMembershipService(workspaces),
		Rooms:     rooms,
		Boards:    boards,
		Documents: documents,
		Presence:  repository.NewInMemoryPresenceRepository(),
		Snapshots: DefaultSnapshotPolicy(),
	})

	return &hubFixture{
		hub:        hub,
		workspaces: workspaces,
		rooms:      rooms,
		boards:     boards,
		documents:  documents,
	}
}

func (f *hubFixture) dispatch(conn *domain.Connection, eventType, payload string) {
	envelope := domain.Envelope{Type: eventType}
	if payload != "" {
		envelope.Payload = json.RawMessage(payload)
	}
	f.hub.Dispatch(context.Background(), conn, envelope)
}

func (f *hubFixture) joinWorkspace(t *testing.T, conn *domain.Connection, workspaceID uuid.UUID) {
	t.Helper()
	f.dispatch(conn, EventJoinWorkspace, `{"workspace_id":"`+workspaceID.String()+`"}`)
	waitForEvent(t, conn, EventWorkspaceJoined)
}

func assertEventsClosed(t *testing.T, conn *domain.Connection) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-conn.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel was not closed")
		}
	}
}

func TestRegisterSubscribesPersonalChannel(t *testing.T) {
	f := newHubFixture()
	conn := newTestConn("fresh")

	f.hub.Register(conn)

	assert.True(t, conn.HasChannel(domain.UserChannel(conn.UserID)))
	assert.Equal(t, 1, f.hub.Registry().ConnectionCount(conn.UserID))
}

func TestJoinWorkspaceRequiresMembership(t *testing.T) {
	f := newHubFixture()
	conn := newTestConn("outsider")
	f.hub.Register(conn)

	f.dispatch(conn, EventJoinWorkspace, `{"workspace_id":"`+uuid.NewString()+`"}`)

	event := nextEvent(t, conn)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, domain.ReasonUnauthorized, errorReason(t, event))
}

func TestJoinWorkspaceAnnouncesFirstConnectionOnly(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()

	resident := newTestConn("resident")
	joiner := newTestConn("joiner")
	grantMembership(t, f.workspaces, workspaceID, resident.UserID)
	grantMembership(t, f.workspaces, workspaceID, joiner.UserID)

	f.hub.Register(resident)
	f.joinWorkspace(t, resident, workspaceID)

	f.hub.Register(joiner)
	f.joinWorkspace(t, joiner, workspaceID)
	online := waitForEvent(t, resident, EventUserOnline)
	assert.Equal(t, joiner.User, eventPayload(t, online)["user"])

	// Another tab of the same user joins quietly.
	secondTab := domain.NewConnection(joiner.User)
	f.hub.Register(secondTab)
	f.joinWorkspace(t, secondTab, workspaceID)
	expectSilence(t, resident)
}

func TestJoinWorkspaceReportsOnlineUsers(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()
	conn := newTestConn("member")
	grantMembership(t, f.workspaces, workspaceID, conn.UserID)
	f.hub.Register(conn)

	f.dispatch(conn, EventJoinWorkspace, `{"workspace_id":"`+workspaceID.String()+`"}`)

	joined := waitForEvent(t, conn, EventWorkspaceJoined)
	payload := eventPayload(t, joined)
	assert.Contains(t, payload["online"], conn.UserID.String())
}

func TestUpdatePresenceBroadcasts(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()
	first := newTestConn("first")
	second := newTestConn("second")
	grantMembership(t, f.workspaces, workspaceID, first.UserID)
	grantMembership(t, f.workspaces, workspaceID, second.UserID)

	f.hub.Register(first)
	f.joinWorkspace(t, first, workspaceID)
	f.hub.Register(second)
	f.joinWorkspace(t, second, workspaceID)
	waitForEvent(t, first, EventUserOnline)

	f.dispatch(first, EventUpdatePresence, `{"workspace_id":"`+workspaceID.String()+`","status":"away"}`)

	event := waitForEvent(t, second, EventPresenceUpdated)
	assert.Equal(t, domain.PresenceAway, eventPayload(t, event)["status"])
	record := f.hub.Registry().Presence(first.UserID, workspaceID)
	require.NotNil(t, record)
	assert.Equal(t, domain.PresenceAway, record.Status)
}

func TestUpdatePresenceValidation(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()
	conn := newTestConn("member")
	grantMembership(t, f.workspaces, workspaceID, conn.UserID)
	f.hub.Register(conn)

	f.dispatch(conn, EventUpdatePresence, `{"workspace_id":"`+workspaceID.String()+`","status":"offline"}`)
	assert.Equal(t, domain.ReasonBadPayload, errorReason(t, nextEvent(t, conn)))

	f.dispatch(conn, EventUpdatePresence, `{"workspace_id":"`+workspaceID.String()+`","status":"away"}`)
	assert.Equal(t, domain.ReasonUnauthorized, errorReason(t, nextEvent(t, conn)))
}

func TestDisconnectKeepsPresenceWhileSiblingsRemain(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()
	watcher := newTestConn("watcher")
	user := newTestConn("tab one")
	secondTab := domain.NewConnection(user.User)
	grantMembership(t, f.workspaces, workspaceID, watcher.UserID)
	grantMembership(t, f.workspaces, workspaceID, user.UserID)

	f.hub.Register(watcher)
	f.joinWorkspace(t, watcher, workspaceID)

	f.hub.Register(user)
	f.joinWorkspace(t, user, workspaceID)
	waitForEvent(t, watcher, EventUserOnline)

	f.hub.Register(secondTab)
	f.joinWorkspace(t, secondTab, workspaceID)

	f.hub.Disconnect(user)
	assertEventsClosed(t, user)
	expectSilence(t, watcher)
	require.NotNil(t, f.hub.Registry().Presence(user.UserID, workspaceID))

	f.hub.Disconnect(secondTab)
	assertEventsClosed(t, secondTab)
	offline := waitForEvent(t, watcher, EventUserOffline)
	assert.Equal(t, user.UserID.String(), eventPayload(t, offline)["user_id"])
	assert.Nil(t, f.hub.Registry().Presence(user.UserID, workspaceID))
}

func TestLeaveWorkspaceDropsPresenceOnLastConnection(t *testing.T) {
	f := newHubFixture()
	workspaceID := uuid.New()
	watcher := newTestConn("watcher")
	leaver := newTestConn("leaver")
	grantMembership(t, f.workspaces, workspaceID, watcher.UserID)
	grantMembership(t, f.workspaces, workspaceID, leaver.UserID)

	f.hub.Register(watcher)
	f.joinWorkspace(t, watcher, workspaceID)
	f.hub.Register(leaver)
	f.joinWorkspace(t, leaver, workspaceID)
	waitForEvent(t, watcher, EventUserOnline)

	f.dispatch(leaver, EventLeaveWorkspace, `{"workspace_id":"`+workspaceID.String()+`"}`)

	waitForEvent(t, leaver, EventWorkspaceLeft)
	waitForEvent(t, watcher, EventUserOffline)
	assert.Nil(t, f.hub.Registry().Presence(leaver.UserID, workspaceID))
}

func TestDispatchRoomJoinAndMessage(t *testing.T) {
	f := newHubFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	receiver := newTestConn("receiver")
	require.NoError(t, f.rooms.AddMember(context.Background(), roomID, sender.UserID))
	require.NoError(t, f.rooms.AddMember(context.Background(), roomID, receiver.UserID))

	f.hub.Register(sender)
	f.hub.Register(receiver)

	f.dispatch(sender, EventJoinRoom, `{"room_id":"`+roomID.String()+`"}`)
	waitForEvent(t, sender, EventRoomJoined)
	f.dispatch(receiver, EventJoinRoom, `{"room_id":"`+roomID.String()+`"}`)
	waitForEvent(t, receiver, EventRoomJoined)

	f.dispatch(sender, EventSendMessage, `{"room_id":"`+roomID.String()+`","content":"hi"}`)

	event := waitForEvent(t, receiver, EventNewMessage)
	assert.Equal(t, "hi", eventPayload(t, event)["content"])
}

func TestDisconnectDuringBroadcastDoesNotPanic(t *testing.T) {
	f := newHubFixture()
	channel := domain.RoomChannel(uuid.New())
	router := f.hub.Router()

	// Steady broadcast traffic from another goroutine, racing the
	// disconnect path's channel close.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				router.Broadcast(channel, domain.Event{Type: "tick"})
			}
		}
	}()

	for i := 0; i < 500; i++ {
		conn := newTestConn("victim")
		f.hub.Register(conn)
		router.Join(conn, channel)
		f.hub.Disconnect(conn)
	}

	close(stop)
	<-done
}

func TestDispatchRejectsUnknownType(t *testing.T) {
	f := newHubFixture()
	conn := newTestConn("curious")
	f.hub.Register(conn)

	f.dispatch(conn, "sudo", `{}`)

	event := nextEvent(t, conn)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, domain.ReasonBadPayload, errorReason(t, event))
}

func TestDispatchScopedDecodeErrors(t *testing.T) {
	f := newHubFixture()
	conn := newTestConn("sloppy")
	f.hub.Register(conn)

	f.dispatch(conn, EventSendMessage, "")
	assert.Equal(t, EventChatError, nextEvent(t, conn).Type)

	f.dispatch(conn, EventAcceptCall, `{"call_id":`)
	assert.Equal(t, EventCallError, nextEvent(t, conn).Type)

	f.dispatch(conn, EventDocumentJoin, `not json`)
	assert.Equal(t, EventDocumentError, nextEvent(t, conn).Type)

	// Malformed task events are dropped without an error event.
	f.dispatch(conn, EventTaskCreated, `not json`)
	expectSilence(t, conn)
}
