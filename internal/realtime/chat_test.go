package realtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRoomRepo simulates a storage outage on the write path.
type failingRoomRepo struct {
	repository.RoomRepository
}

func (f *failingRoomRepo) SaveMessage(ctx context.Context, message *domain.ChatMessage) error {
	return errors.New("storage offline")
}

func newChatFixture() (*ChatRelay, *Router, *repository.InMemoryRoomRepository) {
	router := NewRouter(nil)
	rooms := repository.NewInMemoryRoomRepository()
	return NewChatRelay(router, rooms, nil), router, rooms
}

func joinRoomChannel(t *testing.T, router *Router, rooms *repository.InMemoryRoomRepository, conn *domain.Connection, roomID uuid.UUID) {
	t.Helper()
	require.NoError(t, rooms.AddMember(context.Background(), roomID, conn.UserID))
	router.Join(conn, domain.RoomChannel(roomID))
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	relay, router, rooms := newChatFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	member := newTestConn("member")
	joinRoomChannel(t, router, rooms, member, roomID)

	relay.SendMessage(context.Background(), sender, roomID, "hello", "", nil)

	event := nextEvent(t, sender)
	assert.Equal(t, EventChatError, event.Type)
	assert.Equal(t, domain.ReasonUnauthorized, errorReason(t, event))
	expectSilence(t, member)
}

func TestSendMessageValidatesContent(t *testing.T) {
	relay, _, rooms := newChatFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	require.NoError(t, rooms.AddMember(context.Background(), roomID, sender.UserID))

	relay.SendMessage(context.Background(), sender, roomID, "   ", "", nil)
	assert.Equal(t, domain.ReasonBadPayload, errorReason(t, nextEvent(t, sender)))

	relay.SendMessage(context.Background(), sender, roomID, strings.Repeat("x", maxChatMessageLength+1), "", nil)
	assert.Equal(t, domain.ReasonBadPayload, errorReason(t, nextEvent(t, sender)))
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	relay, router, rooms := newChatFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	receiver := newTestConn("receiver")
	joinRoomChannel(t, router, rooms, sender, roomID)
	joinRoomChannel(t, router, rooms, receiver, roomID)

	relay.SendMessage(context.Background(), sender, roomID, "hello there", "", nil)

	received := waitForEvent(t, receiver, EventNewMessage)
	payload := eventPayload(t, received)
	assert.Equal(t, "hello there", payload["content"])
	assert.Equal(t, "text", payload["type"])
	assert.NotEmpty(t, payload["id"])
	assert.Equal(t, sender.User, payload["sender"])

	// The sender's own subscription receives the echo too.
	echo := waitForEvent(t, sender, EventNewMessage)
	assert.Equal(t, payload["id"], eventPayload(t, echo)["id"])

	messages, err := rooms.ListMessages(context.Background(), roomID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello there", messages[0].Content)
	assert.Equal(t, sender.UserID, messages[0].SenderID)
}

func TestSendMessagesArriveInPersistenceOrder(t *testing.T) {
	relay, router, rooms := newChatFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	first := newTestConn("first")
	second := newTestConn("second")
	joinRoomChannel(t, router, rooms, sender, roomID)
	joinRoomChannel(t, router, rooms, first, roomID)
	joinRoomChannel(t, router, rooms, second, roomID)

	relay.SendMessage(context.Background(), sender, roomID, "one", "", nil)
	relay.SendMessage(context.Background(), sender, roomID, "two", "", nil)

	// Both messages were durably persisted, in send order.
	messages, err := rooms.ListMessages(context.Background(), roomID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
	assert.False(t, messages[1].CreatedAt.Before(messages[0].CreatedAt))

	// Every subscriber observes the same order, sender included.
	for _, conn := range []*domain.Connection{sender, first, second} {
		one := eventPayload(t, waitForEvent(t, conn, EventNewMessage))
		two := eventPayload(t, waitForEvent(t, conn, EventNewMessage))
		assert.Equal(t, "one", one["content"])
		assert.Equal(t, "two", two["content"])
		assert.Equal(t, messages[0].ID.String(), one["id"])
		assert.Equal(t, messages[1].ID.String(), two["id"])
	}
}

func TestSendMessageSurfacesPersistenceFailure(t *testing.T) {
	router := NewRouter(nil)
	rooms := repository.NewInMemoryRoomRepository()
	relay := NewChatRelay(router, &failingRoomRepo{RoomRepository: rooms}, nil)

	roomID := uuid.New()
	sender := newTestConn("sender")
	receiver := newTestConn("receiver")
	joinRoomChannel(t, router, rooms, sender, roomID)
	joinRoomChannel(t, router, rooms, receiver, roomID)

	relay.SendMessage(context.Background(), sender, roomID, "doomed", "", nil)

	event := nextEvent(t, sender)
	assert.Equal(t, EventChatError, event.Type)
	assert.Equal(t, domain.ReasonPersistenceFailed, errorReason(t, event))
	expectSilence(t, receiver)
}

func TestRelayTypingExcludesSender(t *testing.T) {
	relay, router, rooms := newChatFixture()
	roomID := uuid.New()
	sender := newTestConn("sender")
	receiver := newTestConn("receiver")
	joinRoomChannel(t, router, rooms, sender, roomID)
	joinRoomChannel(t, router, rooms, receiver, roomID)

	relay.RelayTyping(sender, roomID, true)

	event := waitForEvent(t, receiver, EventUserTyping)
	payload := eventPayload(t, event)
	assert.Equal(t, true, payload["typing"])
	assert.Equal(t, sender.User, payload["user"])
	expectSilence(t, sender)
}

func TestRelayTypingRequiresSubscription(t *testing.T) {
	relay, router, rooms := newChatFixture()
	roomID := uuid.New()
	lurker := newTestConn("lurker")
	receiver := newTestConn("receiver")
	joinRoomChannel(t, router, rooms, receiver, roomID)

	relay.RelayTyping(lurker, roomID, true)
	expectSilence(t, receiver)
}

func TestVerifyRoomAccess(t *testing.T) {
	relay, _, rooms := newChatFixture()
	roomID := uuid.New()
	member := uuid.New()
	require.NoError(t, rooms.AddMember(context.Background(), roomID, member))

	assert.NoError(t, relay.VerifyRoomAccess(context.Background(), member, roomID))
	assert.Error(t, relay.VerifyRoomAccess(context.Background(), uuid.New(), roomID))
}
