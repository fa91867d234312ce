package realtime

import (
	"testing"

	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterBroadcastDeliversToAllSubscribers(t *testing.T) {
	router := NewRouter(nil)
	first := newTestConn("first")
	second := newTestConn("second")
	outsider := newTestConn("outsider")

	router.Join(first, "room:demo")
	router.Join(second, "room:demo")

	router.Broadcast("room:demo", domain.Event{Type: "ping"})

	assert.Equal(t, "ping", nextEvent(t, first).Type)
	assert.Equal(t, "ping", nextEvent(t, second).Type)
	expectSilence(t, outsider)
}

func TestRouterBroadcastExcludesConnections(t *testing.T) {
	router := NewRouter(nil)
	sender := newTestConn("sender")
	receiver := newTestConn("receiver")

	router.Join(sender, "room:demo")
	router.Join(receiver, "room:demo")

	router.Broadcast("room:demo", domain.Event{Type: "ping"}, sender.ID)

	assert.Equal(t, "ping", nextEvent(t, receiver).Type)
	expectSilence(t, sender)
}

func TestRouterLeaveStopsDelivery(t *testing.T) {
	router := NewRouter(nil)
	conn := newTestConn("leaver")

	router.Join(conn, "room:demo")
	require.True(t, conn.HasChannel("room:demo"))
	require.Equal(t, 1, router.SubscriberCount("room:demo"))

	router.Leave(conn, "room:demo")
	assert.False(t, conn.HasChannel("room:demo"))
	assert.Zero(t, router.SubscriberCount("room:demo"))

	router.Broadcast("room:demo", domain.Event{Type: "ping"})
	expectSilence(t, conn)
}

func TestRouterLeaveAllReturnsHeldChannels(t *testing.T) {
	router := NewRouter(nil)
	conn := newTestConn("multi")

	router.Join(conn, "room:a")
	router.Join(conn, "board:b")
	router.Join(conn, "user:c")

	keys := router.LeaveAll(conn)

	assert.ElementsMatch(t, []string{"room:a", "board:b", "user:c"}, keys)
	assert.Empty(t, conn.ChannelList())
	assert.Zero(t, router.SubscriberCount("room:a"))
	assert.Zero(t, router.SubscriberCount("board:b"))
}

func TestRouterBroadcastDropsWhenQueueFull(t *testing.T) {
	router := NewRouter(nil)
	conn := newTestConn("slow")
	router.Join(conn, "room:demo")

	// Fill the buffered queue without a reader attached.
	for conn.EnqueueEvent(domain.Event{Type: "filler"}) {
	}

	// Must not block even though the consumer never drains.
	router.Broadcast("room:demo", domain.Event{Type: "overflow"})
}
