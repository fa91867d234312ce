package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueEventAfterCloseReportsDrop(t *testing.T) {
	conn := NewConnection(Profile{ID: uuid.New(), Name: "tab"})

	require.True(t, conn.EnqueueEvent(Event{Type: "first"}))
	conn.CloseEvents()

	assert.False(t, conn.EnqueueEvent(Event{Type: "late"}))

	// Queued events stay readable, then the channel reports closed.
	event, ok := <-conn.Events
	require.True(t, ok)
	assert.Equal(t, "first", event.Type)
	_, ok = <-conn.Events
	assert.False(t, ok)
}

func TestCloseEventsIsIdempotent(t *testing.T) {
	conn := NewConnection(Profile{ID: uuid.New(), Name: "tab"})

	conn.CloseEvents()
	conn.CloseEvents()

	assert.False(t, conn.EnqueueEvent(Event{Type: "late"}))
}

func TestConnectionChannelBookkeeping(t *testing.T) {
	conn := NewConnection(Profile{ID: uuid.New(), Name: "tab"})

	conn.AddChannel("room:a")
	conn.AddChannel("board:b")
	assert.True(t, conn.HasChannel("room:a"))
	assert.ElementsMatch(t, []string{"room:a", "board:b"}, conn.ChannelList())

	conn.RemoveChannel("room:a")
	assert.False(t, conn.HasChannel("room:a"))
}
