package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection is one live real-time session between a client and the server.
// A user may hold several concurrent connections (multiple tabs).
type Connection struct {
	ID       string
	UserID   uuid.UUID
	User     Profile
	JoinedAt time.Time

	Mutex    sync.RWMutex
	Channels map[string]struct{}
	Socket   *websocket.Conn
	Events   chan Event
	closed   bool
}

func NewConnection(user Profile) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		User:     user,
		JoinedAt: time.Now().UTC(),
		Channels: make(map[string]struct{}),
		Events:   make(chan Event, 32),
	}
}

// EnqueueEvent hands an event to the connection's writer. Slow consumers
// drop events rather than block the dispatcher. The read lock keeps the
// send mutually exclusive with CloseEvents: sending on a closed channel
// panics even with a default case.
func (c *Connection) EnqueueEvent(event Event) bool {
	c.Mutex.RLock()
	defer c.Mutex.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

// CloseEvents marks the connection dead and closes the event channel so the
// writer goroutine drains and exits. Safe to call more than once; enqueue
// attempts after the close report a drop instead of panicking.
func (c *Connection) CloseEvents() {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}

func (c *Connection) AddChannel(key string) {
	c.Mutex.Lock()
	c.Channels[key] = struct{}{}
	c.Mutex.Unlock()
}

func (c *Connection) RemoveChannel(key string) {
	c.Mutex.Lock()
	delete(c.Channels, key)
	c.Mutex.Unlock()
}

func (c *Connection) HasChannel(key string) bool {
	c.Mutex.RLock()
	defer c.Mutex.RUnlock()
	_, ok := c.Channels[key]
	return ok
}

// ChannelList returns a snapshot of the joined channel keys.
func (c *Connection) ChannelList() []string {
	c.Mutex.RLock()
	defer c.Mutex.RUnlock()
	keys := make([]string, 0, len(c.Channels))
	for key := range c.Channels {
		keys = append(keys, key)
	}
	return keys
}
