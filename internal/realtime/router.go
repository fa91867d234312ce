package realtime

import (
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/teamspace/internal/domain"
)

// Router maintains the bidirectional channel <-> connection index. It only
// does subscription bookkeeping; authorization is the caller's job.
type Router struct {
	mu       sync.RWMutex
	log      *slog.Logger
	channels map[string]map[string]*domain.Connection
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		log:      log,
		channels: make(map[string]map[string]*domain.Connection),
	}
}

func (r *Router) Join(conn *domain.Connection, channel string) {
	r.mu.Lock()
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]*domain.Connection)
	}
	r.channels[channel][conn.ID] = conn
	r.mu.Unlock()

	conn.AddChannel(channel)
}

func (r *Router) Leave(conn *domain.Connection, channel string) {
	r.mu.Lock()
	if subs, ok := r.channels[channel]; ok {
		delete(subs, conn.ID)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
	}
	r.mu.Unlock()

	conn.RemoveChannel(channel)
}

// LeaveAll unsubscribes the connection everywhere and returns the channel
// keys it held. Used by the disconnect path.
func (r *Router) LeaveAll(conn *domain.Connection) []string {
	keys := conn.ChannelList()
	for _, key := range keys {
		r.Leave(conn, key)
	}
	return keys
}

// Subscribers returns a snapshot of the connections subscribed to a channel.
func (r *Router) Subscribers(channel string) []*domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.channels[channel]
	result := make([]*domain.Connection, 0, len(subs))
	for _, conn := range subs {
		result = append(result, conn)
	}
	return result
}

func (r *Router) SubscriberCount(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// Broadcast delivers the event to every connection subscribed to the
// channel at the moment of the call, minus the excluded connection ids.
func (r *Router) Broadcast(channel string, event domain.Event, exclude ...string) {
	r.mu.RLock()
	subs := r.channels[channel]
	targets := make([]*domain.Connection, 0, len(subs))
outer:
	for id, conn := range subs {
		for _, ex := range exclude {
			if id == ex {
				continue outer
			}
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		if !conn.EnqueueEvent(event) {
			r.log.Debug("dropping broadcast event",
				slog.String("connection", conn.ID),
				slog.String("channel", channel),
				slog.String("type", event.Type),
			)
		}
	}
}
