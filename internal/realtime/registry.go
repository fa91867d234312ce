package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

const mirrorTimeout = 5 * time.Second

// Registry owns every live connection and the per-workspace presence
// records. The in-memory state is the source of truth for reachability;
// the stored mirror is best-effort and never rolls back in-memory state.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	mirror   repository.PresenceRepository
	conns    map[string]*domain.Connection
	byUser   map[uuid.UUID]map[string]*domain.Connection
	presence map[uuid.UUID]map[uuid.UUID]*domain.PresenceRecord
}

func NewRegistry(mirror repository.PresenceRepository, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:      log,
		mirror:   mirror,
		conns:    make(map[string]*domain.Connection),
		byUser:   make(map[uuid.UUID]map[string]*domain.Connection),
		presence: make(map[uuid.UUID]map[uuid.UUID]*domain.PresenceRecord),
	}
}

// Register adds a connection. A user may hold many concurrent connections;
// every call creates a new entry.
func (r *Registry) Register(conn *domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID] = conn
	if r.byUser[conn.UserID] == nil {
		r.byUser[conn.UserID] = make(map[string]*domain.Connection)
	}
	r.byUser[conn.UserID][conn.ID] = conn
}

// Unregister removes the connection and reports how many connections the
// owning user still holds.
func (r *Registry) Unregister(connID string) (*domain.Connection, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, 0
	}

	delete(r.conns, connID)
	remaining := 0
	if userConns := r.byUser[conn.UserID]; userConns != nil {
		delete(userConns, connID)
		remaining = len(userConns)
		if remaining == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	return conn, remaining
}

func (r *Registry) Connection(connID string) *domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// Connections returns a snapshot of the user's live connections.
func (r *Registry) Connections(userID uuid.UUID) []*domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userConns := r.byUser[userID]
	result := make([]*domain.Connection, 0, len(userConns))
	for _, conn := range userConns {
		result = append(result, conn)
	}
	return result
}

func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// SetPresence upserts the in-memory record and schedules a best-effort
// mirror write. Mirror failures are logged, never surfaced, and never roll
// back the in-memory state.
func (r *Registry) SetPresence(userID, workspaceID uuid.UUID, status domain.PresenceStatus) *domain.PresenceRecord {
	record := &domain.PresenceRecord{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Status:      status,
		LastSeen:    time.Now().UTC(),
	}

	r.mu.Lock()
	if r.presence[workspaceID] == nil {
		r.presence[workspaceID] = make(map[uuid.UUID]*domain.PresenceRecord)
	}
	r.presence[workspaceID][userID] = record
	r.mu.Unlock()

	r.scheduleMirror(record)
	return record
}

// DropPresence demotes the user to offline for the workspace and removes
// the in-memory record.
func (r *Registry) DropPresence(userID, workspaceID uuid.UUID) {
	r.mu.Lock()
	if records := r.presence[workspaceID]; records != nil {
		delete(records, userID)
		if len(records) == 0 {
			delete(r.presence, workspaceID)
		}
	}
	r.mu.Unlock()

	r.scheduleMirror(&domain.PresenceRecord{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Status:      domain.PresenceOffline,
		LastSeen:    time.Now().UTC(),
	})
}

func (r *Registry) Presence(userID, workspaceID uuid.UUID) *domain.PresenceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence[workspaceID][userID]
}

// ListOnline returns the users whose current record for the workspace is
// online.
func (r *Registry) ListOnline(workspaceID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]uuid.UUID, 0, len(r.presence[workspaceID]))
	for userID, record := range r.presence[workspaceID] {
		if record.Status == domain.PresenceOnline {
			result = append(result, userID)
		}
	}
	return result
}

func (r *Registry) scheduleMirror(record *domain.PresenceRecord) {
	if r.mirror == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := r.mirror.Upsert(ctx, record); err != nil {
			r.log.Warn("presence mirror write failed",
				slog.String("user_id", record.UserID.String()),
				slog.String("workspace_id", record.WorkspaceID.String()),
				sl.Err(err),
			)
		}
	}()
}
