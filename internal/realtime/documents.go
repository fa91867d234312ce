package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

const snapshotTimeout = 10 * time.Second

// SnapshotPolicy decides when the bridge persists a document snapshot: on
// every UpdateThreshold-th relayed update per connection, or once
// MaxInterval has elapsed since the last save, whichever comes first.
type SnapshotPolicy struct {
	UpdateThreshold int
	MaxInterval     time.Duration
}

func DefaultSnapshotPolicy() SnapshotPolicy {
	return SnapshotPolicy{UpdateThreshold: 10, MaxInterval: 30 * time.Second}
}

// docState is the live merged state of one document: the seed loaded from
// the last persisted snapshot plus every update relayed since. The bytes
// are opaque; the update format owns their conflict-resolution semantics.
type docState struct {
	seed    []byte
	pending [][]byte
}

func (s *docState) merged() []byte {
	size := len(s.seed)
	for _, update := range s.pending {
		size += len(update)
	}
	merged := make([]byte, 0, size)
	merged = append(merged, s.seed...)
	for _, update := range s.pending {
		merged = append(merged, update...)
	}
	return merged
}

func (s *docState) fold() {
	if len(s.pending) == 0 {
		return
	}
	s.seed = s.merged()
	s.pending = nil
}

// DocumentBridge relays opaque collaborative-document updates between the
// connections editing the same document and persists snapshots on a
// fire-and-forget basis.
type DocumentBridge struct {
	mu        sync.Mutex
	log       *slog.Logger
	router    *Router
	documents repository.DocumentRepository
	policy    SnapshotPolicy
	sessions  map[string]map[uuid.UUID]*domain.DocumentEditSession
	states    map[uuid.UUID]*docState
}

func NewDocumentBridge(router *Router, documents repository.DocumentRepository, policy SnapshotPolicy, log *slog.Logger) *DocumentBridge {
	if log == nil {
		log = slog.Default()
	}
	if policy.UpdateThreshold <= 0 {
		policy.UpdateThreshold = DefaultSnapshotPolicy().UpdateThreshold
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = DefaultSnapshotPolicy().MaxInterval
	}
	return &DocumentBridge{
		log:       log,
		router:    router,
		documents: documents,
		policy:    policy,
		sessions:  make(map[string]map[uuid.UUID]*domain.DocumentEditSession),
		states:    make(map[uuid.UUID]*docState),
	}
}

// Join admits the connection to the document channel after a
// collaborator-permission lookup, seeds the live state from the last
// persisted snapshot when this is the first editor, and hands the joiner
// the current merged state.
func (b *DocumentBridge) Join(ctx context.Context, conn *domain.Connection, documentID uuid.UUID) {
	const op = "realtime.documents.join"
	log := b.log.With(
		slog.String("op", op),
		slog.String("document_id", documentID.String()),
		slog.String("user_id", conn.UserID.String()),
	)

	permission, err := b.documents.GetPermission(ctx, documentID, conn.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonUnauthorized, "no access to this document"))
			return
		}
		log.Error("permission lookup failed", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonPersistenceFailed, "could not verify document access"))
		return
	}

	state, err := b.ensureState(ctx, documentID)
	if err != nil {
		log.Error("snapshot hydration failed", sl.Err(err))
		conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonPersistenceFailed, "could not load document state"))
		return
	}

	now := time.Now().UTC()
	b.mu.Lock()
	if b.sessions[conn.ID] == nil {
		b.sessions[conn.ID] = make(map[uuid.UUID]*domain.DocumentEditSession)
	}
	if _, ok := b.sessions[conn.ID][documentID]; !ok {
		b.sessions[conn.ID][documentID] = &domain.DocumentEditSession{
			ConnectionID: conn.ID,
			DocumentID:   documentID,
			Access:       permission.Access,
			LastSnapshot: now,
		}
	}
	merged := state.merged()
	b.mu.Unlock()

	channel := domain.DocumentChannel(documentID)
	b.router.Join(conn, channel)
	b.router.Broadcast(channel, domain.Event{
		Type: EventCollaboratorJoined,
		Payload: map[string]any{
			"document_id": documentID.String(),
			"user":        conn.User,
		},
	}, conn.ID)

	conn.EnqueueEvent(domain.Event{
		Type: EventDocumentState,
		Payload: map[string]any{
			"document_id": documentID.String(),
			"state":       merged,
			"access":      permission.Access,
		},
	})
	log.Info("collaborator joined")
}

// RelayUpdate forwards the opaque update to every other subscriber of the
// document and persists a snapshot when the policy says one is due.
// Snapshot failures are logged, never retried, and never block the relay.
func (b *DocumentBridge) RelayUpdate(conn *domain.Connection, documentID uuid.UUID, update []byte) {
	if len(update) == 0 {
		conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonBadPayload, "update is empty"))
		return
	}

	b.mu.Lock()
	session, ok := b.sessions[conn.ID][documentID]
	if !ok {
		b.mu.Unlock()
		conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonUnauthorized, "join the document before sending updates"))
		return
	}
	if session.Access == domain.DocumentRead {
		b.mu.Unlock()
		conn.EnqueueEvent(domain.ErrorEvent(EventDocumentError, domain.ReasonUnauthorized, "read-only access"))
		return
	}

	state := b.states[documentID]
	state.pending = append(state.pending, append([]byte(nil), update...))

	session.Updates++
	now := time.Now().UTC()
	due := session.Updates >= b.policy.UpdateThreshold || now.Sub(session.LastSnapshot) >= b.policy.MaxInterval
	var snapshot []byte
	if due {
		state.fold()
		snapshot = append([]byte(nil), state.seed...)
		session.Updates = 0
		session.LastSnapshot = now
	}
	b.mu.Unlock()

	b.router.Broadcast(domain.DocumentChannel(documentID), domain.Event{
		Type: EventDocumentUpdate,
		Payload: map[string]any{
			"document_id": documentID.String(),
			"update":      update,
			"from":        conn.User,
		},
	}, conn.ID)

	if due {
		b.persistSnapshot(documentID, snapshot, now)
	}
}

// Leave unsubscribes the connection; the last editor's departure triggers a
// final snapshot before the live state is dropped.
func (b *DocumentBridge) Leave(conn *domain.Connection, documentID uuid.UUID) {
	b.mu.Lock()
	if _, ok := b.sessions[conn.ID][documentID]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.sessions[conn.ID], documentID)
	if len(b.sessions[conn.ID]) == 0 {
		delete(b.sessions, conn.ID)
	}
	b.mu.Unlock()

	channel := domain.DocumentChannel(documentID)
	b.router.Leave(conn, channel)
	b.router.Broadcast(channel, domain.Event{
		Type: EventCollaboratorLeft,
		Payload: map[string]any{
			"document_id": documentID.String(),
			"user":        conn.User,
		},
	})

	b.releaseIfIdle(documentID)
}

// HandleDisconnect runs Leave semantics for every document the connection
// was editing.
func (b *DocumentBridge) HandleDisconnect(conn *domain.Connection) {
	b.mu.Lock()
	documentIDs := make([]uuid.UUID, 0, len(b.sessions[conn.ID]))
	for documentID := range b.sessions[conn.ID] {
		documentIDs = append(documentIDs, documentID)
	}
	b.mu.Unlock()

	for _, documentID := range documentIDs {
		b.Leave(conn, documentID)
	}
}

func (b *DocumentBridge) ensureState(ctx context.Context, documentID uuid.UUID) (*docState, error) {
	b.mu.Lock()
	if state, ok := b.states[documentID]; ok {
		b.mu.Unlock()
		return state, nil
	}
	b.mu.Unlock()

	// First live edit state for this document: seed from the last
	// persisted snapshot before accepting updates.
	var seed []byte
	snapshot, err := b.documents.GetSnapshot(ctx, documentID)
	switch {
	case err == nil:
		seed = append([]byte(nil), snapshot.State...)
	case errors.Is(err, repository.ErrSnapshotNotFound):
	default:
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if state, ok := b.states[documentID]; ok {
		return state, nil
	}
	state := &docState{seed: seed}
	b.states[documentID] = state
	return state, nil
}

func (b *DocumentBridge) releaseIfIdle(documentID uuid.UUID) {
	if b.router.SubscriberCount(domain.DocumentChannel(documentID)) > 0 {
		return
	}

	b.mu.Lock()
	state, ok := b.states[documentID]
	if !ok {
		b.mu.Unlock()
		return
	}
	state.fold()
	final := append([]byte(nil), state.seed...)
	delete(b.states, documentID)
	b.mu.Unlock()

	if len(final) > 0 {
		b.persistSnapshot(documentID, final, time.Now().UTC())
	}
}

func (b *DocumentBridge) persistSnapshot(documentID uuid.UUID, state []byte, at time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		err := b.documents.SaveSnapshot(ctx, &domain.DocumentSnapshot{
			DocumentID: documentID,
			State:      state,
			UpdatedAt:  at,
		})
		if err != nil {
			b.log.Warn("snapshot persist failed",
				slog.String("document_id", documentID.String()),
				sl.Err(err),
			)
		}
	}()
}
