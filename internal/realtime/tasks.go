package realtime

import (
	"context"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/internal/service"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

// TaskRelay fans board mutation events out to board subscribers. The REST
// layer is the source of truth for the mutation itself; the socket event is
// only a hint for connected clients, which is why unauthorized events are
// dropped silently instead of producing an error.
type TaskRelay struct {
	log    *slog.Logger
	router *Router
	boards repository.BoardRepository
	gate   service.MembershipGate
}

func NewTaskRelay(router *Router, boards repository.BoardRepository, gate service.MembershipGate, log *slog.Logger) *TaskRelay {
	if log == nil {
		log = slog.Default()
	}
	return &TaskRelay{log: log, router: router, boards: boards, gate: gate}
}

// Relay verifies the actor belongs to the workspace owning the board
// (two-hop lookup) and broadcasts the payload verbatim, tagged with the
// actor's profile.
func (t *TaskRelay) Relay(ctx context.Context, conn *domain.Connection, eventType string, payload *relayPayload) {
	const op = "realtime.tasks.relay"
	log := t.log.With(
		slog.String("op", op),
		slog.String("board_id", payload.BoardID.String()),
		slog.String("user_id", conn.UserID.String()),
	)

	board, err := t.boards.GetByID(ctx, payload.BoardID)
	if err != nil {
		log.Debug("dropping task event", sl.Err(err))
		return
	}

	if _, err := t.gate.CheckAccess(ctx, conn.UserID, board.WorkspaceID, domain.RoleMember); err != nil {
		log.Debug("dropping unauthorized task event", sl.Err(err))
		return
	}

	body := make(map[string]any, len(payload.Data)+1)
	maps.Copy(body, payload.Data)
	body["actor"] = conn.User

	t.router.Broadcast(domain.BoardChannel(payload.BoardID), domain.Event{
		Type:    eventType,
		Payload: body,
	})
}

// RelayWhiteboard forwards draw events to the board channel without echo to
// the originating connection. The board subscription is the authorization
// boundary here; drawing is only possible after a successful board join.
func (t *TaskRelay) RelayWhiteboard(conn *domain.Connection, eventType string, payload *relayPayload) {
	channel := domain.BoardChannel(payload.BoardID)
	if !conn.HasChannel(channel) {
		return
	}

	body := make(map[string]any, len(payload.Data)+1)
	maps.Copy(body, payload.Data)
	body["actor"] = conn.User

	t.router.Broadcast(channel, domain.Event{
		Type:    eventType,
		Payload: body,
	}, conn.ID)
}

// VerifyBoardAccess runs the board -> workspace -> membership lookup used
// on board joins.
func (t *TaskRelay) VerifyBoardAccess(ctx context.Context, userID, boardID uuid.UUID) error {
	board, err := t.boards.GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	_, err = t.gate.CheckAccess(ctx, userID, board.WorkspaceID, domain.RoleMember)
	return err
}
