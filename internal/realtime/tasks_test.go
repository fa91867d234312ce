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

type taskFixture struct {
	relay      *TaskRelay
	router     *Router
	boards     *repository.InMemoryBoardRepository
	workspaces *repository.InMemoryWorkspaceRepository
}

func newTaskFixture() *taskFixture {
	router := NewRouter(nil)
	boards := repository.NewInMemoryBoardRepository()
	workspaces := repository.NewInMemoryWorkspaceRepository()
	gate := service.NewMembershipService(workspaces)
	return &taskFixture{
		relay:      NewTaskRelay(router, boards, gate, nil),
		router:     router,
		boards:     boards,
		workspaces: workspaces,
	}
}

func (f *taskFixture) createBoard(t *testing.T, workspaceID uuid.UUID) *domain.Board {
	t.Helper()
	board := &domain.Board{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "sprint",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.boards.Create(context.Background(), board))
	return board
}

func TestTaskRelayBroadcastsVerbatimWithActor(t *testing.T) {
	f := newTaskFixture()
	workspaceID := uuid.New()
	board := f.createBoard(t, workspaceID)

	actor := newTestConn("actor")
	watcher := newTestConn("watcher")
	grantMembership(t, f.workspaces, workspaceID, actor.UserID)
	f.router.Join(actor, domain.BoardChannel(board.ID))
	f.router.Join(watcher, domain.BoardChannel(board.ID))

	raw := json.RawMessage(`{"board_id":"` + board.ID.String() + `","task_id":"t-1","title":"ship it"}`)
	payload, err := parseRelayPayload(raw)
	require.NoError(t, err)

	f.relay.Relay(context.Background(), actor, EventTaskCreated, payload)

	event := waitForEvent(t, watcher, EventTaskCreated)
	body := eventPayload(t, event)
	assert.Equal(t, "t-1", body["task_id"])
	assert.Equal(t, "ship it", body["title"])
	assert.Equal(t, actor.User, body["actor"])

	// The actor's own subscription hears the event as well.
	waitForEvent(t, actor, EventTaskCreated)
}

func TestTaskRelayDropsSilentlyWithoutMembership(t *testing.T) {
	f := newTaskFixture()
	board := f.createBoard(t, uuid.New())

	outsider := newTestConn("outsider")
	watcher := newTestConn("watcher")
	f.router.Join(watcher, domain.BoardChannel(board.ID))

	payload, err := parseRelayPayload(json.RawMessage(`{"board_id":"` + board.ID.String() + `"}`))
	require.NoError(t, err)

	f.relay.Relay(context.Background(), outsider, EventTaskMoved, payload)

	expectSilence(t, outsider)
	expectSilence(t, watcher)
}

func TestTaskRelayDropsUnknownBoard(t *testing.T) {
	f := newTaskFixture()
	conn := newTestConn("actor")

	payload, err := parseRelayPayload(json.RawMessage(`{"board_id":"` + uuid.NewString() + `"}`))
	require.NoError(t, err)

	f.relay.Relay(context.Background(), conn, EventTaskDeleted, payload)
	expectSilence(t, conn)
}

func TestWhiteboardRelayExcludesDrawer(t *testing.T) {
	f := newTaskFixture()
	board := f.createBoard(t, uuid.New())

	drawer := newTestConn("drawer")
	viewer := newTestConn("viewer")
	f.router.Join(drawer, domain.BoardChannel(board.ID))
	f.router.Join(viewer, domain.BoardChannel(board.ID))

	payload, err := parseRelayPayload(json.RawMessage(`{"board_id":"` + board.ID.String() + `","x":10,"y":20}`))
	require.NoError(t, err)

	f.relay.RelayWhiteboard(drawer, EventWhiteboardDraw, payload)

	event := waitForEvent(t, viewer, EventWhiteboardDraw)
	body := eventPayload(t, event)
	assert.Equal(t, float64(10), body["x"])
	assert.Equal(t, drawer.User, body["actor"])
	expectSilence(t, drawer)
}

func TestWhiteboardRelayRequiresBoardSubscription(t *testing.T) {
	f := newTaskFixture()
	board := f.createBoard(t, uuid.New())

	drawer := newTestConn("drawer")
	viewer := newTestConn("viewer")
	f.router.Join(viewer, domain.BoardChannel(board.ID))

	payload, err := parseRelayPayload(json.RawMessage(`{"board_id":"` + board.ID.String() + `"}`))
	require.NoError(t, err)

	f.relay.RelayWhiteboard(drawer, EventWhiteboardDraw, payload)
	expectSilence(t, viewer)
}

func TestVerifyBoardAccess(t *testing.T) {
	f := newTaskFixture()
	workspaceID := uuid.New()
	board := f.createBoard(t, workspaceID)
	member := uuid.New()
	grantMembership(t, f.workspaces, workspaceID, member)

	assert.NoError(t, f.relay.VerifyBoardAccess(context.Background(), member, board.ID))
	assert.Error(t, f.relay.VerifyBoardAccess(context.Background(), uuid.New(), board.ID))
	assert.Error(t, f.relay.VerifyBoardAccess(context.Background(), member, uuid.New()))
}
