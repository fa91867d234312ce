package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/domain"
)

func newTestConn(name string) *domain.Connection {
	return domain.NewConnection(domain.Profile{
		ID:   uuid.New(),
		Name: name,
	})
}

// nextEvent pops the next queued event or fails the test after a second.
func nextEvent(t *testing.T, conn *domain.Connection) domain.Event {
	t.Helper()
	select {
	case event := <-conn.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

// waitForEvent drains the connection until an event of the wanted type
// arrives, failing the test when the queue stays silent too long.
func waitForEvent(t *testing.T, conn *domain.Connection, eventType string) domain.Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case event := <-conn.Events:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", eventType)
			return domain.Event{}
		}
	}
}

// expectSilence asserts nothing is queued for the connection.
func expectSilence(t *testing.T, conn *domain.Connection) {
	t.Helper()
	select {
	case event := <-conn.Events:
		t.Fatalf("unexpected event %q", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func errorReason(t *testing.T, event domain.Event) string {
	t.Helper()
	payload, ok := event.Payload.(domain.ErrorPayload)
	if !ok {
		t.Fatalf("event %q does not carry an error payload", event.Type)
	}
	return payload.Reason
}

func eventPayload(t *testing.T, event domain.Event) map[string]any {
	t.Helper()
	payload, ok := event.Payload.(map[string]any)
	if !ok {
		t.Fatalf("event %q payload is %T, not a map", event.Type, event.Payload)
	}
	return payload
}
