package domain

import "encoding/json"

// Envelope is the inbound wire frame: a type tag plus an opaque payload
// decoded per handler.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is the outbound wire frame. Payload is marshalled by the
// connection writer.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload is the normalized body of every scoped *_error event.
type ErrorPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

const (
	ReasonUnauthorized      = "unauthorized"
	ReasonNotFound          = "not_found"
	ReasonBadPayload        = "bad_payload"
	ReasonPersistenceFailed = "persistence_failed"
	ReasonInternal          = "internal"
)

func ErrorEvent(eventType, reason, message string) Event {
	return Event{
		Type:    eventType,
		Payload: ErrorPayload{Reason: reason, Message: message},
	}
}
