package domain

import (
	"time"

	"github.com/google/uuid"
)

type DocumentAccess string

const (
	DocumentRead  DocumentAccess = "read"
	DocumentWrite DocumentAccess = "write"
	DocumentAdmin DocumentAccess = "admin"
)

// DocumentPermission grants a user access to a collaborative document.
type DocumentPermission struct {
	DocumentID uuid.UUID      `json:"document_id"`
	UserID     uuid.UUID      `json:"user_id"`
	Access     DocumentAccess `json:"access"`
}

// DocumentSnapshot is a persisted capture of a document's merged state.
// The bytes are opaque to the server; the update format owns their meaning.
type DocumentSnapshot struct {
	DocumentID uuid.UUID
	State      []byte
	UpdatedAt  time.Time
}

// DocumentEditSession binds one connection to a document it is editing and
// tracks when the next snapshot is due.
type DocumentEditSession struct {
	ConnectionID string
	DocumentID   uuid.UUID
	Access       DocumentAccess
	Updates      int
	LastSnapshot time.Time
}
