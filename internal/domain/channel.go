package domain

import "github.com/google/uuid"

// Channel keys name the logical broadcast groups connections subscribe to.
const (
	channelWorkspace = "workspace:"
	channelRoom      = "room:"
	channelBoard     = "board:"
	channelDocument  = "document:"
	channelCall      = "call:"
	channelUser      = "user:"
)

func WorkspaceChannel(id uuid.UUID) string { return channelWorkspace + id.String() }
func RoomChannel(id uuid.UUID) string      { return channelRoom + id.String() }
func BoardChannel(id uuid.UUID) string     { return channelBoard + id.String() }
func DocumentChannel(id uuid.UUID) string  { return channelDocument + id.String() }
func CallChannel(id string) string         { return channelCall + id }
func UserChannel(id uuid.UUID) string      { return channelUser + id.String() }
