package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/teamspace/internal/auth"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/realtime"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
)

// RealtimeController upgrades authenticated clients to a websocket and
// pumps envelopes between the socket and the hub.
type RealtimeController struct {
	hub         *realtime.Hub
	verifier    *auth.Verifier
	log         *slog.Logger
	stunServers []string
	upgrader    websocket.Upgrader
}

func NewRealtimeController(hub *realtime.Hub, verifier *auth.Verifier, stunServers []string, log *slog.Logger) *RealtimeController {
	if log == nil {
		log = slog.Default()
	}
	return &RealtimeController{
		hub:         hub,
		verifier:    verifier,
		log:         log,
		stunServers: stunServers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect authenticates the bearer credential once, refuses the connection
// on failure, and otherwise runs the read loop until the transport closes.
func (c *RealtimeController) Connect(ctx *gin.Context) {
	identity, err := c.verifier.Verify(bearerToken(ctx))
	if err != nil {
		status := http.StatusUnauthorized
		reason := "invalid_token"
		if errors.Is(err, auth.ErrExpiredToken) {
			reason = "expired_token"
		}
		ctx.JSON(status, gin.H{"error": "authentication failed", "reason": reason})
		return
	}

	socket, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	conn := domain.NewConnection(domain.Profile{
		ID:        identity.UserID,
		Name:      identity.Name,
		Email:     identity.Email,
		AvatarURL: identity.AvatarURL,
	})
	conn.Socket = socket

	c.hub.Register(conn)
	go forwardEvents(conn)

	conn.EnqueueEvent(domain.Event{
		Type: "connected",
		Payload: map[string]any{
			"connection_id": conn.ID,
			"user":          conn.User,
		},
	})

	for {
		var envelope domain.Envelope
		if err := socket.ReadJSON(&envelope); err != nil {
			c.hub.Disconnect(conn)
			socket.Close()
			return
		}
		c.hub.Dispatch(context.Background(), conn, envelope)
	}
}

// IceConfig hands clients the STUN servers to use when negotiating calls.
func (c *RealtimeController) IceConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"ice_servers": []gin.H{
			{"urls": c.stunServers},
		},
	})
}

func forwardEvents(conn *domain.Connection) {
	for event := range conn.Events {
		if conn.Socket == nil {
			return
		}
		if err := conn.Socket.WriteJSON(event); err != nil {
			return
		}
	}
}

func bearerToken(ctx *gin.Context) string {
	if token := ctx.Query("token"); token != "" {
		return token
	}
	header := ctx.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
