package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/teamspace/internal/api/http/converter"
	"github.com/immxrtalbeast/teamspace/internal/domain"
	"github.com/immxrtalbeast/teamspace/internal/realtime"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/internal/service"
)

type WorkspaceController struct {
	workspaces service.WorkspaceInteractor
	rooms      repository.RoomRepository
	hub        *realtime.Hub
}

func NewWorkspaceController(workspaces service.WorkspaceInteractor, rooms repository.RoomRepository, hub *realtime.Hub) *WorkspaceController {
	return &WorkspaceController{workspaces: workspaces, rooms: rooms, hub: hub}
}

func (c *WorkspaceController) CreateWorkspace(ctx *gin.Context) {
	type request struct {
		Name  string `json:"name" binding:"required"`
		Owner string `json:"owner" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	owner, err := uuid.Parse(req.Owner)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner uuid"})
		return
	}

	workspace, err := c.workspaces.CreateWorkspace(ctx.Request.Context(), req.Name, owner)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"workspace": workspace})
}

func (c *WorkspaceController) GetWorkspace(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("workspaceID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	workspace, err := c.workspaces.GetWorkspace(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrWorkspaceNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	online := c.hub.Registry().ListOnline(id)
	ctx.JSON(http.StatusOK, gin.H{"workspace": converter.WorkspaceToApi(workspace, online)})
}

func (c *WorkspaceController) AddMember(ctx *gin.Context) {
	workspaceID, err := uuid.Parse(ctx.Param("workspaceID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	type request struct {
		Actor  string `json:"actor" binding:"required"`
		UserID string `json:"user_id" binding:"required"`
		Role   string `json:"role"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actor, err := uuid.Parse(req.Actor)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid actor uuid"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user uuid"})
		return
	}

	err = c.workspaces.AddMember(ctx.Request.Context(), actor, workspaceID, userID, domain.Role(req.Role))
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *WorkspaceController) ListMembers(ctx *gin.Context) {
	workspaceID, err := uuid.Parse(ctx.Param("workspaceID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	members, err := c.workspaces.ListMembers(ctx.Request.Context(), workspaceID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members": members})
}

func (c *WorkspaceController) ListMessages(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	messages, err := c.rooms.ListMessages(ctx.Request.Context(), roomID, 50)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": converter.MessagesToApi(messages)})
}
