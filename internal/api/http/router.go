package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(realtimeController *RealtimeController, workspaceController *WorkspaceController, userController *UserController, allowOrigins []string) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	if len(allowOrigins) > 0 {
		config.AllowOrigins = allowOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowCredentials = len(allowOrigins) > 0
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	if realtimeController != nil {
		api.GET("/ws", realtimeController.Connect)
		api.GET("/webrtc/config", realtimeController.IceConfig)
	}

	if userController != nil {
		users := api.Group("/users")
		users.POST("/create", userController.CreateUser)
		users.GET("/:userID", userController.GetUser)
	}

	if workspaceController != nil {
		workspaces := api.Group("/workspaces")
		workspaces.POST("/create", workspaceController.CreateWorkspace)
		workspaces.GET("/:workspaceID", workspaceController.GetWorkspace)
		workspaces.POST("/:workspaceID/members", workspaceController.AddMember)
		workspaces.GET("/:workspaceID/members", workspaceController.ListMembers)
		api.GET("/rooms/:roomID/messages", workspaceController.ListMessages)
	}

	return router
}
