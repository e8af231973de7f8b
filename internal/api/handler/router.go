package handler

import (
	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/auth"
	"chatsock/backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts the live endpoint at the root and the REST API under
// the configured base path.
func NewRouter(h *Handler) *gin.Engine {
	if h.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.GinLogger(h.Log), logger.GinRecovery(h.Log), ErrorRenderer(h.Config.IsProduction(), h.Log))

	r.GET("/", h.Introduction)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group(h.Config.APIBasePath, auth.Middleware(h.Verifier, h.Config.JWT.Header))
	api.GET("", h.Status)
	api.GET("/", h.Status)

	authed := api.Group("", auth.RequireUser())
	authed.GET("/list", h.ListInbox)
	authed.GET("/:target/:target_id", h.History)
	authed.POST("/:target/:target_id", h.CreateMessage)
	authed.POST("/:target/:target_id/:message_id", h.UpdateMessage)
	authed.DELETE("/:target/:target_id/:message_id", h.DeleteMessage)

	r.NoRoute(func(c *gin.Context) {
		fail(c, apperr.RouteNotFound(c.Request.URL.Path))
	})
	return r
}
