package server

import (
	"net/http"

	"deepclaude-go/internal/constants"
	"deepclaude-go/internal/handlers/chat"
	"deepclaude-go/internal/middleware"
	"github.com/gin-gonic/gin"
)

func registerRoutes(engine *gin.Engine, deps Dependencies) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": constants.GetVersion()})
	})

	h := chat.New(deps.ConfigManager, deps.Client)

	// Consulted per request so a hot-reloaded token takes effect immediately.
	auth := middleware.RequireAccessToken(func() string {
		return deps.ConfigManager.GetConfig().Server.AccessToken
	})

	engine.POST("/", auth, h.ChatCompletions)
	engine.POST("/v1/chat/completions", auth, h.ChatCompletions)
}
