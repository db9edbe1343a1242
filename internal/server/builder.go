package server

import (
	"deepclaude-go/internal/config"
	"deepclaude-go/internal/middleware"
	"deepclaude-go/internal/upstream"
	"github.com/gin-gonic/gin"
)

// Dependencies carries the shared services the engine is assembled from.
type Dependencies struct {
	ConfigManager *config.ConfigManager
	Client        *upstream.Client
}

// BuildEngine assembles the gin engine with the full middleware chain.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.ConfigManager.GetConfig()

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.CORS(),
		middleware.APIKey(),
	)
	if cfg.Server.RateLimitRPS > 0 {
		engine.Use(middleware.RateLimiterAutoKey(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	}

	registerRoutes(engine, deps)
	return engine
}
