// Package chat implements the chat-completion endpoint that fronts the
// two-stage reasoning/answer pipeline.
package chat

import (
	"deepclaude-go/internal/config"
	"deepclaude-go/internal/upstream"
)

// Handler aggregates the dependencies of the chat endpoint.
type Handler struct {
	cfgMgr *config.ConfigManager
	client *upstream.Client
}

// New builds a Handler around the config manager and shared upstream client.
func New(cfgMgr *config.ConfigManager, client *upstream.Client) *Handler {
	return &Handler{cfgMgr: cfgMgr, client: client}
}
