package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables override file values so deployments can keep tokens
// out of the config file.
func (cm *ConfigManager) mergeEnvVars() {
	if cm.config == nil {
		return
	}

	if v := strings.TrimSpace(os.Getenv("DEEPCLAUDE_HOST")); v != "" {
		cm.config.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("DEEPCLAUDE_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cm.config.Server.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEEPCLAUDE_DEBUG")); v != "" {
		cm.config.Server.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("DEEPCLAUDE_ACCESS_TOKEN")); v != "" {
		cm.config.Server.AccessToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DEEPCLAUDE_DEFAULT_TARGET")); v != "" {
		cm.config.Server.DefaultTarget = v
	}

	for backend, env := range map[string]string{
		BackendDeepSeek:  "DEEPSEEK_API_TOKEN",
		BackendOpenAI:    "OPENAI_API_TOKEN",
		BackendAnthropic: "ANTHROPIC_API_TOKEN",
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			cm.config.Tokens[backend] = v
		}
	}
}
