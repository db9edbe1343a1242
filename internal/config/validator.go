package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the server could not run with.
func Validate(cfg *FileConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	target := strings.TrimSpace(cfg.Server.DefaultTarget)
	if target == "" {
		return fmt.Errorf("server.default_target must be set")
	}
	if _, ok := cfg.Endpoints[target]; !ok {
		return fmt.Errorf("server.default_target %q has no entry under [endpoints]", target)
	}
	if cfg.Server.RateLimitRPS < 0 || cfg.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must be non-negative")
	}
	for name, alias := range cfg.Aliases {
		if strings.TrimSpace(alias.DeepSeekModel) == "" && strings.TrimSpace(alias.TargetModel) == "" && len(alias.Parameters) == 0 {
			return fmt.Errorf("alias %q is empty", name)
		}
	}
	return nil
}
