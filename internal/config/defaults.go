package config

// Backend ids every deployment starts with. Additional ids become valid the
// moment they appear under [endpoints].
const (
	BackendDeepSeek  = "deepseek"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

func (cm *ConfigManager) defaultConfig() *FileConfig {
	return &FileConfig{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          3000,
			DefaultTarget: BackendOpenAI,
		},
		Endpoints: map[string]string{
			BackendDeepSeek:  "https://api.deepseek.com/chat/completions",
			BackendOpenAI:    "https://api.openai.com/v1/chat/completions",
			BackendAnthropic: "https://api.anthropic.com/v1/chat/completions",
		},
		Models: map[string]string{
			BackendDeepSeek:  "deepseek-reasoner",
			BackendOpenAI:    "gpt-3.5-turbo",
			BackendAnthropic: "claude-3-5-sonnet-latest",
		},
		Tokens:  map[string]string{},
		Aliases: map[string]AliasConfig{},
		APIKeys: map[string]map[string]string{},
	}
}

// applyDefaults fills unset fields on a freshly parsed config so callers can
// rely on non-nil maps and a usable server block.
func applyDefaults(cfg *FileConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.DefaultTarget == "" {
		cfg.Server.DefaultTarget = BackendOpenAI
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = map[string]string{}
	}
	if cfg.Models == nil {
		cfg.Models = map[string]string{}
	}
	if cfg.Tokens == nil {
		cfg.Tokens = map[string]string{}
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]AliasConfig{}
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]map[string]string{}
	}
}
