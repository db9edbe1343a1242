package config

// FileConfig is the on-disk configuration. A loaded instance is never mutated
// after load(); hot reload swaps in a freshly parsed value.
type FileConfig struct {
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`

	// Endpoints maps a backend id to its chat-completion endpoint URL.
	Endpoints map[string]string `toml:"endpoints" yaml:"endpoints" json:"endpoints"`

	// Models maps a backend id to its default model name.
	Models map[string]string `toml:"models" yaml:"models" json:"models"`

	// Tokens maps a backend id to its default bearer token.
	Tokens map[string]string `toml:"tokens" yaml:"tokens" json:"tokens"`

	// Aliases maps a request model name to per-backend substitutions.
	Aliases map[string]AliasConfig `toml:"aliases" yaml:"aliases" json:"aliases"`

	// APIKeys maps an inbound API key to per-backend token overrides,
	// keyed as "<backend>_token" (deepseek_token, openai_token, ...).
	APIKeys map[string]map[string]string `toml:"api_keys" yaml:"api_keys" json:"api_keys"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	Host           string `toml:"host" yaml:"host" json:"host"`
	Port           int    `toml:"port" yaml:"port" json:"port"`
	Debug          bool   `toml:"debug" yaml:"debug" json:"debug"`
	LogFile        string `toml:"log_file" yaml:"log_file" json:"log_file"`
	AccessToken    string `toml:"access_token" yaml:"access_token" json:"access_token"`
	DefaultTarget  string `toml:"default_target" yaml:"default_target" json:"default_target"`
	RateLimitRPS   int    `toml:"rate_limit_rps" yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int    `toml:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`
	ProxyURL       string `toml:"proxy_url" yaml:"proxy_url" json:"proxy_url"`

	ResponseHeaderTimeoutSec int `toml:"response_header_timeout_sec" yaml:"response_header_timeout_sec" json:"response_header_timeout_sec"`
	IdleFragmentTimeoutSec   int `toml:"idle_fragment_timeout_sec" yaml:"idle_fragment_timeout_sec" json:"idle_fragment_timeout_sec"`
}

// AliasConfig substitutes backend models when the request names the alias.
type AliasConfig struct {
	DeepSeekModel string                 `toml:"deepseek_model" yaml:"deepseek_model" json:"deepseek_model"`
	TargetModel   string                 `toml:"target_model" yaml:"target_model" json:"target_model"`
	Parameters    map[string]interface{} `toml:"parameters" yaml:"parameters" json:"parameters"`
}

// KeyToken returns the token a per-key mapping carries for a backend.
func KeyToken(entry map[string]string, backend string) string {
	if entry == nil {
		return ""
	}
	return entry[backend+"_token"]
}
