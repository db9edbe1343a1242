package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ConfigManager manages the configuration file and hot reload.
type ConfigManager struct {
	mu         sync.RWMutex
	config     *FileConfig
	configPath string
	stopCh     chan struct{}
	stopOnce   sync.Once
	onChange   []func(*FileConfig)
	lastMod    time.Time
}

// NewConfigManager creates a manager for the given path. An empty path probes
// the usual locations and falls back to built-in defaults.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		locations := []string{
			"config.toml",
			"config.yaml",
			"config.yml",
			"config.json",
			filepath.Join(os.Getenv("HOME"), ".deepclaude", "config.toml"),
			"/etc/deepclaude/config.toml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if strings.HasPrefix(configPath, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, configPath[1:])
	}

	cm := &ConfigManager{
		configPath: configPath,
		stopCh:     make(chan struct{}),
		onChange:   make([]func(*FileConfig), 0),
	}

	if err := cm.load(); err != nil {
		if os.IsNotExist(err) || configPath == "" {
			cm.config = cm.defaultConfig()
			log.WithField("path", configPath).Warn("using default configuration (no config file found)")
		} else {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cm.mergeEnvVars()

	if err := Validate(cm.config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cm.configPath != "" {
		if _, err := os.Stat(cm.configPath); err == nil {
			cm.startWatcher()
		}
	}

	return cm, nil
}

// OnChange registers a callback for configuration changes.
func (cm *ConfigManager) OnChange(fn func(*FileConfig)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onChange = append(cm.onChange, fn)
}

// GetConfig returns the current configuration. The returned value is read-only;
// reload installs a freshly parsed instance rather than mutating it.
func (cm *ConfigManager) GetConfig() *FileConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.config == nil {
		return cm.defaultConfig()
	}
	return cm.config
}

// Close stops the configuration manager.
func (cm *ConfigManager) Close() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

func (cm *ConfigManager) listenersSnapshot() []func(*FileConfig) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	callbacks := make([]func(*FileConfig), len(cm.onChange))
	copy(callbacks, cm.onChange)
	return callbacks
}

func (cm *ConfigManager) emitChange(newCfg *FileConfig) {
	for _, fn := range cm.listenersSnapshot() {
		fn(newCfg)
	}
}
