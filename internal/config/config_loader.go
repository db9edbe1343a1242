package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func (cm *ConfigManager) load() error {
	if cm.configPath == "" {
		return os.ErrNotExist
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	config, err := Parse(data, cm.configPath)
	if err != nil {
		return err
	}

	if info, err := os.Stat(cm.configPath); err == nil {
		cm.lastMod = info.ModTime()
	}

	cm.config = config
	log.WithField("path", cm.configPath).Info("configuration loaded")

	return nil
}

// Parse decodes raw config bytes, picking the codec from the file extension.
// Extensionless input is tried as TOML, then YAML, then JSON.
func Parse(data []byte, path string) (*FileConfig, error) {
	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &config); err != nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				if err := json.Unmarshal(data, &config); err != nil {
					return nil, fmt.Errorf("failed to parse config file (tried TOML, YAML and JSON)")
				}
			}
		}
	}

	applyDefaults(&config)
	return &config, nil
}
