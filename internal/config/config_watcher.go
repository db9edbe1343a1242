package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

func (cm *ConfigManager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		cm.startPollingWatcher()
		return
	}

	if err := watcher.Add(cm.configPath); err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("failed to watch config file, falling back to polling")
		watcher.Close()
		cm.startPollingWatcher()
		return
	}

	// Also watch the directory to catch atomic writes (rename operations)
	configDir := filepath.Dir(cm.configPath)
	if err := watcher.Add(configDir); err != nil {
		log.WithError(err).WithField("dir", configDir).Warn("failed to watch config directory")
	}

	log.WithField("path", cm.configPath).Info("file watcher started using fsnotify")

	go func() {
		defer watcher.Close()

		// Debounce timer to avoid multiple reloads on rapid changes
		var debounceTimer *time.Timer
		debounceDuration := 100 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Name == cm.configPath && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(debounceDuration, func() {
						cm.checkAndReload()
					})
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")

			case <-cm.stopCh:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()
}

// startPollingWatcher is a fallback when fsnotify is not available
func (cm *ConfigManager) startPollingWatcher() {
	ticker := time.NewTicker(5 * time.Second)
	log.WithField("interval", "5s").Info("file watcher started using polling")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cm.checkAndReload()
			case <-cm.stopCh:
				return
			}
		}
	}()
}

func (cm *ConfigManager) checkAndReload() {
	if cm.configPath == "" {
		return
	}

	info, err := os.Stat(cm.configPath)
	if err != nil {
		return
	}

	cm.mu.Lock()
	if !info.ModTime().After(cm.lastMod) {
		cm.mu.Unlock()
		return
	}

	oldConfig := cm.config
	if err := cm.load(); err != nil {
		cm.mu.Unlock()
		log.WithError(err).WithField("path", cm.configPath).Warn("failed to reload config")
		return
	}
	cm.mergeEnvVars()
	newConfig := cm.config

	if err := Validate(newConfig); err != nil {
		// Keep serving the previous config when the new file is broken.
		cm.config = oldConfig
		cm.mu.Unlock()
		log.WithError(err).WithField("path", cm.configPath).Warn("rejecting invalid reloaded config")
		return
	}
	cm.mu.Unlock()

	cm.emitChange(newConfig)
	cm.logConfigChanges(oldConfig, newConfig)
}

func (cm *ConfigManager) logConfigChanges(old, new *FileConfig) {
	if old == nil || new == nil {
		return
	}
	if old.Server.Port != new.Server.Port {
		log.WithFields(log.Fields{"field": "port", "old": old.Server.Port, "new": new.Server.Port}).Info("config changed")
	}
	if old.Server.Debug != new.Server.Debug {
		log.WithFields(log.Fields{"field": "debug", "old": old.Server.Debug, "new": new.Server.Debug}).Info("config changed")
	}
	if old.Server.DefaultTarget != new.Server.DefaultTarget {
		log.WithFields(log.Fields{"field": "default_target", "old": old.Server.DefaultTarget, "new": new.Server.DefaultTarget}).Info("config changed")
	}
	if len(old.Endpoints) != len(new.Endpoints) {
		log.WithFields(log.Fields{"field": "endpoints", "old": len(old.Endpoints), "new": len(new.Endpoints)}).Info("config changed")
	}
	if len(old.Aliases) != len(new.Aliases) {
		log.WithFields(log.Fields{"field": "aliases", "old": len(old.Aliases), "new": len(new.Aliases)}).Info("config changed")
	}
}
