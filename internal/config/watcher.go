package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"saasbridge-go/internal/constants"
)

func (m *Manager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		go m.pollLoop()
		return
	}

	if err := watcher.Add(m.configPath); err != nil {
		log.WithError(err).WithField("path", m.configPath).Warn("failed to watch config file, falling back to polling")
		watcher.Close()
		go m.pollLoop()
		return
	}
	// Also watch the directory to catch atomic writes (rename operations).
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		log.WithError(err).Warn("failed to watch config directory")
	}

	log.WithField("path", m.configPath).Debug("config watcher started using fsnotify")

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-m.stopCh:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.configPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(constants.ConfigWatchDebounce, m.checkAndReload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			}
		}
	}()
}

func (m *Manager) pollLoop() {
	ticker := time.NewTicker(constants.ConfigPollInterval)
	defer ticker.Stop()

	var lastMod time.Time
	if fi, err := os.Stat(m.configPath); err == nil {
		lastMod = fi.ModTime()
	}
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			fi, err := os.Stat(m.configPath)
			if err != nil {
				continue
			}
			if fi.ModTime().After(lastMod) {
				lastMod = fi.ModTime()
				m.checkAndReload()
			}
		}
	}
}
