package config

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Manager owns a live configuration loaded from a file and keeps it fresh
// when the file changes on disk. Readers get an immutable snapshot; change
// subscribers are notified with the new snapshot after a successful reload.
type Manager struct {
	configPath string

	mu          sync.RWMutex
	config      *Config
	subscribers []func(*Config)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager loads path and starts watching it for changes.
func NewManager(path string) (*Manager, error) {
	cfg, err := LoadWithFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{configPath: path, config: cfg, stopCh: make(chan struct{})}
	m.startWatcher()
	return m, nil
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Subscribe registers fn to run after every successful reload.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// Close stops the file watcher.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) checkAndReload() {
	cfg, err := LoadWithFile(m.configPath)
	if err != nil {
		log.WithError(err).WithField("path", m.configPath).Warn("config reload failed, keeping previous configuration")
		return
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Warn("reloaded config invalid, keeping previous configuration")
		return
	}
	m.mu.Lock()
	m.config = cfg
	subs := make([]func(*Config), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	log.WithField("path", m.configPath).Info("configuration reloaded")
	for _, fn := range subs {
		fn(cfg)
	}
}
