package constants

import "time"

const (
	// HealthCheckTimeout bounds the cheap request issued by HealthCheck.
	HealthCheckTimeout = 10 * time.Second
	// ConfigWatchDebounce coalesces rapid config-file change events.
	ConfigWatchDebounce = 100 * time.Millisecond
	// ConfigPollInterval is the fallback poll cadence when fsnotify fails.
	ConfigPollInterval = 5 * time.Second
)
