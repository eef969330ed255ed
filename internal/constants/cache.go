package constants

import "time"

// Result cache settings.
const (
	ResultCacheTTL        = 30 * time.Second
	ResultCacheMaxEntries = 1000
	CacheSweepInterval    = 2 * time.Minute
)

// Keyed limiter cache settings.
const (
	LimiterCacheTTL           = 15 * time.Minute
	LimiterCacheSweepInterval = 2 * time.Minute
)
