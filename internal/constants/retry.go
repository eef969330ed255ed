package constants

import "time"

// Retry policy defaults shared by all integration clients.
const (
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 1 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	RetryBackoffFactor   = 2.0

	// JitterFraction bounds the random jitter added to each backoff delay
	// (0..10% of the computed delay).
	JitterFraction = 0.1

	// RateLimitCooldown is the penalty applied when the upstream returns 429
	// even though local accounting believed capacity existed.
	RateLimitCooldown = 30 * time.Second

	// UnknownErrorMaxRetries caps retries for outcomes we cannot classify.
	UnknownErrorMaxRetries = 1
)

// Error reporting limits.
const (
	MaxErrorMessageLength = 200
)
