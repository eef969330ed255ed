package constants

import "time"

// HTTP client connection pool settings.
const (
	BaseMaxIdleConns        = 256
	BaseMaxIdleConnsPerHost = 32
	BaseIdleConnTimeout     = 90 * time.Second

	DefaultKeepAlive = 30 * time.Second
)

// HTTP timeout settings.
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second

	// DefaultRequestTimeout bounds one whole logical attempt when the caller
	// does not bring its own context deadline.
	DefaultRequestTimeout = 30 * time.Second
)
