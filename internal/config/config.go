// Package config holds per-client configuration for integration clients:
// transport timeouts, retry policy, rate limiting, and the result cache.
// Configuration is loaded from defaults, then an optional YAML file, then
// environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"saasbridge-go/internal/constants"
)

// Config is the full configuration for one integration client.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Security  SecurityConfig  `yaml:"security"`
}

// ClientConfig configures the HTTP transport and request defaults.
type ClientConfig struct {
	// Provider labels logs, metrics, and traces (e.g. "airtable", "serper").
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`

	TimeoutSec               float64 `yaml:"timeout_sec"`
	DialTimeoutSec           int     `yaml:"dial_timeout_sec"`
	TLSHandshakeTimeoutSec   int     `yaml:"tls_handshake_timeout_sec"`
	ResponseHeaderTimeoutSec int     `yaml:"response_header_timeout_sec"`
	ExpectContinueTimeoutSec int     `yaml:"expect_continue_timeout_sec"`
	ProxyURL                 string  `yaml:"proxy_url"`

	DefaultHeaders map[string]string `yaml:"default_headers"`

	// HealthPath is the cheap endpoint probed by HealthCheck.
	HealthPath string `yaml:"health_path"`
}

// RetryConfig configures the executor's retry policy.
type RetryConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MaxRetries     int     `yaml:"max_retries"`
	BaseDelaySec   float64 `yaml:"base_delay_sec"`
	MaxDelaySec    float64 `yaml:"max_delay_sec"`
	On5xx          bool    `yaml:"on_5xx"`
	OnNetworkError bool    `yaml:"on_network_error"`
}

// RateLimitConfig selects and sizes the admission gate.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// Strategy is "token_bucket" or "fixed_window".
	Strategy string  `yaml:"strategy"`
	Capacity float64 `yaml:"capacity"`
	PerSec   float64 `yaml:"per_sec"`
	// Fixed-window settings.
	WindowLimit int     `yaml:"window_limit"`
	WindowSec   float64 `yaml:"window_sec"`
	// CooldownSec is the 429 penalty; 0 means the built-in default.
	CooldownSec float64 `yaml:"cooldown_sec"`
}

// CacheConfig sizes the optional GET result cache.
type CacheConfig struct {
	Enabled    bool    `yaml:"enabled"`
	TTLSec     float64 `yaml:"ttl_sec"`
	MaxEntries int     `yaml:"max_entries"`
}

// SecurityConfig holds logging/debug knobs.
type SecurityConfig struct {
	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`
}

const (
	StrategyTokenBucket = "token_bucket"
	StrategyFixedWindow = "fixed_window"
)

// Default returns the baseline configuration before file/env merging.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Provider:   "generic",
			TimeoutSec: constants.DefaultRequestTimeout.Seconds(),
			HealthPath: "/",
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxRetries:     constants.DefaultMaxRetries,
			BaseDelaySec:   constants.DefaultRetryInterval.Seconds(),
			MaxDelaySec:    constants.DefaultMaxRetryDelay.Seconds(),
			On5xx:          true,
			OnNetworkError: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Strategy: StrategyTokenBucket,
			Capacity: 10,
			PerSec:   5,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSec:     constants.ResultCacheTTL.Seconds(),
			MaxEntries: constants.ResultCacheMaxEntries,
		},
	}
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.BaseURL) == "" {
		return fmt.Errorf("client.base_url is required")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Retry.Enabled && c.Retry.BaseDelaySec <= 0 {
		return fmt.Errorf("retry.base_delay_sec must be > 0")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Strategy {
		case StrategyTokenBucket:
			if c.RateLimit.Capacity <= 0 || c.RateLimit.PerSec <= 0 {
				return fmt.Errorf("rate_limit capacity and per_sec must be > 0")
			}
		case StrategyFixedWindow:
			if c.RateLimit.WindowLimit <= 0 || c.RateLimit.WindowSec <= 0 {
				return fmt.Errorf("rate_limit window_limit and window_sec must be > 0")
			}
		default:
			return fmt.Errorf("unknown rate_limit.strategy %q", c.RateLimit.Strategy)
		}
	}
	return nil
}

// Timeout returns the per-request timeout as a duration.
func (c *ClientConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return constants.DefaultRequestTimeout
	}
	return time.Duration(c.TimeoutSec * float64(time.Second))
}

// BaseDelay returns the retry base delay as a duration.
func (c *RetryConfig) BaseDelay() time.Duration {
	if c.BaseDelaySec <= 0 {
		return constants.DefaultRetryInterval
	}
	return time.Duration(c.BaseDelaySec * float64(time.Second))
}

// MaxDelay returns the backoff ceiling as a duration.
func (c *RetryConfig) MaxDelay() time.Duration {
	if c.MaxDelaySec <= 0 {
		return constants.DefaultMaxRetryDelay
	}
	return time.Duration(c.MaxDelaySec * float64(time.Second))
}

// Window returns the fixed-window period as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSec * float64(time.Second))
}

// Cooldown returns the 429 penalty duration, falling back to the default.
func (c *RateLimitConfig) Cooldown() time.Duration {
	if c.CooldownSec <= 0 {
		return constants.RateLimitCooldown
	}
	return time.Duration(c.CooldownSec * float64(time.Second))
}

// TTL returns the result cache TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	if c.TTLSec <= 0 {
		return constants.ResultCacheTTL
	}
	return time.Duration(c.TTLSec * float64(time.Second))
}
