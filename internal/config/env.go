package config

import (
	"os"
	"strconv"
	"strings"
)

func (c *Config) mergeEnvVars() {
	if v := os.Getenv("SAASBRIDGE_PROVIDER"); v != "" {
		c.Client.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SAASBRIDGE_BASE_URL"); v != "" {
		c.Client.BaseURL = v
	}
	if v := os.Getenv("SAASBRIDGE_TIMEOUT_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Client.TimeoutSec = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_PROXY_URL"); v != "" {
		c.Client.ProxyURL = v
	}
	if v := os.Getenv("SAASBRIDGE_HEALTH_PATH"); v != "" {
		c.Client.HealthPath = v
	}

	if v := os.Getenv("SAASBRIDGE_RETRY_ENABLED"); v != "" {
		c.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAASBRIDGE_RETRY_MAX"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("SAASBRIDGE_RETRY_BASE_DELAY_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Retry.BaseDelaySec = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_RETRY_MAX_DELAY_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Retry.MaxDelaySec = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_RETRY_ON_5XX"); v != "" {
		c.Retry.On5xx = parseBool(v)
	}
	if v := os.Getenv("SAASBRIDGE_RETRY_ON_NETWORK_ERROR"); v != "" {
		c.Retry.OnNetworkError = parseBool(v)
	}

	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_STRATEGY"); v != "" {
		c.RateLimit.Strategy = strings.ToLower(v)
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_CAPACITY"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.RateLimit.Capacity = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_PER_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.RateLimit.PerSec = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_WINDOW_LIMIT"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.RateLimit.WindowLimit = n
		}
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_WINDOW_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.RateLimit.WindowSec = f
		}
	}
	if v := os.Getenv("SAASBRIDGE_RATE_LIMIT_COOLDOWN_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.RateLimit.CooldownSec = f
		}
	}

	if v := os.Getenv("SAASBRIDGE_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAASBRIDGE_CACHE_TTL_SEC"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Cache.TTLSec = f
		}
	}

	if v := os.Getenv("SAASBRIDGE_DEBUG"); v != "" {
		c.Security.Debug = parseBool(v)
	}
	if v := os.Getenv("SAASBRIDGE_LOG_FILE"); v != "" {
		c.Security.LogFile = v
	}
}

func parseInt(v string) (int, error)       { return strconv.Atoi(strings.TrimSpace(v)) }
func parseFloat(v string) (float64, error) { return strconv.ParseFloat(strings.TrimSpace(v), 64) }

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return !(v == "false" || v == "0" || v == "off" || v == "")
}
