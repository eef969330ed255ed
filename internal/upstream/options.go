package upstream

import (
	"net/http"

	"saasbridge-go/internal/ratelimit"
)

// Option customizes a Client beyond what configuration expresses.
type Option func(*Client)

// WithHeaderSource sets the per-attempt header supplier (typically auth).
func WithHeaderSource(src HeaderSource) Option {
	return func(c *Client) { c.headers = src }
}

// WithAuthRefreshHook opts into refresh-then-retry-once on authentication
// failures.
func WithAuthRefreshHook(hook AuthRefreshHook) Option {
	return func(c *Client) { c.refresh = hook }
}

// WithClassifier replaces the default response classifier.
func WithClassifier(fn Classifier) Option {
	return func(c *Client) { c.classify = fn }
}

// WithLimiter replaces the config-derived limiter, e.g. to share one
// limiter across several clients hitting the same quota.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient replaces the pooled transport (tests, custom TLS).
func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) { c.cli = cli }
}

// WithIdempotencyKeys stamps mutating requests with a per-logical-call key
// in headerName, kept stable across retry attempts so a retried mutation is
// safe. When bodyPath is non-empty the key is also injected into the JSON
// body at that path, for APIs that want it there.
func WithIdempotencyKeys(headerName, bodyPath string) Option {
	return func(c *Client) {
		if headerName == "" {
			headerName = "Idempotency-Key"
		}
		c.idemHeader = headerName
		c.idemPath = bodyPath
	}
}
