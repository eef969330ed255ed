package upstream

import (
	"math"
	"math/rand"
	"time"

	"saasbridge-go/internal/apierr"
	"saasbridge-go/internal/constants"
)

// nextBackoff computes the delay before retry attempt n (0-based): an
// exponential curve capped at the configured ceiling, plus 0-10% jitter so
// concurrent callers retrying in lockstep spread out.
func (c *Client) nextBackoff(attempt int) time.Duration {
	base := float64(c.cfg.Retry.BaseDelay())
	max := float64(c.cfg.Retry.MaxDelay())
	dur := base * math.Pow(constants.RetryBackoffFactor, float64(attempt))
	if dur > max {
		dur = max
	}
	jitter := rand.Float64() * constants.JitterFraction * dur
	return time.Duration(dur + jitter)
}

// retryable applies the configured gates on top of the kind's inherent
// retryability.
func (c *Client) retryable(e *apierr.APIError) bool {
	if !e.Kind.Retryable() {
		return false
	}
	switch e.Kind {
	case apierr.KindServerError:
		return c.cfg.Retry.On5xx
	case apierr.KindTimeout, apierr.KindConnection:
		return c.cfg.Retry.OnNetworkError
	default:
		return true
	}
}
