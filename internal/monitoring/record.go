package monitoring

import (
	"fmt"
	"math"
	"time"
)

func statusClass(status int) string {
	if status <= 0 {
		return "0xx"
	}
	return fmt.Sprintf("%dxx", status/100)
}

// RecordUpstream records one upstream attempt's duration and status class.
func RecordUpstream(provider string, dur time.Duration, status int, networkErr bool) {
	cls := statusClass(status)
	if networkErr {
		cls = "network_error"
	}
	durSec := dur.Seconds()
	if math.IsNaN(durSec) || math.IsInf(durSec, 0) {
		durSec = 0
	}
	UpstreamRequestsTotal.WithLabelValues(provider, cls).Inc()
	UpstreamRequestDuration.WithLabelValues(provider).Observe(durSec)
}

// RecordUpstreamRetry adds retry attempt counts (attempts beyond the first).
func RecordUpstreamRetry(provider string, attempts int, success bool) {
	if attempts <= 0 {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	UpstreamRetryAttempts.WithLabelValues(provider, outcome).Add(float64(attempts))
}

// RecordUpstreamError increments upstream errors by reason.
func RecordUpstreamError(provider, reason string) {
	if reason == "" {
		reason = "other"
	}
	UpstreamErrors.WithLabelValues(provider, reason).Inc()
}

// RecordRateLimitWait records time spent blocked on limiter admission.
func RecordRateLimitWait(provider string, dur time.Duration) {
	RateLimitWaitDuration.WithLabelValues(provider).Observe(dur.Seconds())
}

// SetLimiterKeyGauge tracks live per-key limiter buckets.
func SetLimiterKeyGauge(n int) { RateLimitKeys.Set(float64(n)) }

// RecordLimiterSweep counts limiter cache sweeps.
func RecordLimiterSweep() { RateLimitSweeps.Inc() }

// RecordCacheHit / RecordCacheMiss track result cache effectiveness.
func RecordCacheHit(provider string)  { ResultCacheHits.WithLabelValues(provider).Inc() }
func RecordCacheMiss(provider string) { ResultCacheMisses.WithLabelValues(provider).Inc() }

// RecordHealthCheck counts health probes by outcome.
func RecordHealthCheck(provider string, healthy bool) {
	outcome := "unhealthy"
	if healthy {
		outcome = "healthy"
	}
	HealthChecksTotal.WithLabelValues(provider, outcome).Inc()
}
