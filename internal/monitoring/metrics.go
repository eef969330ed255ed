package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream API call metrics.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"provider", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saasbridge_upstream_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	UpstreamRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_upstream_retry_attempts_total",
			Help: "Total number of upstream retry attempts",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_upstream_errors_total",
			Help: "Total number of upstream errors by reason",
		},
		[]string{"provider", "reason"},
	)

	// Rate limiter metrics.
	RateLimitWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saasbridge_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate limiter admission",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"provider"},
	)

	RateLimitKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "saasbridge_rate_limit_keys",
			Help: "Number of live per-key limiter buckets",
		},
	)

	RateLimitSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saasbridge_rate_limit_sweeps_total",
			Help: "Total number of limiter cache sweeps",
		},
	)

	// Result cache metrics.
	ResultCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_result_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"provider"},
	)

	ResultCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_result_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"provider"},
	)

	// Health check metrics.
	HealthChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saasbridge_health_checks_total",
			Help: "Total number of health checks by outcome",
		},
		[]string{"provider", "outcome"},
	)
)
