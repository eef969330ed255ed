// Package upstream implements the resilient request executor shared by all
// integration clients: rate-limited admission, retry with exponential
// backoff and jitter, and uniform error classification.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"saasbridge-go/internal/apierr"
	"saasbridge-go/internal/cache"
	"saasbridge-go/internal/config"
	"saasbridge-go/internal/constants"
	"saasbridge-go/internal/logging"
	"saasbridge-go/internal/monitoring"
	"saasbridge-go/internal/monitoring/tracing"
	"saasbridge-go/internal/ratelimit"
	"saasbridge-go/internal/transport"
)

// Client performs logical requests against one upstream API. One instance
// shares a connection pool and one rate limiter across all concurrent
// callers.
type Client struct {
	cfg      *config.Config
	cli      *http.Client
	provider string

	limiter  ratelimit.Limiter
	headers  HeaderSource
	refresh  AuthRefreshHook
	classify Classifier
	results  *cache.TTL

	idemHeader string
	idemPath   string
}

// New builds a client from configuration. The rate limiter variant is
// selected by cfg.RateLimit.Strategy; the result cache is attached when
// cfg.Cache.Enabled.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		cli:      transport.NewHTTPClient(&cfg.Client),
		provider: cfg.Client.Provider,
		limiter:  limiterFromConfig(&cfg.RateLimit),
		classify: DefaultClassifier,
	}
	if cfg.Cache.Enabled {
		c.results = cache.New(c.provider, cfg.Cache.TTL(), cfg.Cache.MaxEntries)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func limiterFromConfig(cfg *config.RateLimitConfig) ratelimit.Limiter {
	if !cfg.Enabled {
		return ratelimit.Nop{}
	}
	if cfg.Strategy == config.StrategyFixedWindow {
		return ratelimit.NewFixedWindow(cfg.WindowLimit, cfg.Window())
	}
	return ratelimit.NewTokenBucket(cfg.Capacity, cfg.PerSec)
}

// Do executes one logical request: limiter admission, then up to
// MaxRetries+1 physical attempts with classification-driven retry. The
// error returned on failure always carries the last attempt's kind, HTTP
// status, and raw body.
func (c *Client) Do(ctx context.Context, spec *RequestSpec) (*Result, error) {
	if spec.Method == "" {
		spec.Method = http.MethodGet
	}

	var cacheKey string
	if c.results != nil && spec.Method == http.MethodGet {
		cacheKey = cache.Key(spec.Method, spec.Path, spec.Query)
		if body, ok := c.results.Get(cacheKey); ok {
			return &Result{StatusCode: http.StatusOK, Body: body}, nil
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Client.Timeout())
		defer cancel()
	}

	reqID := uuid.NewString()
	spanCtx, span := tracing.StartSpan(ctx, "upstream", "Client.Do",
		trace.WithAttributes(
			attribute.String("http.method", spec.Method),
			attribute.String("http.path", spec.Path),
			attribute.String("upstream.provider", c.provider),
		))
	defer span.End()
	ctx = spanCtx

	var idemKey string
	if c.idemHeader != "" && mutating(spec.Method) {
		idemKey = uuid.NewString()
	}

	maxAttempts := 1
	if c.cfg.Retry.Enabled {
		maxAttempts = c.cfg.Retry.MaxRetries + 1
	}

	var lastErr *apierr.APIError
	attempts := 0
	attempt := 0
	authRetried := false
	unknownRetries := 0
	for {
		if err := c.acquire(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		res, apiErr, err := c.attempt(ctx, spec, reqID, idemKey)
		attempts++
		status := 0
		if apiErr != nil {
			status = apiErr.HTTPStatus
		} else if res != nil {
			status = res.StatusCode
		}
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("retry.count", attempts-1),
		))
		if err != nil {
			// cancellation or a pre-flight failure; never retried
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if apiErr == nil {
			res.Attempts = attempts
			res.RequestID = reqID
			if cacheKey != "" {
				c.results.Set(cacheKey, res.Body)
			}
			monitoring.RecordUpstreamRetry(c.provider, attempts-1, true)
			span.SetAttributes(attribute.Int("upstream.retry_total", attempts-1))
			span.SetStatus(codes.Ok, "")
			return res, nil
		}
		lastErr = apiErr

		logging.WithRequest(c.provider, reqID, spec.Method, spec.Path, log.Fields{
			"attempt": attempts,
			"kind":    string(apiErr.Kind),
			"status":  apiErr.HTTPStatus,
		}).Debug("upstream attempt failed")

		var cool time.Duration
		if apiErr.Kind == apierr.KindRateLimited {
			// dedicated cooldown, distinct from the generic backoff: hold
			// back sibling callers through the shared limiter regardless of
			// whether this call has retry budget left
			cool = apiErr.RetryAfter
			if cool <= 0 {
				cool = c.cfg.RateLimit.Cooldown()
			}
			c.limiter.Penalize(cool)
		}

		if apiErr.Kind == apierr.KindAuthentication {
			// opt-in: one forced credential refresh, then a single retry
			// that does not count against the retry budget
			if c.refresh != nil && !authRetried {
				authRetried = true
				if rerr := c.refresh.Refresh(ctx); rerr == nil {
					continue
				} else {
					log.WithError(rerr).WithField("provider", c.provider).Warn("credential refresh failed")
				}
			}
			break
		}
		if !c.retryable(apiErr) {
			break
		}
		if apiErr.Kind == apierr.KindUnknown {
			unknownRetries++
			if unknownRetries > constants.UnknownErrorMaxRetries {
				break
			}
		}
		if attempt+1 >= maxAttempts {
			break
		}

		if apiErr.Kind == apierr.KindRateLimited {
			if err := sleepCtx(ctx, cool); err != nil {
				return nil, err
			}
		} else {
			delay := c.nextBackoff(attempt)
			if apiErr.RetryAfter > delay {
				delay = apiErr.RetryAfter
			}
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
		attempt++
	}

	monitoring.RecordUpstreamRetry(c.provider, attempts-1, false)
	span.SetAttributes(attribute.Int("upstream.retry_total", attempts-1))
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())

	logging.WithRequest(c.provider, reqID, spec.Method, spec.Path, log.Fields{
		"attempts": attempts,
		"kind":     string(lastErr.Kind),
		"status":   lastErr.HTTPStatus,
	}).Warn("upstream request failed")
	return nil, lastErr
}

// DoJSON executes spec and unmarshals the response body into out.
func (c *Client) DoJSON(ctx context.Context, spec *RequestSpec, out any) error {
	res, err := c.Do(ctx, spec)
	if err != nil {
		return err
	}
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	return json.Unmarshal(res.Body, out)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Result, error) {
	return c.Do(ctx, &RequestSpec{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Do(ctx, &RequestSpec{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Do(ctx, &RequestSpec{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Do(ctx, &RequestSpec{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Result, error) {
	return c.Do(ctx, &RequestSpec{Method: http.MethodDelete, Path: path})
}

// ClearCache empties the result cache, if one is attached. Limiter
// accounting is untouched.
func (c *Client) ClearCache() {
	if c.results != nil {
		c.results.Clear()
	}
}

func (c *Client) acquire(ctx context.Context) error {
	start := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}
	monitoring.RecordRateLimitWait(c.provider, time.Since(start))
	return nil
}

// attempt performs one physical HTTP attempt. The third return value is
// reserved for cancellation and pre-flight failures, which are never
// retried; everything else comes back classified.
func (c *Client) attempt(ctx context.Context, spec *RequestSpec, reqID, idemKey string) (*Result, *apierr.APIError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	req, err := c.buildRequest(ctx, spec, reqID, idemKey)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	resp, err := c.cli.Do(req)
	dur := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		apiErr := apierr.MapNetworkError(err)
		monitoring.RecordUpstream(c.provider, dur, 0, true)
		monitoring.RecordUpstreamError(c.provider, apiErr.Code)
		return nil, apiErr, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		apiErr := apierr.MapNetworkError(readErr)
		monitoring.RecordUpstream(c.provider, dur, resp.StatusCode, true)
		monitoring.RecordUpstreamError(c.provider, apiErr.Code)
		return nil, apiErr, nil
	}

	monitoring.RecordUpstream(c.provider, dur, resp.StatusCode, false)
	if apiErr := c.classify(resp.StatusCode, resp.Header, body); apiErr != nil {
		monitoring.RecordUpstreamError(c.provider, string(apiErr.Kind))
		return nil, apiErr, nil
	}
	return &Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil, nil
}

// buildRequest assembles the HTTP request for one attempt. Headers are
// layered default headers < header source < spec overrides, so refreshed
// credentials from the source take effect on the next attempt.
func (c *Client) buildRequest(ctx context.Context, spec *RequestSpec, reqID, idemKey string) (*http.Request, error) {
	body := spec.Body
	if idemKey != "" && c.idemPath != "" && len(body) > 0 {
		if amended, err := sjson.SetBytes(body, c.idemPath, idemKey); err == nil {
			body = amended
		}
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.urlString(c.cfg.Client.BaseURL), reader)
	if err != nil {
		return nil, err
	}

	for k, v := range c.cfg.Client.DefaultHeaders {
		req.Header.Set(k, v)
	}
	if c.headers != nil {
		hdr, err := c.headers.Headers(ctx)
		if err != nil {
			return nil, err
		}
		for k, values := range hdr {
			req.Header.Del(k)
			for _, v := range values {
				req.Header.Add(k, v)
			}
		}
	}
	for k, values := range spec.Header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("X-Request-ID", reqID)
	if idemKey != "" {
		req.Header.Set(c.idemHeader, idemKey)
	}
	return req, nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
