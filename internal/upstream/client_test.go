package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saasbridge-go/internal/apierr"
	"saasbridge-go/internal/config"
	"saasbridge-go/internal/ratelimit"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Client.Provider = "test"
	cfg.Client.BaseURL = baseURL
	cfg.Retry.BaseDelaySec = 0.01
	cfg.Retry.MaxDelaySec = 0.1
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.CooldownSec = 0.05
	return cfg
}

func TestGetSuccess(t *testing.T) {
	var gotAccept, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1"}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.Get(context.Background(), "/v0/base/tbl", url.Values{"maxRecords": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "rec1", res.Field("records.0.id").String())
	assert.Equal(t, "application/json", gotAccept)
	assert.NotEmpty(t, gotRequestID)
}

func TestRetryBoundOnPersistentServerError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 3
	c := New(cfg)

	_, err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&attempts), "max_retries=3 means exactly 4 attempts")

	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindServerError, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatus)
	assert.Equal(t, "boom", apiErr.Message)
	assert.NotEmpty(t, apiErr.Body)
}

func TestFatalShortCircuit(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 422} {
		var attempts int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(status)
		}))

		cfg := testConfig(srv.URL)
		cfg.Retry.MaxRetries = 3
		cfg.Retry.BaseDelaySec = 0.5 // a sleep would be visible
		c := New(cfg)

		start := time.Now()
		_, err := c.Get(context.Background(), "/x", nil)
		elapsed := time.Since(start)
		srv.Close()

		require.Error(t, err, "status %d", status)
		assert.EqualValues(t, 1, atomic.LoadInt32(&attempts), "status %d must not retry", status)
		assert.Less(t, elapsed, 200*time.Millisecond, "status %d must not back off", status)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 5
	c := New(cfg)

	res, err := c.Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, res.Field("ok").Bool())
}

func TestRateLimitedUsesCooldownNotBackoff(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 2
	cfg.RateLimit.CooldownSec = 0.08 // well above the 10ms backoff base
	c := New(cfg)

	start := time.Now()
	res, err := c.Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond, "429 retry must wait the dedicated cooldown")
}

type recordingLimiter struct {
	mu        sync.Mutex
	acquires  int
	penalties []time.Duration
}

func (l *recordingLimiter) Acquire(context.Context) error {
	l.mu.Lock()
	l.acquires++
	l.mu.Unlock()
	return nil
}

func (l *recordingLimiter) Penalize(d time.Duration) {
	l.mu.Lock()
	l.penalties = append(l.penalties, d)
	l.mu.Unlock()
}

func TestRetryAfterPenalizesSharedLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 0 // no local retry, but siblings must still be held back
	lim := &recordingLimiter{}
	c := New(cfg, WithLimiter(lim))

	_, err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindRateLimited, apiErr.Kind)
	assert.Equal(t, 30*time.Second, apiErr.RetryAfter)

	lim.mu.Lock()
	defer lim.mu.Unlock()
	require.Len(t, lim.penalties, 1)
	assert.Equal(t, 30*time.Second, lim.penalties[0])
}

type flipToken struct {
	mu    sync.Mutex
	token string
}

func (f *flipToken) Headers(context.Context) (http.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := http.Header{}
	h.Set("Authorization", "Bearer "+f.token)
	return h, nil
}

func (f *flipToken) Refresh(context.Context) error {
	f.mu.Lock()
	f.token = "fresh"
	f.mu.Unlock()
	return nil
}

func TestAuthRefreshThenRetryOnce(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := &flipToken{token: "stale"}
	c := New(testConfig(srv.URL), WithHeaderSource(src), WithAuthRefreshHook(src))

	res, err := c.Get(context.Background(), "/me", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestAuthFatalWithoutHook(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 3
	c := New(cfg)

	_, err := c.Get(context.Background(), "/me", nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindAuthentication, apierr.KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestAuthRefreshIsSingleShot(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := &flipToken{token: "stale"}
	c := New(testConfig(srv.URL), WithHeaderSource(src), WithAuthRefreshHook(src))

	_, err := c.Get(context.Background(), "/me", nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindAuthentication, apierr.KindOf(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts), "refresh buys exactly one extra attempt")
}

func TestNetworkErrorRetryToggle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close() // now refuses connections

	cfg := testConfig(deadURL)
	cfg.Retry.MaxRetries = 2
	cfg.Retry.OnNetworkError = false
	c := New(cfg)

	start := time.Now()
	_, err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindConnection, apierr.KindOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no retries when on_network_error=false")

	cfg2 := testConfig(deadURL)
	cfg2.Retry.MaxRetries = 2
	cfg2.Retry.BaseDelaySec = 0.02
	c2 := New(cfg2)

	start = time.Now()
	_, err = c2.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindConnection, apierr.KindOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "expected backoff between connection retries")
}

func TestUnknownKindRetriedAtMostOnce(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 5
	c := New(cfg, WithClassifier(func(status int, _ http.Header, body []byte) *apierr.APIError {
		return apierr.New(apierr.KindUnknown, status, "unknown_error", "unclassifiable response")
	}))

	_, err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindUnknown, apierr.KindOf(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthy" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.Enabled = false
	cfg.Client.HealthPath = "/healthy"
	report := New(cfg).HealthCheck(context.Background())
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Error)

	cfg2 := testConfig(srv.URL)
	cfg2.Retry.Enabled = false
	cfg2.Client.HealthPath = "/broken"
	report = New(cfg2).HealthCheck(context.Background())
	assert.False(t, report.Healthy)
	assert.NotEmpty(t, report.Error)
}

func TestResultCacheServesRepeatedGets(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Cache.Enabled = true
	cfg.Cache.TTLSec = 60
	c := New(cfg)

	q := url.Values{"q": {"golang"}}
	for i := 0; i < 3; i++ {
		res, err := c.Get(context.Background(), "/search", q)
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Field("n").Int())
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "repeat GETs must be served from cache")

	c.ClearCache()
	_, err := c.Get(context.Background(), "/search", q)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestTokenBucketGatesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Strategy = config.StrategyTokenBucket
	cfg.RateLimit.Capacity = 1
	cfg.RateLimit.PerSec = 50
	c := New(cfg)

	ctx := context.Background()
	_, err := c.Get(ctx, "/a", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Get(ctx, "/b", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "second call should wait for refill")
}

func TestSharedLimiterAcrossClients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	shared := ratelimit.NewTokenBucket(1, 50)
	a := New(testConfig(srv.URL), WithLimiter(shared))
	b := New(testConfig(srv.URL), WithLimiter(shared))

	ctx := context.Background()
	_, err := a.Get(ctx, "/a", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = b.Get(ctx, "/b", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "clients share one quota")
}

func TestCancellationStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 10
	cfg.Retry.BaseDelaySec = 5
	c := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Get(ctx, "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIdempotencyKeyStableAcrossRetries(t *testing.T) {
	var keys []string
	var bodies []string
	var mu sync.Mutex
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		bodies = append(bodies, string(buf))
		mu.Unlock()
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 2
	c := New(cfg, WithIdempotencyKeys("Idempotency-Key", "meta.key"))

	res, err := c.Post(context.Background(), "/records", []byte(`{"fields":{"Name":"x"},"meta":{}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "same key on every attempt of one logical call")
	assert.Contains(t, bodies[0], keys[0], "key injected into body at meta.key")
}

func TestHeaderLayering(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Client.DefaultHeaders = map[string]string{"X-Client": "saasbridge", "X-Tier": "default"}
	c := New(cfg, WithHeaderSource(&flipToken{token: "tok"}))

	spec := &RequestSpec{
		Method: http.MethodGet,
		Path:   "/x",
		Header: http.Header{"X-Tier": {"override"}},
	}
	_, err := c.Do(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, "saasbridge", got.Get("X-Client"))
	assert.Equal(t, "override", got.Get("X-Tier"), "spec headers win")
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
}

func TestNextBackoffBounds(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Retry.BaseDelaySec = 1
	cfg.Retry.MaxDelaySec = 3600 // effectively uncapped for this test
	c := New(cfg)

	prevCeiling := time.Duration(0)
	for k := 0; k < 6; k++ {
		floor := time.Duration(float64(time.Second) * float64(int(1)<<k))
		ceiling := time.Duration(float64(floor) * 1.1)
		for i := 0; i < 50; i++ {
			d := c.nextBackoff(k)
			assert.GreaterOrEqual(t, d, floor, "k=%d", k)
			assert.LessOrEqual(t, d, ceiling, "k=%d", k)
		}
		assert.Greater(t, floor, prevCeiling/2, "growth must be monotone")
		prevCeiling = ceiling
	}
}

func TestNextBackoffCappedByMaxDelay(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Retry.BaseDelaySec = 1
	cfg.Retry.MaxDelaySec = 2
	c := New(cfg)

	for i := 0; i < 20; i++ {
		d := c.nextBackoff(10)
		assert.LessOrEqual(t, d, time.Duration(float64(2*time.Second)*1.1))
	}
}
