// Package auth provides header sources for the common credential shapes
// seen across SaaS APIs: static API keys, bearer tokens, and OAuth2 token
// sources with forced refresh.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// APIKey sends a static credential in a fixed header (e.g. "X-API-KEY").
type APIKey struct {
	Header string
	Value  string
}

func (k APIKey) Headers(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set(k.Header, k.Value)
	return h, nil
}

// Bearer sends a static bearer token.
type Bearer string

func (b Bearer) Headers(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+string(b))
	return h, nil
}

// TokenSource supplies Authorization headers from an oauth2.TokenSource.
// It caches the current token until expiry and supports forced refresh, so
// it doubles as an AuthRefreshHook: after Refresh, the next attempt mints a
// fresh token even if the cached one had not expired.
type TokenSource struct {
	base oauth2.TokenSource

	mu     sync.Mutex
	cached oauth2.TokenSource
}

// NewTokenSource wraps base with expiry-based caching.
func NewTokenSource(base oauth2.TokenSource) *TokenSource {
	return &TokenSource{
		base:   base,
		cached: oauth2.ReuseTokenSource(nil, base),
	}
}

func (t *TokenSource) Headers(context.Context) (http.Header, error) {
	t.mu.Lock()
	src := t.cached
	t.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("fetch access token: %w", err)
	}
	h := http.Header{}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return h, nil
}

// Refresh drops the cached token so the next Headers call goes back to the
// underlying source.
func (t *TokenSource) Refresh(context.Context) error {
	t.mu.Lock()
	t.cached = oauth2.ReuseTokenSource(nil, t.base)
	t.mu.Unlock()
	return nil
}
