package upstream

import (
	"context"
	"net/http"

	"saasbridge-go/internal/apierr"
)

// Classifier maps a raw response to a standardized error, or nil for
// success. Per-service clients inject their own to recognize provider
// quirks; the default applies the shared taxonomy.
type Classifier func(status int, header http.Header, body []byte) *apierr.APIError

// DefaultClassifier treats every status below 400 as success and maps the
// rest through the shared taxonomy.
func DefaultClassifier(status int, header http.Header, body []byte) *apierr.APIError {
	if status < 400 {
		return nil
	}
	return apierr.MapHTTPError(status, header, body)
}

// HeaderSource supplies per-attempt headers (typically Authorization).
// It is consulted before every physical attempt.
type HeaderSource interface {
	Headers(ctx context.Context) (http.Header, error)
}

// AuthRefreshHook opts a client into refresh-then-retry-once semantics on
// authentication failures. Without a hook, authentication errors are fatal
// on first occurrence.
type AuthRefreshHook interface {
	Refresh(ctx context.Context) error
}
