package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the provider-agnostic classification of a failed request. Retry
// decisions switch on this flat tag; per-service wrappers may narrow the
// error further but must preserve the Kind and HTTP status.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindRateLimited    Kind = "rate_limited"
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation"
	KindServerError    Kind = "server_error"
	KindTimeout        Kind = "timeout"
	KindConnection     Kind = "connection_error"
	KindUnknown        Kind = "unknown"
)

// Retryable reports whether the kind is transient. Unknown is retryable,
// but the executor caps it to a single retry.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindTimeout, KindConnection, KindUnknown:
		return true
	default:
		return false
	}
}

// APIError represents a standardized error across upstream providers.
type APIError struct {
	Kind       Kind
	HTTPStatus int
	Code       string
	Message    string
	// Body is the raw upstream response body, kept for observability.
	Body []byte
	// RetryAfter is non-zero when the upstream supplied a Retry-After hint.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a standardized error.
func New(kind Kind, status int, code, message string) *APIError {
	return &APIError{Kind: kind, HTTPStatus: status, Code: code, Message: message}
}

// As extracts an *APIError from an error chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if apiErr, ok := As(err); ok {
		return apiErr.Kind
	}
	return KindUnknown
}
