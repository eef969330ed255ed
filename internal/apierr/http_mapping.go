package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"

	"saasbridge-go/internal/constants"
)

// MapHTTPError maps an upstream HTTP status code and payload to a
// standardized error. Classification priority follows the shared taxonomy:
// 401/403 authentication, 404 not-found, 429 rate-limited (Retry-After
// honored), remaining 4xx validation, 5xx server error, anything else
// unknown.
func MapHTTPError(statusCode int, header http.Header, upstreamBody []byte) *APIError {
	upstreamMsg := extractUpstreamMessage(upstreamBody)

	var e *APIError
	switch {
	case statusCode == http.StatusUnauthorized:
		e = New(KindAuthentication, statusCode, "invalid_api_key", firstNonEmpty(upstreamMsg, "Invalid authentication"))
	case statusCode == http.StatusForbidden:
		e = New(KindAuthentication, statusCode, "permission_denied", firstNonEmpty(upstreamMsg, "Permission denied"))
	case statusCode == http.StatusNotFound:
		e = New(KindNotFound, statusCode, "not_found", firstNonEmpty(upstreamMsg, "Resource not found"))
	case statusCode == http.StatusTooManyRequests:
		e = New(KindRateLimited, statusCode, "rate_limit_exceeded", firstNonEmpty(upstreamMsg, "Rate limit exceeded"))
		if header != nil {
			if d, ok := ParseRetryAfter(header.Get("Retry-After")); ok {
				e.RetryAfter = d
			}
		}
	case statusCode >= 400 && statusCode < 500:
		e = New(KindValidation, statusCode, "invalid_request_error", firstNonEmpty(upstreamMsg, "Invalid request"))
	case statusCode >= 500:
		e = New(KindServerError, statusCode, "server_error", firstNonEmpty(upstreamMsg, fmt.Sprintf("HTTP %d error", statusCode)))
		if statusCode == http.StatusServiceUnavailable && header != nil {
			if d, ok := ParseRetryAfter(header.Get("Retry-After")); ok {
				e.RetryAfter = d
			}
		}
	default:
		e = New(KindUnknown, statusCode, "unknown_error", firstNonEmpty(upstreamMsg, fmt.Sprintf("HTTP %d error", statusCode)))
	}
	e.Body = upstreamBody
	return e
}

func extractUpstreamMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var jsonErr map[string]interface{}
	if err := json.Unmarshal(body, &jsonErr); err == nil {
		if errObj, ok := jsonErr["error"].(map[string]interface{}); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
		// some providers use a flat {"message": "..."} envelope
		if msg, ok := jsonErr["message"].(string); ok && msg != "" {
			return msg
		}
	}
	msg := string(body)
	if len(msg) > constants.MaxErrorMessageLength {
		return msg[:constants.MaxErrorMessageLength] + "..."
	}
	return msg
}

func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}
