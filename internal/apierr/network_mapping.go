package apierr

import (
	"context"
	"errors"
	"net"
	"strings"
)

// MapNetworkError maps transport-level errors (no response received) to
// standardized errors. Context cancellation is passed through untouched so
// callers can distinguish their own cancellation from upstream flakiness.
func MapNetworkError(err error) *APIError {
	errMsg := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, 0, "timeout", "Request timeout: "+errMsg)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindTimeout, 0, "timeout", "Request timeout: "+errMsg)
	}

	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return New(KindTimeout, 0, "timeout", "Request timeout: "+errMsg)
	case strings.Contains(errMsg, "connection refused"):
		return New(KindConnection, 0, "connection_refused", "Connection refused: "+errMsg)
	case strings.Contains(errMsg, "EOF") || strings.Contains(errMsg, "connection reset"):
		return New(KindConnection, 0, "connection_error", "Connection error: "+errMsg)
	case strings.Contains(errMsg, "broken pipe"):
		return New(KindConnection, 0, "connection_error", "Connection error: "+errMsg)
	case strings.Contains(errMsg, "no such host") || strings.Contains(errMsg, "name resolution"):
		return New(KindConnection, 0, "dns_error", "DNS resolution error: "+errMsg)
	case strings.Contains(errMsg, "certificate") || strings.Contains(errMsg, "tls"):
		return New(KindConnection, 0, "tls_error", "TLS/Certificate error: "+errMsg)
	default:
		return New(KindConnection, 0, "network_error", "Network error: "+errMsg)
	}
}
