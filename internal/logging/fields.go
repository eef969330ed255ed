package logging

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// WithRequest builds a log entry enriched with common upstream-request
// fields. Any extras passed in are merged (extras win on key conflicts).
func WithRequest(provider, requestID, method, path string, extras log.Fields) *log.Entry {
	fields := log.Fields{
		"provider":   provider,
		"request_id": requestID,
		"method":     method,
		"path":       path,
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}

// DurationMS converts a duration to integer milliseconds for logging.
func DurationMS(d time.Duration) int64 { return d.Milliseconds() }
