package upstream

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// RequestSpec describes one logical request. It is immutable across
// attempts; headers are regenerated fresh for every attempt so refreshed
// credentials take effect mid-call.
type RequestSpec struct {
	Method string
	// Path is resolved relative to the client's base URL.
	Path  string
	Query url.Values
	// Body is the serialized JSON payload, nil for body-less methods.
	Body []byte
	// Header entries override default and source-provided headers.
	Header http.Header
}

// Result is the parsed success payload of one logical request.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts is the number of physical HTTP attempts made.
	Attempts int
	// RequestID correlates log lines for this logical call.
	RequestID string
}

// Field extracts a JSON field from the response body by gjson path.
func (r *Result) Field(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

func (s *RequestSpec) urlString(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if len(s.Query) > 0 {
		u += "?" + s.Query.Encode()
	}
	return u
}
