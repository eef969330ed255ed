package apierr

import (
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	if d, ok := ParseRetryAfter("15"); !ok || d != 15*time.Second {
		t.Fatalf("expected 15s, got %v ok=%v", d, ok)
	}
	if d, ok := ParseRetryAfter("-3"); !ok || d != 0 {
		t.Fatalf("negative seconds should clamp to 0, got %v ok=%v", d, ok)
	}
	date := time.Now().Add(30 * time.Second).Format(time.RFC1123)
	if d, ok := ParseRetryAfter(date); !ok || d < 29*time.Second || d > 31*time.Second {
		t.Fatalf("unexpected duration for date header: %v ok=%v", d, ok)
	}
	past := time.Now().Add(-time.Minute).Format(time.RFC1123)
	if d, ok := ParseRetryAfter(past); !ok || d != 0 {
		t.Fatalf("past date should clamp to 0, got %v ok=%v", d, ok)
	}
	if _, ok := ParseRetryAfter(""); ok {
		t.Fatalf("expected empty string to fail")
	}
	if _, ok := ParseRetryAfter("soon"); ok {
		t.Fatalf("expected garbage to fail")
	}
}
