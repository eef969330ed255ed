// Package ratelimit provides the client-side admission gates placed in front
// of the request executor: a token-bucket limiter for steady per-second caps
// and a fixed-window limiter for "N requests per period" quotas. Both are
// best-effort, in-process limiters; no cross-process coordination is
// attempted.
package ratelimit

import (
	"context"
	"time"
)

// Limiter gates request issuance. Acquire suspends the calling goroutine
// (never an OS thread pool slot beyond the goroutine itself) until capacity
// exists or ctx is done. Penalize arms an additional cooldown applied before
// the next admission, used when the upstream signals 429 even though local
// accounting believed capacity existed.
type Limiter interface {
	Acquire(ctx context.Context) error
	Penalize(d time.Duration)
}

// Nop admits everything immediately. Used when rate limiting is disabled.
type Nop struct{}

func (Nop) Acquire(context.Context) error { return nil }
func (Nop) Penalize(time.Duration)        {}

// sleepCtx waits for d, returning early with ctx.Err() on cancellation.
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
