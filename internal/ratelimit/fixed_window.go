package ratelimit

import (
	"context"
	"sync"
	"time"

	"saasbridge-go/internal/constants"
)

// FixedWindow enforces "at most limit requests per window". Once the window
// is exhausted the caller suspends until the window rolls over. A Penalize
// cooldown (armed on upstream 429) is distinct from the window accounting:
// it is waited out first, then normal window logic resumes.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu            sync.Mutex
	count         int
	windowStart   time.Time
	cooldownUntil time.Time

	now func() time.Time
}

// NewFixedWindow creates a limiter admitting limit requests per window.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &FixedWindow{limit: limit, window: window, now: time.Now}
}

// Acquire admits one request, suspending until the current window has
// capacity. Concurrent callers race for freed slots in wake order; no strict
// ordering is guaranteed.
func (w *FixedWindow) Acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()

		if now.Before(w.cooldownUntil) {
			wait := w.cooldownUntil.Sub(now)
			w.mu.Unlock()
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.window {
			w.windowStart = now
			w.count = 0
		}
		if w.count < w.limit {
			w.count++
			w.mu.Unlock()
			return nil
		}

		wait := w.window - now.Sub(w.windowStart)
		w.mu.Unlock()
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// Penalize arms a cooldown the next Acquire must wait out before the window
// logic runs. d<=0 arms the default 429 cooldown.
func (w *FixedWindow) Penalize(d time.Duration) {
	if d <= 0 {
		d = constants.RateLimitCooldown
	}
	until := w.now().Add(d)
	w.mu.Lock()
	if until.After(w.cooldownUntil) {
		w.cooldownUntil = until
	}
	w.mu.Unlock()
}

// Remaining reports the admissions left in the current window.
func (w *FixedWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.windowStart.IsZero() || w.now().Sub(w.windowStart) >= w.window {
		return w.limit
	}
	return w.limit - w.count
}
