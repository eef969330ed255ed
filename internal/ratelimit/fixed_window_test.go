package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock drives FixedWindow without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFixedWindowAdmitsUpToLimit(t *testing.T) {
	w := NewFixedWindow(3, time.Minute)
	clk := &fakeClock{now: time.Unix(1000, 0)}
	w.now = clk.Now

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := w.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	w := NewFixedWindow(2, time.Minute)
	clk := &fakeClock{now: time.Unix(1000, 0)}
	w.now = clk.Now

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}
	clk.Advance(time.Minute)
	if got := w.Remaining(); got != 2 {
		t.Fatalf("expected full window after rollover, got %d", got)
	}
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("acquire after rollover: %v", err)
	}
	if got := w.Remaining(); got != 1 {
		t.Fatalf("count should restart at 1, got remaining %d", got)
	}
}

func TestFixedWindowBlocksUntilRollover(t *testing.T) {
	w := NewFixedWindow(1, 30*time.Millisecond)
	ctx := context.Background()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	start := time.Now()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("second acquire should have waited out the window, took %v", elapsed)
	}
}

func TestFixedWindowCancellationWhileWaiting(t *testing.T) {
	w := NewFixedWindow(1, time.Hour)
	ctx := context.Background()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := w.Acquire(cctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
	// accounting was never half-applied: one slot still consumed
	if got := w.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
}

func TestFixedWindowPenaltyBeforeWindowLogic(t *testing.T) {
	w := NewFixedWindow(10, time.Minute)
	w.Penalize(40 * time.Millisecond)
	start := time.Now()
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("cooldown skipped, acquire took %v", elapsed)
	}
}

func TestFixedWindowDefaultPenalty(t *testing.T) {
	w := NewFixedWindow(1, time.Second)
	clk := &fakeClock{now: time.Unix(1000, 0)}
	w.now = clk.Now
	w.Penalize(0)
	w.mu.Lock()
	cooldown := w.cooldownUntil.Sub(clk.Now())
	w.mu.Unlock()
	if cooldown != 30*time.Second {
		t.Fatalf("expected default 30s cooldown, got %v", cooldown)
	}
}
