package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket admits requests from a capped pool of credits refilled
// continuously at a fixed rate. It is a thin wrapper around x/time/rate that
// adds cost-based acquisition and the shared Penalize cooldown.
type TokenBucket struct {
	lim *rate.Limiter

	mu        sync.Mutex
	notBefore time.Time
}

// NewTokenBucket creates a bucket holding up to capacity tokens, refilled at
// perSec tokens per second. The bucket starts full.
func NewTokenBucket(capacity float64, perSec float64) *TokenBucket {
	burst := int(math.Ceil(capacity))
	if burst < 1 {
		burst = 1
	}
	if perSec <= 0 {
		perSec = 1
	}
	return &TokenBucket{lim: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Acquire takes one token, suspending until it is available.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	return b.AcquireN(ctx, 1)
}

// AcquireN takes cost tokens atomically, suspending until they are
// available. A cost greater than the bucket capacity is a caller error and
// fails immediately rather than blocking forever.
func (b *TokenBucket) AcquireN(ctx context.Context, cost int) error {
	if err := b.waitCooldown(ctx); err != nil {
		return err
	}
	if err := b.lim.WaitN(ctx, cost); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("token bucket acquire(%d): %w", cost, err)
	}
	return nil
}

// Penalize delays the next admission by at least d. Later penalties extend
// an armed cooldown, they never shorten it.
func (b *TokenBucket) Penalize(d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)
	b.mu.Lock()
	if until.After(b.notBefore) {
		b.notBefore = until
	}
	b.mu.Unlock()
}

// Tokens reports the tokens currently available. Fractional values are valid
// intermediate state.
func (b *TokenBucket) Tokens() float64 { return b.lim.Tokens() }

// Capacity reports the maximum token pool size.
func (b *TokenBucket) Capacity() int { return b.lim.Burst() }

func (b *TokenBucket) waitCooldown(ctx context.Context) error {
	b.mu.Lock()
	until := b.notBefore
	b.mu.Unlock()
	return sleepCtx(ctx, time.Until(until))
}
