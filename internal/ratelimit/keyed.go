package ratelimit

import (
	"context"
	"sync"
	"time"

	"saasbridge-go/internal/constants"
	"saasbridge-go/internal/monitoring"
)

type keyedEntry struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// KeyedBuckets holds one token bucket per key (API key, host, tenant) with
// TTL eviction and opportunistic sweeping, for integrations whose quota is
// sharded. An optional global bucket guards the aggregate rate.
type KeyedBuckets struct {
	mu        sync.Mutex
	items     map[string]*keyedEntry
	ttl       time.Duration
	lastSweep time.Time

	capacity float64
	perSec   float64
	global   *TokenBucket
}

// NewKeyedBuckets creates a per-key bucket cache. Each key gets its own
// bucket with the given capacity and refill rate; entries idle longer than
// ttl are evicted.
func NewKeyedBuckets(capacity, perSec float64, ttl time.Duration) *KeyedBuckets {
	if ttl <= 0 {
		ttl = constants.LimiterCacheTTL
	}
	return &KeyedBuckets{
		items:    make(map[string]*keyedEntry),
		ttl:      ttl,
		capacity: capacity,
		perSec:   perSec,
	}
}

// WithGlobal adds an aggregate guard bucket sized at mult times the per-key
// settings. All Acquire calls pass through it before their key bucket.
func (k *KeyedBuckets) WithGlobal(mult float64) *KeyedBuckets {
	if mult <= 0 {
		mult = 5
	}
	k.global = NewTokenBucket(k.capacity*mult, k.perSec*mult)
	return k
}

// Acquire admits one request for key, suspending until both the global
// guard (if any) and the key's bucket have capacity.
func (k *KeyedBuckets) Acquire(ctx context.Context, key string) error {
	if k.global != nil {
		if err := k.global.Acquire(ctx); err != nil {
			return err
		}
	}
	return k.bucket(key).Acquire(ctx)
}

// Penalize cools down a single key's bucket.
func (k *KeyedBuckets) Penalize(key string, d time.Duration) {
	k.bucket(key).Penalize(d)
}

func (k *KeyedBuckets) bucket(key string) *TokenBucket {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.items[key]; ok {
		e.lastSeen = now
		return e.bucket
	}
	b := NewTokenBucket(k.capacity, k.perSec)
	k.items[key] = &keyedEntry{bucket: b, lastSeen: now}
	monitoring.SetLimiterKeyGauge(len(k.items))
	// opportunistic sweep on insert
	if k.lastSweep.IsZero() || now.Sub(k.lastSweep) > constants.LimiterCacheSweepInterval {
		k.sweepLocked(now)
		k.lastSweep = now
	}
	return b
}

func (k *KeyedBuckets) sweepLocked(now time.Time) {
	for key, e := range k.items {
		if now.Sub(e.lastSeen) > k.ttl {
			delete(k.items, key)
		}
	}
	monitoring.SetLimiterKeyGauge(len(k.items))
	monitoring.RecordLimiterSweep()
}

// Len reports the live bucket count.
func (k *KeyedBuckets) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.items)
}
