// Package ratelimit provides per-key rate limiters: an in-process token bucket
// and a Redis fixed window shared by every server instance.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more event for key is allowed right now.
// An error means the decision could not be made; callers pick fail-open or fail-closed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// idleTTL is how long an untouched key keeps its bucket.
const idleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key token buckets.
// Each unique key gets its own independent bucket; idle buckets are evicted.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a keyed rate limiter.
// rps: events per second allowed per key.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := newKeyed(rps, burst, time.Now)
	go krl.cleanup(time.Minute)
	return krl
}

// PerMinute is New expressed as events per minute.
func PerMinute(n, burst int) *KeyedRateLimiter {
	return New(float64(n)/60, burst)
}

func newKeyed(rps float64, burst int, now func() time.Time) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      now,
		done:     make(chan struct{}),
	}
}

// Allow implements Limiter. It never blocks and never fails.
func (krl *KeyedRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return krl.AllowKey(key), nil
}

// AllowKey reports whether an event for key may happen now.
func (krl *KeyedRateLimiter) AllowKey(key string) bool {
	now := krl.now()

	krl.mu.Lock()
	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = now
	krl.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.evictIdle()
		}
	}
}

// evictIdle drops buckets not touched within idleTTL. A dropped bucket was
// refilled by then anyway, so eviction never loosens the limit.
func (krl *KeyedRateLimiter) evictIdle() {
	cutoff := krl.now().Add(-idleTTL)

	krl.mu.Lock()
	defer krl.mu.Unlock()
	for key, e := range krl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(krl.limiters, key)
		}
	}
}
