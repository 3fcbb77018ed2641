// bucket.go
// ---------
// TokenBucket is the capacity+refill-rate primitive behind both the
// per-deployment token and request buckets the Coordinator manages. It is
// the Go translation of codex-rs's core/src/rate_limiter.rs::TokenBucket,
// kept as a hand-rolled mutex-guarded struct rather than golang.org/x/time/rate
// because the coordinator needs refund/force-debit semantics (for
// reconciliation and dynamic re-sizing) that rate.Limiter doesn't expose.
package aoaiclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// maxAcquireAttempts bounds the acquire retry loop so pathological
// parameters fail loudly instead of spinning forever. Requests above
// capacity and a zero refill rate are rejected by their own checks first.
const maxAcquireAttempts = 100

// TokenBucket is a capacity-bounded, lazily-refilled bucket of fractional
// tokens. It is safe for concurrent use; all mutation happens under a
// single mutex and no critical section blocks on I/O.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	current    float64
	refillRate float64 // units per second
	lastRefill time.Time
}

// NewTokenBucket creates a bucket starting at full capacity.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		current:    capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// refillLocked tops the bucket up based on elapsed wall time. Must be called
// with mu held.
func (b *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.current = min(b.capacity, b.current+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// Available returns the current token count after a refill pass.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.current
}

// Capacity returns the bucket's configured capacity.
func (b *TokenBucket) Capacity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Acquire blocks until n tokens are available, then debits them.
//
// It fails fast, before any sleep, when n exceeds capacity: such a request
// can never be satisfied. Otherwise it loops: refill, check, and if still
// short, sleep for the deficit divided by the refill rate. A zero refill
// rate fails as soon as the bucket is short, and a hard bound of
// maxAcquireAttempts keeps any other pathological case from looping forever.
func (b *TokenBucket) Acquire(ctx context.Context, n float64) error {
	b.mu.Lock()
	capacity := b.capacity
	b.mu.Unlock()
	if n > capacity {
		return fmt.Errorf("token bucket: requested %.0f exceeds capacity %.0f", n, capacity)
	}

	for attempt := 0; ; attempt++ {
		b.mu.Lock()
		b.refillLocked()
		if b.current >= n {
			b.current -= n
			b.mu.Unlock()
			return nil
		}
		deficit := n - b.current
		rate := b.refillRate
		b.mu.Unlock()

		if attempt >= maxAcquireAttempts {
			return fmt.Errorf("token bucket: max attempts reached waiting for %.0f tokens", n)
		}
		if rate <= 0 {
			return fmt.Errorf("token bucket: refill rate is zero, cannot satisfy %.0f tokens", n)
		}

		wait := time.Duration(deficit / rate * float64(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Refund adds tokens back immediately, clamped to capacity. Used after
// reconciling an over-estimate against real usage.
func (b *TokenBucket) Refund(n float64) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = min(b.capacity, b.current+n)
}

// ForceDebit subtracts tokens immediately without waiting, floored at zero.
// Used after reconciling an under-estimate and when re-sizing a bucket to a
// smaller dynamic capacity.
func (b *TokenBucket) ForceDebit(n float64) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = max(0, b.current-n)
}
