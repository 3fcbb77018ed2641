// coordinator.go
// --------------
// The Rate-Limit Coordinator: the component that ties a TokenBucket pair
// (tokens + requests) per deployment key to a shared circuit
// breaker and adaptive pacer, resizes buckets dynamically from response
// headers, and reconciles pre-charged token estimates against actual
// usage. Grounded on codex-rs/core/src/azure_rate_limiter.rs's
// AzureOpenAIRateLimiter, far and away the largest single piece of this
// module.
package aoaiclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/opsbridge/aoaiclient/internal/httpheader"
)

// limiterContext records the key/model pair an acquire most recently
// resolved against, so a later update_from_response (which only has
// headers, not the original call's key) knows which buckets to resize.
type limiterContext struct {
	bucketKey string
	modelHint string
}

// Coordinator manages token and request buckets per bucket key, gated by
// a shared circuit breaker and paced by a shared adaptive pacer.
type Coordinator struct {
	mu sync.Mutex

	config CoordinatorConfig
	limits map[string]RateLimits // model -> current (possibly dynamically resized) limits

	tokenBuckets   map[string]*TokenBucket
	requestBuckets map[string]*TokenBucket

	breaker *CircuitBreaker
	pacer   *AdaptivePacer

	lastContext *limiterContext
}

// NewCoordinator builds a Coordinator from config.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	initial, min, max := config.pacerRates()
	return &Coordinator{
		config:         config,
		limits:         map[string]RateLimits{},
		tokenBuckets:   map[string]*TokenBucket{},
		requestBuckets: map[string]*TokenBucket{},
		breaker:        NewCircuitBreaker(config.CircuitBreakerThreshold, 2, config.CircuitBreakerTimeout),
		pacer:          NewAdaptivePacer(initial, min, max),
	}
}

// modelLimitsLocked resolves a model's current limits, seeding the map
// from config defaults on first use. Must be called with mu held.
func (c *Coordinator) modelLimitsLocked(model string) RateLimits {
	if rl, ok := c.limits[model]; ok {
		return rl
	}
	rl := c.config.limitsFor(model)
	c.limits[model] = rl
	return rl
}

func (c *Coordinator) tokenBucketLocked(key string, limits RateLimits) *TokenBucket {
	if b, ok := c.tokenBuckets[key]; ok {
		return b
	}
	rps := float64(limits.TokensPerMinute) / 60.0
	b := NewTokenBucket(float64(limits.TokensPerMinute), rps)
	c.tokenBuckets[key] = b
	return b
}

func (c *Coordinator) requestBucketLocked(key string, limits RateLimits) *TokenBucket {
	if b, ok := c.requestBuckets[key]; ok {
		return b
	}
	rps := float64(limits.RequestsPerMinute) / 60.0
	b := NewTokenBucket(float64(limits.RequestsPerMinute), rps)
	c.requestBuckets[key] = b
	return b
}

// Acquire reserves capacity for a single request against model's own
// bucket key (bucket key == model), pre-charging estimatedTokens.
func (c *Coordinator) Acquire(ctx context.Context, model string, estimatedTokens int) error {
	return c.AcquireForDeployment(ctx, model, model, estimatedTokens)
}

// AcquireForDeployment reserves capacity keyed by (deployment, modelHint):
// Azure deployments share a model family's limits but have independent
// buckets per deployment name. The sequence matters: the circuit breaker
// is checked first, then the pacer's spacing delay is applied, then
// tokens are acquired before the request-count slot, so a blocked
// request doesn't also burn down the RPM budget while it waits.
func (c *Coordinator) AcquireForDeployment(ctx context.Context, deployment, modelHint string, estimatedTokens int) error {
	c.mu.Lock()
	c.lastContext = &limiterContext{bucketKey: deployment, modelHint: modelHint}
	if !c.breaker.IsAllowed() {
		c.mu.Unlock()
		return &Error{Kind: KindRateLimit, Message: "circuit breaker is open - too many failures"}
	}
	limits := c.modelLimitsLocked(modelHint)
	c.mu.Unlock()

	if rate := c.pacer.Rate(); rate > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1.0 / rate * float64(time.Second))):
		}
	}

	if uint32(estimatedTokens) > limits.TokensPerMinute {
		return &Error{
			Kind:    KindInvalidRequest,
			Message: fmt.Sprintf("request exceeds token capacity for %s: %d > %d", deployment, estimatedTokens, limits.TokensPerMinute),
		}
	}

	c.mu.Lock()
	tokenBucket := c.tokenBucketLocked(deployment, limits)
	requestBucket := c.requestBucketLocked(deployment, limits)
	c.mu.Unlock()

	if err := tokenBucket.Acquire(ctx, float64(estimatedTokens)); err != nil {
		return err
	}
	return requestBucket.Acquire(ctx, 1)
}

// UpdateFromResponse folds a response's rate-limit headers into the
// pacer and, if the response reports new hard limits, resizes the
// buckets for the key that was last acquired against.
func (c *Coordinator) UpdateFromResponse(h http.Header) {
	remainingRequests, hasRemReq := httpheader.Uint32(h, "x-ratelimit-remaining-requests")
	remainingTokens, hasRemTok := httpheader.Uint32(h, "x-ratelimit-remaining-tokens")
	resetRequests, hasResetReq := httpheader.Int64(h, "x-ratelimit-reset-requests")
	resetTokens, hasResetTok := httpheader.Int64(h, "x-ratelimit-reset-tokens")
	limitRequests, hasLimReq := httpheader.Uint32(h, "x-ratelimit-limit-requests")
	limitTokens, hasLimTok := httpheader.Uint32(h, "x-ratelimit-limit-tokens")

	var resetSeconds *int64
	switch {
	case hasResetReq && hasResetTok:
		v := resetRequests
		if resetTokens > v {
			v = resetTokens
		}
		resetSeconds = &v
	case hasResetReq:
		resetSeconds = &resetRequests
	case hasResetTok:
		resetSeconds = &resetTokens
	}

	var remReqPtr, remTokPtr *uint32
	if hasRemReq {
		remReqPtr = &remainingRequests
	}
	if hasRemTok {
		remTokPtr = &remainingTokens
	}
	var resetDur *time.Duration
	if resetSeconds != nil {
		d := time.Duration(*resetSeconds) * time.Second
		resetDur = &d
	}
	c.pacer.UpdateFromHeaders(remReqPtr, remTokPtr, resetDur)

	if hasLimReq || hasLimTok {
		c.mu.Lock()
		ctx := c.lastContext
		c.mu.Unlock()
		if ctx != nil {
			c.applyDynamicLimits(*ctx, hasLimTok, limitTokens, hasLimReq, limitRequests)
		}
	}
}

// applyDynamicLimits resizes the token/request buckets for ctx.bucketKey
// when the provider reports new hard limits, carrying over the tokens
// currently available (clamped to the new capacity) rather than resetting
// to full or empty.
// Ported from apply_dynamic_limits: debit = new_capacity -
// min(old_available, new_capacity).
func (c *Coordinator) applyDynamicLimits(ctx limiterContext, hasLimTok bool, limitTokens uint32, hasLimReq bool, limitRequests uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.modelLimitsLocked(ctx.modelHint)
	newLimits := current
	if hasLimTok {
		newLimits.TokensPerMinute = limitTokens
	}
	if hasLimReq {
		newLimits.RequestsPerMinute = limitRequests
	}
	c.limits[ctx.modelHint] = newLimits

	if hasLimTok {
		c.resizeBucketLocked(c.tokenBuckets, ctx.bucketKey, float64(limitTokens), float64(limitTokens)/60.0)
	}
	if hasLimReq {
		c.resizeBucketLocked(c.requestBuckets, ctx.bucketKey, float64(limitRequests), float64(limitRequests)/60.0)
	}
}

func (c *Coordinator) resizeBucketLocked(buckets map[string]*TokenBucket, key string, newCapacity, newRefillRate float64) {
	old, ok := buckets[key]
	var oldAvailable float64
	if ok {
		oldAvailable = old.Available()
	} else {
		oldAvailable = newCapacity
	}

	newBucket := NewTokenBucket(newCapacity, newRefillRate)
	target := oldAvailable
	if target > newCapacity {
		target = newCapacity
	}
	debit := newCapacity - target
	if debit > 0 {
		newBucket.ForceDebit(debit)
	}
	buckets[key] = newBucket
}

// ReconcileAfterCompleted adjusts bucketKey's token bucket once a
// request's actual usage is known: a positive delta (estimate exceeded
// reality) is refunded, a negative delta (estimate undershot) is debited.
func (c *Coordinator) ReconcileAfterCompleted(bucketKey string, estimatedTokens int, actual TokenUsage) {
	c.mu.Lock()
	bucket, ok := c.tokenBuckets[bucketKey]
	c.mu.Unlock()
	if !ok {
		return
	}
	delta := float64(estimatedTokens) - float64(actual.TotalTokens)
	if delta > 0 {
		bucket.Refund(delta)
	} else if delta < 0 {
		bucket.ForceDebit(-delta)
	}
}

// RecordSuccess and RecordFailure forward to the shared circuit breaker.
func (c *Coordinator) RecordSuccess() { c.breaker.RecordSuccess() }
func (c *Coordinator) RecordFailure() { c.breaker.RecordFailure() }

// Status is a point-in-time monitoring snapshot for a given model/key.
type Status struct {
	Model             string
	AvailableTokens   float64
	AvailableRequests float64
	CircuitBreakerOpen bool
	ShouldThrottle    bool
	CurrentRate       float64
}

// GetStatus reports the coordinator's current view of a given bucket
// key, for observability.
func (c *Coordinator) GetStatus(bucketKey string) Status {
	c.mu.Lock()
	tb, hasTB := c.tokenBuckets[bucketKey]
	rb, hasRB := c.requestBuckets[bucketKey]
	c.mu.Unlock()

	st := Status{
		Model:              bucketKey,
		CircuitBreakerOpen: c.breaker.IsOpen(),
		ShouldThrottle:     c.pacer.ShouldThrottle(),
		CurrentRate:        c.pacer.Rate(),
	}
	if hasTB {
		st.AvailableTokens = tb.Available()
	}
	if hasRB {
		st.AvailableRequests = rb.Available()
	}
	return st
}
