// pacer.go
// --------
// AdaptivePacer is the Go translation of codex-rs's
// core/src/rate_limiter.rs::AdaptiveRateLimiter. It tracks a target rate
// and wraps a golang.org/x/time/rate limiter kept at that rate, the same
// way the LLM rate limiters in the example pack (mykhaliev-agent-benchmark,
// Epistemic-Technology-academic-mcp, abdul-hamid-achik-vecai) wrap
// *rate.Limiter per model/deployment. The limiter backs Wait; the
// Coordinator itself reads Rate and sleeps 1/Rate before each acquire.
package aoaiclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// adjustHysteresis is the minimum change in requests/sec required before
// the pacer actually moves its target rate, preventing rate churn on
// near-identical header values.
const adjustHysteresis = 0.1

// AdaptivePacer spaces out requests based on the remaining-quota signal
// the provider reports in its rate-limit response headers, clamped to
// [minRate, maxRate] requests/sec.
type AdaptivePacer struct {
	mu sync.Mutex

	limiter *rate.Limiter
	current float64
	minRate float64
	maxRate float64

	remainingRequests *uint32
	remainingTokens    *uint32
	resetAt            *time.Time
}

// NewAdaptivePacer starts pacing at initialRate, a request rate clamped by
// [minRate, maxRate] thereafter.
func NewAdaptivePacer(initialRate, minRate, maxRate float64) *AdaptivePacer {
	return &AdaptivePacer{
		limiter: rate.NewLimiter(rate.Limit(initialRate), 1),
		current: initialRate,
		minRate: minRate,
		maxRate: maxRate,
	}
}

// Wait blocks until the pacer's current rate permits one more request.
func (p *AdaptivePacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	l := p.limiter
	p.mu.Unlock()
	return l.Wait(ctx)
}

// Rate returns the pacer's current target rate in requests/sec.
func (p *AdaptivePacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// UpdateFromHeaders folds a response's remaining-quota signal into the
// pacer. When both a remaining-request count and a reset horizon are
// known, the implied sustainable rate (remaining / reset-seconds) becomes
// a candidate new target, subject to clamping and hysteresis.
func (p *AdaptivePacer) UpdateFromHeaders(remainingRequests, remainingTokens *uint32, resetAfter *time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if remainingRequests != nil {
		v := *remainingRequests
		p.remainingRequests = &v
	}
	if remainingTokens != nil {
		v := *remainingTokens
		p.remainingTokens = &v
	}
	if resetAfter != nil {
		t := time.Now().Add(*resetAfter)
		p.resetAt = &t
	}

	if remainingRequests != nil && resetAfter != nil && resetAfter.Seconds() > 0 {
		suggested := float64(*remainingRequests) / resetAfter.Seconds()
		p.adjustRateLocked(suggested)
	}
}

// adjustRateLocked clamps suggested into [minRate, maxRate] and applies it
// only if it differs from the current rate by more than the hysteresis
// band, avoiding limiter churn on near-identical successive headers.
func (p *AdaptivePacer) adjustRateLocked(suggested float64) {
	clamped := clampFloat(suggested, p.minRate, p.maxRate)
	if absFloat(clamped-p.current) > adjustHysteresis {
		p.current = clamped
		p.limiter.SetLimit(rate.Limit(clamped))
	}
}

// ShouldThrottle reports whether the last known quota signal is low
// enough to warrant extra caution by the caller (e.g. shrinking request
// concurrency), mirroring the original's fixed low-water marks.
func (p *AdaptivePacer) ShouldThrottle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remainingRequests != nil && *p.remainingRequests < 10 {
		return true
	}
	if p.remainingTokens != nil && *p.remainingTokens < 1000 {
		return true
	}
	return false
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
