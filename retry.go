// retry.go
// --------
// The retry engine: Retry-After header precedence, saturating exponential
// backoff with jitter, and the attempt-driving loop. Grounded on
// codex-client/src/retry.rs, translated method-for-method so the exact
// formulas (not just the shape) survive: header precedence order,
// clamping against a configured maximum, and the ±10% jitter band.
package aoaiclient

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opsbridge/aoaiclient/internal/httpheader"
)

// RetryOn selects which failure classes are eligible for a retry.
type RetryOn struct {
	Retry429      bool
	Retry5xx      bool
	RetryTransport bool
}

// RetryPolicy bounds how many attempts a retryable operation gets and how
// the delay between attempts is computed absent better information from
// the server.
type RetryPolicy struct {
	MaxAttempts    uint64
	BaseDelay      time.Duration
	RetryOn        RetryOn
	MaxRetryDelay  *time.Duration // nil means "trust the server unconditionally"
}

// isEligible reports whether err's failure class is one this policy ever
// retries, independent of how many attempts remain. Kept separate from
// ShouldRetry so a caller that has exhausted its attempt budget can still
// distinguish "this was a retryable kind of failure that ran out of
// attempts" (KindRetryLimit) from "this kind was never retryable to begin
// with" (the raw error).
func (r RetryOn) isEligible(err error) bool {
	var apiErr *Error
	if !asError(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindHTTPStatus, KindAzure:
		if r.Retry429 && apiErr.Status == http.StatusTooManyRequests {
			return true
		}
		if r.Retry5xx && apiErr.Status >= 500 && apiErr.Status < 600 {
			return true
		}
		return false
	case KindTimeout, KindNetwork:
		return r.RetryTransport
	default:
		return false
	}
}

// ShouldRetry reports whether err's failure class is retryable under this
// policy and the attempt budget isn't exhausted. attempt is zero-based
// (the count of attempts already made).
func (r RetryOn) ShouldRetry(err error, attempt, maxAttempts uint64) bool {
	if attempt >= maxAttempts {
		return false
	}
	return r.isEligible(err)
}

// backoff computes the delay for a given (one-based) attempt number using
// saturating doubling from BaseDelay, with a ±10% jitter band applied
// afterward. attempt 0 returns base with no doubling, matching the
// original's "first retry waits exactly base_delay" behavior.
func backoff(base time.Duration, attempt uint64) time.Duration {
	if attempt == 0 {
		return base
	}
	exp := saturatingPow2(attempt - 1)
	raw := saturatingMulDuration(base, exp)
	return jittered(raw)
}

// saturatingPow2 computes 2^n as a uint64, clamping to MaxUint64 on
// overflow instead of wrapping.
func saturatingPow2(n uint64) uint64 {
	if n >= 63 {
		return math.MaxUint64
	}
	return uint64(1) << n
}

// saturatingMulDuration multiplies a duration by a scalar, clamping to the
// largest representable Duration on overflow instead of wrapping.
func saturatingMulDuration(d time.Duration, factor uint64) time.Duration {
	if factor == 0 {
		return 0
	}
	const maxDuration = time.Duration(math.MaxInt64)
	if d <= 0 {
		return d
	}
	if uint64(d) > uint64(maxDuration)/factor {
		return maxDuration
	}
	return d * time.Duration(factor)
}

// jittered scales d by a uniform random factor in [0.9, 1.1).
func jittered(d time.Duration) time.Duration {
	factor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(d) * factor)
}

// parseRetryAfterHeaders implements the three-tier precedence: a
// millisecond hint (retry-after-ms), an Azure-specific millisecond hint
// (x-ms-retry-after-ms), then the standard Retry-After header parsed
// first as integer seconds, then as a float number of seconds. A header
// present but unparsable (non-UTF8, non-numeric, negative, or
// non-finite) is skipped, not treated as a hard failure: the next tier in
// line is tried.
func parseRetryAfterHeaders(h http.Header) (time.Duration, bool) {
	if v, ok := httpheader.Get(h, "retry-after-ms"); ok {
		if ms, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	if v, ok := httpheader.Get(h, "x-ms-retry-after-ms"); ok {
		if ms, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	if v, ok := httpheader.Get(h, "retry-after"); ok {
		v = strings.TrimSpace(v)
		if secs, err := strconv.ParseUint(v, 10, 64); err == nil {
			return time.Duration(secs) * time.Second, true
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) && secs >= 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}

// computeRetryDelay picks between the server-provided Retry-After delay
// and the local backoff schedule. A server delay is used only while it
// fits within MaxRetryDelay (when set); MaxRetryDelay == nil means the
// server is always trusted. Absent any usable header, it falls back to
// backoff(base, attempt+1).
func computeRetryDelay(h http.Header, base time.Duration, attempt uint64, maxRetryDelay *time.Duration) time.Duration {
	if h != nil {
		if serverDelay, ok := parseRetryAfterHeaders(h); ok {
			if maxRetryDelay == nil {
				return serverDelay
			}
			if serverDelay <= *maxRetryDelay {
				return serverDelay
			}
		}
	}
	return backoff(base, attempt+1)
}

// Operation is a single retryable attempt. It receives the attempt index
// (zero-based) so callers can vary request IDs, logging, etc.
type Operation func(ctx context.Context, attempt uint64) error

// RunWithRetry drives op through up to policy.MaxAttempts+1 total tries
// (the Rust original's `0..=max_attempts` inclusive range), sleeping
// between retryable failures per computeRetryDelay. An error whose kind
// this policy never retries returns immediately. An error whose kind is
// retryable but whose attempt budget is exhausted returns wrapped as
// KindRetryLimit rather than the raw error, so callers can tell the two
// cases apart.
func RunWithRetry(ctx context.Context, policy RetryPolicy, op Operation) error {
	for attempt := uint64(0); attempt <= policy.MaxAttempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}

		if !policy.RetryOn.isEligible(err) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			return &Error{Kind: KindRetryLimit, Message: "retry attempts exhausted", Cause: err}
		}

		var apiErr *Error
		var headers http.Header
		if asError(err, &apiErr) && (apiErr.Kind == KindHTTPStatus || apiErr.Kind == KindAzure) {
			headers = apiErr.Headers
		}
		delay := computeRetryDelay(headers, policy.BaseDelay, attempt, policy.MaxRetryDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	// Unreachable: the loop body always returns on its last iteration
	// (attempt == policy.MaxAttempts forces either the eligible-and-exhausted
	// branch above or a non-retryable return).
	return nil
}

// asError is a small errors.As shim kept local to avoid importing errors
// just for this one call site used across the file.
func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
