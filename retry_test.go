package aoaiclient

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func headerSet(pairs ...[2]string) http.Header {
	h := http.Header{}
	for _, p := range pairs {
		h.Set(p[0], p[1])
	}
	return h
}

func TestParseRetryAfterMsHeader(t *testing.T) {
	h := headerSet([2]string{"retry-after-ms", "250"})
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 250*time.Millisecond {
		t.Fatalf("got %v, %v", d, ok)
	}
}

func TestParseXMsRetryAfterMsHeader(t *testing.T) {
	h := headerSet([2]string{"x-ms-retry-after-ms", "400"})
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 400*time.Millisecond {
		t.Fatalf("got %v, %v", d, ok)
	}
}

func TestParseRetryAfterSecondsHeader(t *testing.T) {
	h := headerSet([2]string{"retry-after", "5"})
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 5*time.Second {
		t.Fatalf("got %v, %v", d, ok)
	}
}

func TestParseRetryAfterFloatSecondsHeader(t *testing.T) {
	h := headerSet([2]string{"retry-after", "1.5"})
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 1500*time.Millisecond {
		t.Fatalf("got %v, %v", d, ok)
	}
}

func TestRetryAfterMsTakesPrecedence(t *testing.T) {
	h := headerSet(
		[2]string{"retry-after-ms", "100"},
		[2]string{"x-ms-retry-after-ms", "200"},
		[2]string{"retry-after", "30"},
	)
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 100*time.Millisecond {
		t.Fatalf("got %v, %v, want 100ms", d, ok)
	}
}

func TestXMsRetryAfterMsTakesPrecedenceOverStandard(t *testing.T) {
	h := headerSet(
		[2]string{"x-ms-retry-after-ms", "200"},
		[2]string{"retry-after", "30"},
	)
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 200*time.Millisecond {
		t.Fatalf("got %v, %v, want 200ms", d, ok)
	}
}

func TestNoRetryAfterHeadersReturnsNone(t *testing.T) {
	if _, ok := parseRetryAfterHeaders(http.Header{}); ok {
		t.Fatal("expected no match")
	}
}

func TestInvalidRetryAfterValueReturnsNone(t *testing.T) {
	h := headerSet([2]string{"retry-after", "invalid"})
	if _, ok := parseRetryAfterHeaders(h); ok {
		t.Fatal("expected no match for invalid value")
	}
}

func TestNegativeRetryAfterReturnsNone(t *testing.T) {
	h := headerSet([2]string{"retry-after", "-5.0"})
	if _, ok := parseRetryAfterHeaders(h); ok {
		t.Fatal("expected no match for negative value")
	}
}

func TestInfiniteRetryAfterReturnsNone(t *testing.T) {
	h := headerSet([2]string{"retry-after", "inf"})
	if _, ok := parseRetryAfterHeaders(h); ok {
		t.Fatal("expected no match for infinite value")
	}
}

func TestNaNRetryAfterReturnsNone(t *testing.T) {
	h := headerSet([2]string{"retry-after", "NaN"})
	if _, ok := parseRetryAfterHeaders(h); ok {
		t.Fatal("expected no match for NaN")
	}
}

func TestNonUTF8HighPriorityHeaderFallsBackToValidLowerPriority(t *testing.T) {
	h := http.Header{}
	h["Retry-After-Ms"] = []string{"\xff\xfe"}
	h.Set("x-ms-retry-after-ms", "500")
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 500*time.Millisecond {
		t.Fatalf("got %v, %v, want fallback to 500ms", d, ok)
	}
}

func TestInvalidParseHighPriorityFallsBackToValidLowerPriority(t *testing.T) {
	h := headerSet(
		[2]string{"retry-after-ms", "not-a-number"},
		[2]string{"x-ms-retry-after-ms", "500"},
	)
	d, ok := parseRetryAfterHeaders(h)
	if !ok || d != 500*time.Millisecond {
		t.Fatalf("got %v, %v, want fallback to 500ms", d, ok)
	}
}

func TestComputeDelayUsesHeaderWhenWithinMax(t *testing.T) {
	h := headerSet([2]string{"retry-after-ms", "500"})
	maxDelay := 2 * time.Second
	d := computeRetryDelay(h, 100*time.Millisecond, 0, &maxDelay)
	if d != 500*time.Millisecond {
		t.Fatalf("got %v, want 500ms", d)
	}
}

func TestComputeDelayFallsBackWhenExceedsMax(t *testing.T) {
	h := headerSet([2]string{"retry-after", "120"})
	maxDelay := 60 * time.Second
	d := computeRetryDelay(h, 100*time.Millisecond, 0, &maxDelay)
	if d >= maxDelay {
		t.Fatalf("expected fallback to backoff below max, got %v", d)
	}
}

func TestComputeDelayTrustsServerWhenNoMax(t *testing.T) {
	h := headerSet([2]string{"retry-after", "120"})
	d := computeRetryDelay(h, 100*time.Millisecond, 0, nil)
	if d != 120*time.Second {
		t.Fatalf("got %v, want exactly 120s", d)
	}
}

func TestComputeDelayUsesBackoffWhenNoHeaders(t *testing.T) {
	d := computeRetryDelay(http.Header{}, 100*time.Millisecond, 0, nil)
	if d < 90*time.Millisecond || d > 220*time.Millisecond {
		t.Fatalf("got %v, want in [90ms, 220ms]", d)
	}
}

func TestBackoffDoublesWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	d0 := backoff(base, 0)
	if d0 < 90*time.Millisecond || d0 > 110*time.Millisecond {
		t.Fatalf("attempt 0: got %v, want ~100ms", d0)
	}
	d2 := backoff(base, 3) // 2^2 * base = 400ms
	if d2 < 360*time.Millisecond || d2 > 440*time.Millisecond {
		t.Fatalf("attempt 3: got %v, want ~400ms", d2)
	}
}

func TestRunWithRetrySucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	err := RunWithRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt uint64) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRunWithRetryRetriesRetryableErrors(t *testing.T) {
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		RetryOn:     RetryOn{Retry429: true},
	}
	err := RunWithRetry(context.Background(), policy, func(ctx context.Context, attempt uint64) error {
		calls++
		if calls < 3 {
			return &Error{Kind: KindHTTPStatus, Status: http.StatusTooManyRequests, Headers: http.Header{}}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRunWithRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, RetryOn: RetryOn{Retry429: true}}
	err := RunWithRetry(context.Background(), policy, func(ctx context.Context, attempt uint64) error {
		calls++
		return &Error{Kind: KindHTTPStatus, Status: http.StatusBadRequest}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestRunWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, RetryOn: RetryOn{Retry429: true}}
	err := RunWithRetry(context.Background(), policy, func(ctx context.Context, attempt uint64) error {
		calls++
		return &Error{Kind: KindHTTPStatus, Status: http.StatusTooManyRequests, Headers: http.Header{}}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 { // attempts 0,1,2 inclusive
		t.Fatalf("expected 3 total tries, got %d", calls)
	}
	var apiErr *Error
	if !asError(err, &apiErr) || apiErr.Kind != KindRetryLimit {
		t.Fatalf("expected KindRetryLimit, got %v", err)
	}
}
