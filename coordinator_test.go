package aoaiclient

import (
	"context"
	"net/http"
	"testing"
)

func TestRateLimitsForGpt5IsLowerThanGpt4o(t *testing.T) {
	gpt5 := RateLimitsFor("gpt-5")
	gpt4o := RateLimitsFor("gpt-4o")
	if gpt5.TokensPerMinute != 20000 {
		t.Fatalf("gpt-5 tpm = %d, want 20000", gpt5.TokensPerMinute)
	}
	if gpt4o.TokensPerMinute != 30000 {
		t.Fatalf("gpt-4o tpm = %d, want 30000", gpt4o.TokensPerMinute)
	}
}

func TestRateLimitsForUnknownModelFallsBackToDefault(t *testing.T) {
	rl := RateLimitsFor("some-future-model")
	if rl != DefaultRateLimits {
		t.Fatalf("got %+v, want default %+v", rl, DefaultRateLimits)
	}
}

func TestCoordinatorAcquireRejectsOverCapacityRequest(t *testing.T) {
	c := NewCoordinator(DefaultCoordinatorConfig())
	err := c.AcquireForDeployment(context.Background(), "dep1", "gpt-5", 25000) // gpt-5 cap is 20000
	if err == nil {
		t.Fatal("expected error for request exceeding token capacity")
	}
}

func TestCoordinatorAcquireSucceedsWithinCapacity(t *testing.T) {
	c := NewCoordinator(DefaultCoordinatorConfig())
	err := c.AcquireForDeployment(context.Background(), "dep1", "gpt-5", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCoordinatorCircuitBreakerBlocksAcquire(t *testing.T) {
	cfg := DefaultCoordinatorConfig()
	cfg.CircuitBreakerThreshold = 1
	c := NewCoordinator(cfg)
	c.RecordFailure() // trips immediately with threshold 1

	err := c.AcquireForDeployment(context.Background(), "dep1", "gpt-4o", 100)
	if err == nil {
		t.Fatal("expected circuit breaker to block acquire")
	}
}

func TestCoordinatorApplyDynamicLimitsResizesBucket(t *testing.T) {
	c := NewCoordinator(DefaultCoordinatorConfig())
	if err := c.AcquireForDeployment(context.Background(), "dep1", "gpt-4o", 1000); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	h := http.Header{}
	h.Set("x-ratelimit-limit-tokens", "5000")
	h.Set("x-ratelimit-remaining-tokens", "4000")
	c.UpdateFromResponse(h)

	status := c.GetStatus("dep1")
	if status.AvailableTokens > 5000 {
		t.Fatalf("expected bucket resized to new capacity 5000, available=%v", status.AvailableTokens)
	}
}

func TestCoordinatorReconcileRefundsOverEstimate(t *testing.T) {
	c := NewCoordinator(DefaultCoordinatorConfig())
	_ = c.AcquireForDeployment(context.Background(), "dep1", "gpt-4o", 1000)
	before := c.GetStatus("dep1").AvailableTokens

	c.ReconcileAfterCompleted("dep1", 1000, TokenUsage{TotalTokens: 400})

	after := c.GetStatus("dep1").AvailableTokens
	if after <= before {
		t.Fatalf("expected refund to increase available tokens: before=%v after=%v", before, after)
	}
}
