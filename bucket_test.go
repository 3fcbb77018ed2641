package aoaiclient

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAcquireImmediate(t *testing.T) {
	b := NewTokenBucket(10, 2) // capacity 10, refill 2/sec
	ctx := context.Background()

	if err := b.Acquire(ctx, 5); err != nil {
		t.Fatalf("acquire 5: %v", err)
	}
	if got := b.Available(); got > 5.01 || got < 4.99 {
		t.Fatalf("available = %v, want ~5", got)
	}
}

func TestTokenBucketAcquireWaitsForRefill(t *testing.T) {
	b := NewTokenBucket(10, 2)
	ctx := context.Background()

	if err := b.Acquire(ctx, 5); err != nil {
		t.Fatalf("acquire 5: %v", err)
	}

	start := time.Now()
	if err := b.Acquire(ctx, 10); err != nil {
		t.Fatalf("acquire 10: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 2*time.Second {
		t.Fatalf("expected to wait at least 2s for refill, waited %v", elapsed)
	}
}

func TestTokenBucketAcquireExceedsCapacityFailsFast(t *testing.T) {
	b := NewTokenBucket(10, 2)
	ctx := context.Background()

	start := time.Now()
	err := b.Acquire(ctx, 11)
	if err == nil {
		t.Fatal("expected error for request exceeding capacity")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected immediate failure, not a wait loop")
	}
}

func TestTokenBucketRefund(t *testing.T) {
	b := NewTokenBucket(10, 2)
	ctx := context.Background()
	_ = b.Acquire(ctx, 10)
	b.Refund(3)
	if got := b.Available(); got < 2.99 || got > 3.01 {
		t.Fatalf("available after refund = %v, want ~3", got)
	}
	b.Refund(100)
	if got := b.Available(); got > 10.01 {
		t.Fatalf("refund should clamp to capacity, got %v", got)
	}
}

func TestTokenBucketForceDebit(t *testing.T) {
	b := NewTokenBucket(10, 2)
	b.ForceDebit(4)
	if got := b.Available(); got < 5.99 || got > 6.01 {
		t.Fatalf("available after force debit = %v, want ~6", got)
	}
	b.ForceDebit(100)
	if got := b.Available(); got < 0 {
		t.Fatalf("force debit should floor at zero, got %v", got)
	}
}

func TestTokenBucketAcquireContextCancelled(t *testing.T) {
	b := NewTokenBucket(10, 1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = b.Acquire(ctx, 10)

	cancel()
	if err := b.Acquire(ctx, 5); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
