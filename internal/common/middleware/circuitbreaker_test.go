package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	fail := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := cb.Call(context.Background(), fail); err == nil {
			t.Fatalf("expected failure")
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.GetState())
	}

	// 打开状态下调用被直接拒绝，fn 不执行
	called := false
	err := cb.Call(context.Background(), func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run while breaker is open")
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	if err := cb.Call(context.Background(), func() error { return errors.New("boom") }); err == nil {
		t.Fatalf("expected failure")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)
	_ = cb.Call(context.Background(), func() error { return errors.New("boom") })
	_ = cb.Call(context.Background(), func() error { return nil })
	_ = cb.Call(context.Background(), func() error { return errors.New("boom") })
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed, non-consecutive failures must not trip the breaker")
	}
}

func TestCircuitBreakerCanceledContext(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("canceled call must not affect breaker state")
	}
}

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	ctx := context.Background()

	if !tb.Allow(ctx) || !tb.Allow(ctx) {
		t.Fatalf("expected initial capacity to allow 2 requests")
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected empty bucket to reject")
	}

	time.Sleep(1100 * time.Millisecond)
	if !tb.Allow(ctx) {
		t.Fatalf("expected refill after a second")
	}
}
