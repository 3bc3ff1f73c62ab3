package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "test-op", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("permanent")
	attempts := 0
	err := Retry(context.Background(), "test-op", RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Retry() error = %v, want wrapped %v", err, sentinel)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, "test-op", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
	}, func() error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	})
	fail := func() error { return errors.New("boom") }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail); err == nil {
			t.Fatalf("Execute() #%d expected error", i)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	err := cb.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Millisecond,
	})
	if err := cb.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure to trip the breaker")
	}
	time.Sleep(5 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe Execute() error = %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.GetState())
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow-op", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WithTimeout() error = %v, want DeadlineExceeded", err)
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "fast-op", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithTimeout() error = %v", err)
	}
}
