package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "solr",
		MaxFailures: 3,
		Timeout:     time.Hour,
	})

	for i := range 3 {
		if cb.State() != StateClosed {
			t.Fatalf("state after %d failures = %s, want closed", i, cb.State())
		}
		if err := cb.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("Execute = %v, want %v", err, errBackend)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("Execute while open = %v (called=%v)", err, called)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	_ = cb.Execute(func() error { return errBackend })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBackend })
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed after an interleaved success", cb.State())
	}
	_ = cb.Execute(func() error { return errBackend })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
}

func TestCircuitBreaker_IsFailureFiltersErrors(t *testing.T) {
	errBadRequest := errors.New("bad request")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, errBadRequest) },
	})
	for range 5 {
		_ = cb.Execute(func() error { return errBadRequest })
	}
	if cb.State() != StateClosed {
		t.Fatalf("client errors opened the circuit")
	}
	_ = cb.Execute(func() error { return errBackend })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})
	_ = cb.Execute(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})
	_ = cb.Execute(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)
	_ = cb.Execute(func() error { return errBackend })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute after reopen = %v, want ErrCircuitOpen", err)
	}
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst tokens not available")
	}
	if rl.Allow() {
		t.Fatal("Allow succeeded on an empty bucket")
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
}

func TestRateLimiter_WaitRefills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 200, Burst: 1})
	start := time.Now()
	for range 3 {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("three waits at 200/s took %v", elapsed)
	}
}

func TestRetry(t *testing.T) {
	fast := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	t.Run("succeeds after failures", func(t *testing.T) {
		var calls int
		var retries []int
		cfg := fast
		cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }
		got, err := Retry(context.Background(), cfg, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errBackend
			}
			return "ok", nil
		})
		if err != nil || got != "ok" {
			t.Fatalf("Retry = %q, %v", got, err)
		}
		if len(retries) != 2 {
			t.Errorf("OnRetry attempts = %v", retries)
		}
	})

	t.Run("gives up with last error", func(t *testing.T) {
		var calls int
		_, err := Retry(context.Background(), fast, func() (int, error) {
			calls++
			return 0, errBackend
		})
		if !errors.Is(err, errBackend) || calls != 3 {
			t.Fatalf("err = %v calls = %d", err, calls)
		}
	})

	t.Run("RetryIf stops early", func(t *testing.T) {
		var calls int
		cfg := fast
		cfg.RetryIf = func(error) bool { return false }
		_, _ = Retry(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, errBackend
		})
		if calls != 1 {
			t.Fatalf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Retry(ctx, fast, func() (int, error) {
			t.Fatal("fn called with a cancelled context")
			return 0, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestBackoffFor_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 10}
	if got := backoffFor(1, cfg); got != time.Second {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := backoffFor(4, cfg); got != 3*time.Second {
		t.Errorf("attempt 4 = %v", got)
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "streams", MaxConcurrent: 1})

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Acquire = %v, want ErrBulkheadFull", err)
	}
	release()
	release()

	// a second release must not free a slot it never held
	first, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer first()
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("double release freed an extra slot: %v", err)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	release, _ := b.Acquire(context.Background())

	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Fatalf("Acquire = %v, want ErrBulkheadTimeout", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		release()
	}()
	next, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	next()
}

func TestBulkhead_WaitHonoursContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Hour})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire = %v, want deadline exceeded", err)
	}
}
