package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deusflow/vzradar/internal/fault"
)

var errBoom = errors.New("boom")

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryExhausts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped errBoom, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Retryable:   func(error) bool { return false },
	}
	err := WithRetry(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("expected errBoom unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryIncreasingDelay(t *testing.T) {
	var delays []time.Duration
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Millisecond,
		Backoff:     true,
		OnRetry: func(attempt int, d time.Duration, err error) {
			delays = append(delays, d)
		},
	}
	_ = WithRetry(context.Background(), cfg, func(ctx context.Context) error { return errBoom })
	if len(delays) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(delays))
	}
	if delays[0] != 2*time.Millisecond || delays[1] != 4*time.Millisecond {
		t.Errorf("unexpected delays: %v", delays)
	}
}

func TestDelayForCapped(t *testing.T) {
	cfg := RetryConfig{Delay: time.Second, Backoff: true, MaxDelay: 3 * time.Second}
	if got := cfg.DelayFor(10); got != 3*time.Second {
		t.Errorf("DelayFor(10) = %v, want 3s", got)
	}
	cfg.Backoff = false
	if got := cfg.DelayFor(10); got != time.Second {
		t.Errorf("DelayFor without backoff = %v, want 1s", got)
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, RetryConfig{MaxAttempts: 3, Delay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{}, func(ctx context.Context) error {
		calls++
		return errBoom
	})
	if err != errBoom || calls != 1 {
		t.Errorf("got err=%v calls=%d", err, calls)
	}
}

func TestTransient(t *testing.T) {
	if !Transient(fault.New(fault.RateLimited, "llm", nil)) {
		t.Error("rate limits are transient")
	}
	if Transient(fault.Parse("feed", errBoom)) {
		t.Error("parse errors are not transient")
	}
}

func TestTransientPermanentStatus(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404} {
		if Transient(fault.FromStatus("search", code)) {
			t.Errorf("status %d should not be retried", code)
		}
	}
	for _, code := range []int{408, 429, 500, 503} {
		if !Transient(fault.FromStatus("search", code)) {
			t.Errorf("status %d should be retried", code)
		}
	}
}

func TestWithRetryStopsOnPermanentStatus(t *testing.T) {
	calls := 0
	rc := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Retryable: Transient}
	err := WithRetry(context.Background(), rc, func(ctx context.Context) error {
		calls++
		return fault.FromStatus("llm", 404)
	})
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
	if !fault.IsPermanent(err) {
		t.Errorf("expected the permanent error back, got %v", err)
	}
}
