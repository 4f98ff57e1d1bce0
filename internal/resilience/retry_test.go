package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
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

func TestDo_ExhaustsAttempts_ReturnsLastError(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return fmt.Errorf("failure %d", calls)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if err.Error() != "failure 3" {
		t.Errorf("expected last failure to surface unchanged, got %v", err)
	}
}

func TestDo_ZeroAttempts_StillRunsOnce(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 0, BaseDelay: 1 * time.Millisecond}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestDo_OnRetryObservesEveryFailureButTheLast(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			attempts = append(attempts, attempt)
		},
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("always fails")
	})
	if len(attempts) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestDo_ShouldRetryFalse_NoRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
		ShouldRetry: func(err error) bool { return false },
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 1 * time.Millisecond}

	var calls int
	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
}

func TestDo_RateLimitPenaltyDelay(t *testing.T) {
	base := 2 * time.Millisecond
	penalty := 20 * time.Millisecond
	cfg := RetryConfig{
		MaxAttempts:      2,
		BaseDelay:        base,
		RateLimitPenalty: penalty,
	}

	start := time.Now()
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return &statusErr{status: 429}
	})
	elapsed := time.Since(start)

	// One inter-attempt sleep: base*2^0 + penalty.
	if want := base + penalty; elapsed < want {
		t.Errorf("expected at least %v between attempts, got %v", want, elapsed)
	}
}

func TestDo_NoPenaltyWithoutRateLimit(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:      2,
		BaseDelay:        1 * time.Millisecond,
		RateLimitPenalty: 250 * time.Millisecond,
	}

	start := time.Now()
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("plain failure")
	})
	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Errorf("penalty applied to non-rate-limit error, elapsed %v", elapsed)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}

	var calls int
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		cancel()
		return errors.New("failing")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("HTTP %d", e.status) }
func (e *statusErr) HTTPStatus() int { return e.status }
