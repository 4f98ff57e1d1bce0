package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and a flat
// penalty delay on rate-limit errors.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// Values below 1 are treated as 1: the operation always runs at least
	// once. Default: 3.
	MaxAttempts int

	// BaseDelay is the backoff unit; attempt i sleeps BaseDelay * 2^i
	// before the next try. Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff (penalty excluded). Default: 30s.
	MaxDelay time.Duration

	// RateLimitPenalty is added on top of the backoff when the failure
	// classifies as a rate-limit error. Default: 5s.
	RateLimitPenalty time.Duration

	// ShouldRetry optionally restricts which errors are retried. If nil,
	// every failure is retried until the attempt budget runs out.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// (1-based) and the error. Observability only; it must not affect
	// control flow.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry policy used for external API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:      3,
		BaseDelay:        1 * time.Second,
		MaxDelay:         30 * time.Second,
		RateLimitPenalty: 5 * time.Second,
	}
}

// Do executes fn with retry logic according to cfg. The final attempt's
// error is returned unchanged; no sleep happens after it. Context
// cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as
// Do but preserves the return value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}

		// The last attempt's error surfaces without a sleep.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		delay := computeBackoff(attempt, cfg)
		if IsRateLimit(lastErr) {
			delay += cfg.RateLimitPenalty
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 1 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.RateLimitPenalty <= 0 {
		cfg.RateLimitPenalty = 5 * time.Second
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
