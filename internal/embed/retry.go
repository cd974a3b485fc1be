package embed

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff retry behavior for batch embedding calls.
type RetryConfig struct {
	MaxRetries   int           // maximum retry attempts beyond the initial try
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on backoff delay
	Multiplier   float64       // backoff growth factor
	Jitter       float64       // fractional jitter applied to each delay, e.g. 0.2 = ±20%
}

// DefaultRetryConfig returns the retry configuration used by embed_missing:
// base 500ms, factor 2, capped at 30s, ±20% jitter, up to 5 attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// retryableError is satisfied by embedding-provider errors that know whether
// a retry is worth attempting (timeouts, 429, 5xx vs. other 4xx).
type retryableError interface {
	error
	Retryable() bool
}

// WithRetry executes fn with exponential backoff, retrying only when the
// returned error implements retryableError and reports Retryable() true.
// Non-retryable errors and context cancellation return immediately.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var rerr retryableError
		if !errors.As(err, &rerr) || !rerr.Retryable() {
			return err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := jittered(delay, cfg.Jitter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// jittered applies +/- frac random jitter to d.
func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	span := float64(d) * frac
	offset := (rand.Float64()*2 - 1) * span
	result := float64(d) + offset
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}
