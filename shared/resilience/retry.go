package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines retry behavior configuration
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	JitterFraction  float64
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
		RetryableErrors: func(err error) bool {
			return true
		},
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context) error

// RetryWithConfig executes a function with retry logic based on the provided configuration
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !config.RetryableErrors(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt >= config.MaxAttempts {
			break
		}

		delay = calculateBackoff(delay, config)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
}

// Retry executes a function with default retry configuration
func Retry(ctx context.Context, fn RetryableFunc) error {
	return RetryWithConfig(ctx, DefaultRetryConfig(), fn)
}

// calculateBackoff calculates the next delay with exponential backoff and jitter
func calculateBackoff(currentDelay time.Duration, config *RetryConfig) time.Duration {
	nextDelay := time.Duration(float64(currentDelay) * config.BackoffFactor)

	if nextDelay > config.MaxDelay {
		nextDelay = config.MaxDelay
	}

	if config.JitterFraction > 0 {
		jitter := time.Duration(rand.Float64() * config.JitterFraction * float64(nextDelay))
		nextDelay = nextDelay + jitter
	}

	return nextDelay
}

// BackoffStrategy computes the delay before the given attempt
type BackoffStrategy func(attempt int) time.Duration

// LinearBackoff returns a linear backoff strategy
func LinearBackoff(baseDelay time.Duration) BackoffStrategy {
	return func(attempt int) time.Duration {
		return baseDelay * time.Duration(attempt)
	}
}

// ExponentialBackoff returns an exponential backoff strategy
func ExponentialBackoff(baseDelay time.Duration, factor float64) BackoffStrategy {
	return func(attempt int) time.Duration {
		return time.Duration(float64(baseDelay) * math.Pow(factor, float64(attempt-1)))
	}
}

// RetryWithBackoffStrategy retries with a custom backoff strategy
func RetryWithBackoffStrategy(ctx context.Context, maxAttempts int, strategy BackoffStrategy, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt >= maxAttempts {
			break
		}

		delay := strategy(attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}
