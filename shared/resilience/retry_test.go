package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithConfigSucceedsAfterFailures(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return true },
	}

	attempts := 0
	err := RetryWithConfig(context.Background(), config, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfigExhaustsAttempts(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1.0,
		RetryableErrors: func(error) bool { return true },
	}

	sentinel := errors.New("still broken")
	attempts := 0
	err := RetryWithConfig(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetryWithConfigNonRetryableStopsImmediately(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1.0,
		RetryableErrors: func(error) bool { return false },
	}

	attempts := 0
	err := RetryWithConfig(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return errors.New("fatal")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfigCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, func(ctx context.Context) error {
		t.Fatal("function must not run after cancellation")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinearBackoff(t *testing.T) {
	strategy := LinearBackoff(100 * time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, strategy(1))
	assert.Equal(t, 200*time.Millisecond, strategy(2))
	assert.Equal(t, 300*time.Millisecond, strategy(3))
}

func TestExponentialBackoff(t *testing.T) {
	strategy := ExponentialBackoff(100*time.Millisecond, 2.0)

	assert.Equal(t, 100*time.Millisecond, strategy(1))
	assert.Equal(t, 200*time.Millisecond, strategy(2))
	assert.Equal(t, 400*time.Millisecond, strategy(3))
}

func TestRetryWithBackoffStrategy(t *testing.T) {
	attempts := 0
	err := RetryWithBackoffStrategy(context.Background(), 2, LinearBackoff(time.Millisecond), func(ctx context.Context) error {
		attempts++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
