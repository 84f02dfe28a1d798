package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/b-infra/opskit/pkg/errors"
)

func testConfig() Config {
	return Config{
		Name:         "test-op",
		Retries:      3,
		Timeout:      time.Second,
		InitialDelay: 5 * time.Millisecond,
		Backoff:      2.0,
	}
}

func TestRetrier_SuccessOnFirstAttempt(t *testing.T) {
	retrier := New(testConfig())

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_SuccessAfterRetries(t *testing.T) {
	retrier := New(testConfig())

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_FailureAfterMaxAttempts(t *testing.T) {
	retrier := New(testConfig())

	cause := errors.New("still broken")
	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExhausted))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestRetrier_DelaySequence(t *testing.T) {
	config := testConfig()
	config.Retries = 4
	config.InitialDelay = 10 * time.Millisecond

	var delays []time.Duration
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}
	retrier := New(config)

	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}, delays)
}

func TestRetrier_MaxDelayCapsBackoff(t *testing.T) {
	config := testConfig()
	config.Retries = 4
	config.InitialDelay = 10 * time.Millisecond
	config.MaxDelay = 15 * time.Millisecond

	var delays []time.Duration
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}
	retrier := New(config)

	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		15 * time.Millisecond,
		15 * time.Millisecond,
	}, delays)
}

func TestRetrier_TimeoutCountsAsFailedAttempt(t *testing.T) {
	config := testConfig()
	config.Timeout = 20 * time.Millisecond
	retrier := New(config)

	var attempts int32
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			// Overruns the deadline; the retrier abandons the attempt.
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetrier_ExhaustedByTimeouts(t *testing.T) {
	config := testConfig()
	config.Retries = 2
	config.Timeout = 20 * time.Millisecond
	retrier := New(config)

	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExhausted))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, apperrors.IsType(appErr.Cause, apperrors.ErrorTypeTimeout))
}

func TestRetrier_TimeoutMarkerPassedToOnRetry(t *testing.T) {
	config := testConfig()
	config.Retries = 2
	config.Timeout = 20 * time.Millisecond

	var retryErr error
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		retryErr = err
	}
	retrier := New(config)

	_ = retrier.Execute(context.Background(), func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	require.NotNil(t, retryErr)
	assert.True(t, apperrors.IsType(retryErr, apperrors.ErrorTypeTimeout))
}

func TestRetrier_ExecuteWithResult(t *testing.T) {
	retrier := New(testConfig())

	attempts := 0
	result, err := retrier.ExecuteWithResult(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, attempts)
}

func TestRetrier_ContextCancellation(t *testing.T) {
	config := testConfig()
	config.Retries = 5
	config.InitialDelay = 100 * time.Millisecond
	retrier := New(config)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	attempts := 0
	err := retrier.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts) // cancelled during the inter-attempt wait
}

func TestRetrier_AttemptsAreSequential(t *testing.T) {
	config := testConfig()
	config.InitialDelay = time.Millisecond
	retrier := New(config)

	var running int32
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&running, 1) > 1 {
			t.Error("two attempts overlapped")
		}
		defer atomic.AddInt32(&running, -1)
		time.Sleep(5 * time.Millisecond)
		return errors.New("transient")
	})

	require.Error(t, err)
}

func TestNew_NormalizesConfig(t *testing.T) {
	retrier := New(Config{Retries: 0, Timeout: -1, InitialDelay: -1, Backoff: 0})

	assert.Equal(t, 1, retrier.config.Retries)
	assert.Equal(t, 60*time.Second, retrier.config.Timeout)
	assert.Equal(t, time.Duration(0), retrier.config.InitialDelay)
	assert.Equal(t, float64(1), retrier.config.Backoff)
	assert.Equal(t, "operation", retrier.config.Name)
}

func TestRetry_ConvenienceHelpers(t *testing.T) {
	config := testConfig()
	config.Retries = 2

	attempts := 0
	err := RetryWithConfig(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
