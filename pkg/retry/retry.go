// Package retry provides a timeout-bounded retry executor with exponential
// backoff. Each attempt runs on its own goroutine and is bounded by a
// per-attempt deadline; a timed-out attempt is abandoned, not interrupted.
// The work-unit keeps running until it honors the cancelled attempt context,
// so work-units doing blocking I/O should apply their own deadline taken
// from that context.
package retry

import (
	"context"
	"time"

	"github.com/b-infra/opskit/pkg/errors"
	"github.com/b-infra/opskit/pkg/logging"
	"github.com/b-infra/opskit/pkg/metrics"
)

// Config holds configuration for the retry executor
type Config struct {
	// Name identifies the operation in logs and metrics
	Name string
	// Retries is the total number of attempts, at least 1
	Retries int
	// Timeout is the per-attempt deadline
	Timeout time.Duration
	// InitialDelay is the wait before the second attempt
	InitialDelay time.Duration
	// Backoff is the multiplier applied to the delay after each attempt
	Backoff float64
	// MaxDelay caps the inter-attempt delay; 0 means uncapped
	MaxDelay time.Duration
	// OnRetry is called before each inter-attempt wait
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		Name:         "operation",
		Retries:      3,
		Timeout:      60 * time.Second,
		InitialDelay: 10 * time.Second,
		Backoff:      2.0,
	}
}

// Retrier executes operations under a per-attempt deadline with backoff
type Retrier struct {
	config  Config
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New creates a new retrier with the given configuration
func New(config Config) *Retrier {
	if config.Name == "" {
		config.Name = "operation"
	}
	if config.Retries < 1 {
		config.Retries = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	}
	if config.Backoff < 1 {
		config.Backoff = 1
	}

	return &Retrier{
		config:  config,
		logger:  logging.GetLogger(),
		metrics: metrics.GetMetrics(),
	}
}

type attemptResult struct {
	value interface{}
	err   error
}

// Execute executes the given function with retry logic
func (r *Retrier) Execute(ctx context.Context, operation func(context.Context) error) error {
	_, err := r.ExecuteWithResult(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, operation(ctx)
	})
	return err
}

// ExecuteWithResult executes the given function with retry logic and returns
// its result. Attempts are strictly sequential; a new attempt starts only
// after the previous one has returned or been abandoned at its deadline.
func (r *Retrier) ExecuteWithResult(ctx context.Context, operation func(context.Context) (interface{}, error)) (interface{}, error) {
	currentDelay := r.config.InitialDelay

	var lastErr error
	lastWasTimeout := false

	for attempt := 1; attempt <= r.config.Retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, timedOut := r.runAttempt(ctx, operation)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !timedOut && result.err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					"name", r.config.Name,
					"attempt", attempt,
					"total_attempts", r.config.Retries,
				)
			}
			return result.value, nil
		}

		attemptsLeft := r.config.Retries - attempt

		attemptErr := result.err
		if timedOut {
			lastWasTimeout = true
			attemptErr = errors.NewTimeoutError(r.config.Name)
			r.metrics.RecordRetryAttempt(r.config.Name, "timeout")
			r.logger.Warn("Attempt timed out",
				"name", r.config.Name,
				"timeout", r.config.Timeout,
				"attempt", attempt,
				"attempts_left", attemptsLeft,
				"delay", currentDelay,
			)
		} else {
			lastWasTimeout = false
			lastErr = result.err
			r.metrics.RecordRetryAttempt(r.config.Name, "failure")
			r.logger.Warn("Attempt failed",
				"name", r.config.Name,
				"error", result.err.Error(),
				"attempt", attempt,
				"attempts_left", attemptsLeft,
				"delay", currentDelay,
			)
		}

		if attemptsLeft == 0 {
			break
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, attemptErr, currentDelay)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(currentDelay):
		}

		currentDelay = r.nextDelay(currentDelay)
	}

	r.metrics.RecordRetriesExhausted(r.config.Name)
	r.logger.Error("Operation failed after all retry attempts",
		"name", r.config.Name,
		"attempts", r.config.Retries,
	)

	cause := lastErr
	if lastWasTimeout {
		cause = errors.NewTimeoutError(r.config.Name)
	}
	return nil, errors.NewExhaustedError(r.config.Name, r.config.Retries).WithCause(cause)
}

// runAttempt runs one attempt on its own goroutine and waits for it to
// finish or for the per-attempt deadline, whichever comes first.
func (r *Retrier) runAttempt(ctx context.Context, operation func(context.Context) (interface{}, error)) (attemptResult, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		value, err := operation(attemptCtx)
		done <- attemptResult{value: value, err: err}
	}()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		return result, false
	case <-ctx.Done():
		return attemptResult{err: ctx.Err()}, false
	case <-timer.C:
		// Abandoned: the goroutine keeps running until the work-unit
		// honors attemptCtx.
		return attemptResult{}, true
	}
}

func (r *Retrier) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * r.config.Backoff)
	if r.config.MaxDelay > 0 && next > r.config.MaxDelay {
		next = r.config.MaxDelay
	}
	return next
}

// RetryWithConfig is a convenience function to execute an operation with retry
func RetryWithConfig(ctx context.Context, config Config, operation func(context.Context) error) error {
	return New(config).Execute(ctx, operation)
}

// Retry is a convenience function to execute an operation with default retry configuration
func Retry(ctx context.Context, operation func(context.Context) error) error {
	return RetryWithConfig(ctx, DefaultConfig(), operation)
}
