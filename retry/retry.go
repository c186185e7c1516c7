package retry

import (
	"context"
	"log/slog"
	"time"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including the
	// first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Subsequent retries use
	// exponential back-off: BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter; a single-process client
	// talking to one provider does not need it.
	Jitter float64

	// Retryable classifies errors. Only errors for which it returns true
	// are retried; everything else propagates immediately. A nil Retryable
	// means no error is retried.
	Retryable func(error) bool

	// Logger receives one record per retry with the attempt number, the
	// computed delay and the triggering error. Nil disables logging.
	Logger *slog.Logger
}

// Do calls fn up to cfg.MaxAttempts times, retrying only when the returned
// error is classified retryable by cfg.Retryable. Between attempts an
// exponential back-off delay (with optional jitter) is applied.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error. After the final attempt the
// last error is returned, never swallowed.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := 0; i < attempts; i++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// Last attempt — return immediately regardless of classification.
		if i == attempts-1 {
			return zero, err
		}

		if cfg.Retryable == nil || !cfg.Retryable(err) {
			return zero, err
		}

		// Wait with back-off, but respect context cancellation.
		delay := backoff(cfg, i)
		if cfg.Logger != nil {
			cfg.Logger.Warn("retrying after transient provider failure",
				"attempt", i+1,
				"delay", delay,
				"error", err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	// Unreachable, but keeps the compiler happy.
	return zero, nil
}
