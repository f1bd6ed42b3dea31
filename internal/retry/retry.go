package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// #region policy

// Policy bounds one external call: a per-attempt deadline and a single retry
// after Backoff when the failure is transient.
type Policy struct {
	Timeout    time.Duration
	Backoff    time.Duration
	MaxRetries uint64
}

// DefaultPolicy allows exactly one retry.
func DefaultPolicy(timeout time.Duration) Policy {
	return Policy{
		Timeout:    timeout,
		Backoff:    200 * time.Millisecond,
		MaxRetries: 1,
	}
}

// #endregion policy

// #region do

// Do runs fn under p. isTransient decides whether a failure earns the retry;
// non-transient errors and exhausted retries are returned as-is.
func Do(ctx context.Context, p Policy, isTransient func(error) bool, fn func(ctx context.Context) error) error {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	b := goretry.WithMaxRetries(p.MaxRetries, goretry.NewConstant(backoff))

	return goretry.Do(ctx, b, func(ctx context.Context) error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		// The caller's own cancellation is final.
		if ctx.Err() != nil {
			return err
		}
		if isTransient != nil && isTransient(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// #endregion do

// IsDeadline reports whether err is a context deadline.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
