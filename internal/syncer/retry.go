package syncer

import (
	"context"
	"errors"
	"time"
)

// #region constants

const defaultMaxRetries = 2 // max 2 retries = 3 total attempts

// #endregion constants

// #region policy

// RetryPolicy is a caller-level wrapper around sync attempts. The protocol
// itself never retries; a caller that wants retry wraps its sync call in a
// policy. Only verification and store failures are retried; data errors
// (unknown variable, degenerate evidence, corrupt parameters) will fail the
// same way every time.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy returns a policy with a small fixed backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		Backoff:    200 * time.Millisecond,
	}
}

// ShouldRetry reports whether err is worth another attempt.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt > p.MaxRetries {
		return false
	}
	var ve *CommitVerificationError
	if errors.As(err, &ve) {
		return true
	}
	var se *ExternalStoreError
	return errors.As(err, &se)
}

// Run invokes fn until it succeeds, the error stops being retryable, or the
// retry budget is exhausted. The last error is returned unchanged.
func (p RetryPolicy) Run(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if !p.ShouldRetry(err, attempt) {
			return err
		}
		if p.Backoff > 0 {
			select {
			case <-time.After(p.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// #endregion policy
