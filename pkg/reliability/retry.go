package reliability

import (
	"context"
	"errors"
	"time"
)

// IsRetryableHTTPStatus classifies upstream status codes worth another attempt.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// RetryableError marks an error as transient so Do will try again.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Policy bounds how often and how slowly an operation is retried.
type Policy struct {
	MaxRetries int
	Base       time.Duration
	Cap        time.Duration
}

// DefaultPolicy mirrors the two retries the upstream model clients allow.
var DefaultPolicy = Policy{MaxRetries: 2, Base: 200 * time.Millisecond, Cap: 2 * time.Second}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy is exhausted.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, p.Base, p.Cap)):
		}
	}
	return err
}
