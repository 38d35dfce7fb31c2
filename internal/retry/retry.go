// Package retry provides a retry policy for model calls with exponential
// backoff and jitter. Only transient transport and quota failures are
// retried; terminal logical failures are returned immediately.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Policy holds retry configuration. The zero value uses defaults.
type Policy struct {
	MaxAttempts    int           // maximum number of attempts (default: 3)
	InitialBackoff time.Duration // first backoff duration (default: 1s)
	MaxBackoff     time.Duration // backoff cap (default: 30s)
	Jitter         float64       // random jitter fraction in [0,1] (default: 0.2)

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// StatusCoder is implemented by errors that carry an HTTP status code.
// Providers return such errors so retryability is decided on the code,
// not by sniffing message text.
type StatusCoder interface {
	StatusCode() int
}

// transientError marks an error as retryable regardless of its message.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so the policy will retry it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Do executes fn until it succeeds, fails terminally, or the attempt budget
// is exhausted. Context cancellation is honored between attempts.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	if p.Jitter == 0 {
		p.Jitter = 0.2
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// backoff computes 2^attempt * initial, capped, with +-Jitter applied.
func (p Policy) backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * p.InitialBackoff
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether err is a transient transport or quota failure.
// Errors carrying an HTTP status code are classified by code: 429 and 5xx
// retry, everything else is terminal. Errors without a status code fall back
// to matching well-known transport failure text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var t *transientError
	if errors.As(err, &t) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == 429 || (code >= 500 && code <= 599)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"rate limit",
		"quota",
		"eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
