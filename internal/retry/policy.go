package retry

import (
	"context"
	"errors"
	"time"
)

// Policy decides whether a failed attempt should be retried and how long to
// wait before the next attempt. Attempt numbers are 1-based.
type Policy interface {
	ShouldRetry(err error, attempt int) bool
	Delay(attempt int) time.Duration
}

// Sleeper performs retry waits. Tests inject one to avoid real sleeping.
type Sleeper func(time.Duration)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// Do runs fn under the given policy. The first nil error wins; context
// cancellation stops retrying immediately. When the policy declines a retry
// the last error is returned unchanged, preserving its type for the caller
// to branch on.
func Do(ctx context.Context, policy Policy, sleep Sleeper, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if ctx != nil && ctx.Err() != nil {
			return err
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}
		if waitErr := wait(ctx, sleep, policy.Delay(attempt)); waitErr != nil {
			return err
		}
	}
}

func wait(ctx context.Context, sleep Sleeper, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if sleep != nil {
		sleep(delay)
		if ctx != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	if ctx == nil {
		<-timer.C
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
