package crawler

import (
	"context"
	"time"
)

// RetryPolicy bounds how often an extraction is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do calls fn until it succeeds or MaxAttempts calls have failed, sleeping
// Delay between attempts. It returns the number of attempts made and the
// last error. A cancelled context stops further attempts.
func (r RetryPolicy) Do(ctx context.Context, sleep SleepFunc, fn func(attempt int) error) (int, error) {
	max := r.MaxAttempts
	if max < 1 {
		max = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(attempt); err == nil {
			return attempt, nil
		}
		if attempt >= max || ctx.Err() != nil {
			return attempt, err
		}
		if sleep(ctx, r.Delay) != nil {
			return attempt, err
		}
	}
}
