package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how fast an operation is attempted.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Retryable reports whether an error may be retried. Nil retries everything.
	Retryable func(error) bool
	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error)
}

// Fixed waits the same delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay}
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out of
// attempts, or ctx is done. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt >= attempts {
			return attempt, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
	}
}
