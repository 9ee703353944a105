package retry

import (
	"context"
	"time"
)

// Policy is a bounded retry schedule with a caller-supplied predicate for
// which errors are worth retrying. The zero value performs a single attempt.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff holds the wait before each retry; attempt n (1-based retry)
	// waits Backoff[n-1], with the last entry reused when attempts exceed
	// the schedule length.
	Backoff []time.Duration
	// Retryable decides whether an error should trigger another attempt.
	// A nil predicate retries nothing.
	Retryable func(error) bool

	// Sleep is swappable for tests. Defaults to a context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, exhausts the attempt budget, returns a
// non-retryable error, or the context is cancelled. The last error is
// returned on failure.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, p.backoffFor(attempt)); serr != nil {
				return serr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
	}
	return err
}

func (p Policy) backoffFor(retry int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if retry > len(p.Backoff) {
		retry = len(p.Backoff)
	}
	return p.Backoff[retry-1]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
