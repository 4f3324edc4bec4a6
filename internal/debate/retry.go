package debate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// RetryPolicy bounds how often a retryable model failure is retried within a
// round. MaxAttempts counts every call, the first one included.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns three attempts with a 500ms base delay capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait before the attempt following attempt (1-based).
// The delay doubles per attempt with up to 100% jitter added. A provider's
// Retry-After hint raises the delay; MaxDelay caps it.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	if p.BaseDelay <= 0 {
		return retryAfter(err, p.MaxDelay)
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
	}
	delay += time.Duration(rand.Int64N(int64(p.BaseDelay)))

	if hint := retryAfter(err, 0); hint > delay {
		delay = hint
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// retryAfter extracts a rate limit hint from err, capped at limit when
// limit is positive.
func retryAfter(err error, limit time.Duration) time.Duration {
	var rle *errors.RateLimitError
	if !errors.As(err, &rle) || rle.RetryAfter <= 0 {
		return 0
	}
	if limit > 0 && rle.RetryAfter > limit {
		return limit
	}
	return rle.RetryAfter
}

// Retrier runs a model call under a RetryPolicy.
type Retrier struct {
	Policy RetryPolicy

	// Expired rewrites the error of an attempt whose context is done,
	// e.g. into a terminal deadline error. Nil keeps the error.
	Expired func(error) error

	// Sleep waits between attempts. Nil waits on a timer until ctx is done.
	Sleep func(context.Context, time.Duration) error
}

// Do runs call until it succeeds, fails terminally or exhausts the policy.
//
// onFailure, when set, sees every attempt that ran and failed, exactly once,
// in order; the last one it sees is marked terminal. A backoff that would
// outlast ctx's deadline makes the failure terminal. A backoff cut short by
// ctx ends the retries without running another attempt: onFailure then sees
// the cancellation as a terminal entry for the attempt that failed last.
func (r Retrier) Do(ctx context.Context, call func(context.Context) error, onFailure func(attempt int, err error, terminal bool)) error {
	if onFailure == nil {
		onFailure = func(int, error, bool) {}
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	maxAttempts := r.Policy.attempts()
	for attempt := 1; ; attempt++ {
		err := call(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			err = r.expired(err)
		}

		terminal := attempt >= maxAttempts || !errors.IsRetryable(err)
		var delay time.Duration
		if !terminal {
			delay = r.Policy.Delay(attempt, err)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
				terminal = true
			}
		}
		onFailure(attempt, err, terminal)
		if terminal {
			return err
		}

		if err := sleep(ctx, delay); err != nil {
			err = r.expired(err)
			onFailure(attempt, err, true)
			return err
		}
	}
}

func (r Retrier) expired(err error) error {
	if r.Expired == nil {
		return err
	}
	return r.Expired(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
