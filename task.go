package reflux

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// ErrTaskTimeout reports a task that outlived its WithTimeout budget.
var ErrTaskTimeout = errors.New("reflux: task timed out")

// maxBackoff caps the delay between WithBackoff attempts.
const maxBackoff = time.Minute

// WithRetry retries the task immediately, up to attempts runs in total.
// Retries stop as soon as ctx is canceled.
//
//	tasks := func(_ State, _ reflux.Action) []reflux.Task {
//	    return []reflux.Task{reflux.Task(fetchUser).WithRetry(3)}
//	}
func (t Task) WithRetry(attempts int) Task {
	return t.WithBackoff(attempts, 0, clockz.RealClock)
}

// WithBackoff retries the task with exponentially growing delays starting
// at base, capped at one minute. A nil clock uses the real clock.
func (t Task) WithBackoff(attempts int, base time.Duration, clock clockz.Clock) Task {
	if attempts < 1 {
		attempts = 1
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return func(ctx context.Context) (any, error) {
		var lastErr error
		delay := base
		for i := 0; i < attempts; i++ {
			if i > 0 && delay > 0 {
				timer := clock.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C():
				}
				delay *= 2
				if delay > maxBackoff {
					delay = maxBackoff
				}
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			v, err := t(ctx)
			if err == nil {
				return v, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

// WithTimeout bounds a single run of the task. The task's context is
// canceled when the budget runs out. A nil clock uses the real clock.
func (t Task) WithTimeout(d time.Duration, clock clockz.Clock) Task {
	if clock == nil {
		clock = clockz.RealClock
	}
	return func(ctx context.Context) (any, error) {
		taskCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			v   any
			err error
		}
		ch := make(chan outcome, 1)
		go func() {
			v, err := t(taskCtx)
			ch <- outcome{v: v, err: err}
		}()

		timer := clock.NewTimer(d)
		defer timer.Stop()

		select {
		case o := <-ch:
			return o.v, o.err
		case <-timer.C():
			return nil, fmt.Errorf("%w after %s", ErrTaskTimeout, d)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WithFallback runs fallback when the task fails for any reason other than
// cancellation.
func (t Task) WithFallback(fallback Task) Task {
	return func(ctx context.Context) (any, error) {
		v, err := t(ctx)
		if err == nil || ctx.Err() != nil {
			return v, err
		}
		return fallback(ctx)
	}
}

// WithErrorHandler hands every failure to handler and still returns it.
func (t Task) WithErrorHandler(handler func(ctx context.Context, err error)) Task {
	return func(ctx context.Context) (any, error) {
		v, err := t(ctx)
		if err != nil {
			handler(ctx, err)
		}
		return v, err
	}
}
