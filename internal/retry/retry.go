package retry

import (
	"context"
	"github.com/pkg/errors"
	"sync"
	"time"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

type Callable func(attempt int) error

type retryError struct {
	error
	attempt int
}

func (e *retryError) Cause() error {
	return e.error
}

func (e *retryError) Unwrap() error {
	return e.error
}

// Error marks err as recoverable, the callable will be invoked again
// unless attempts are exhausted
func Error(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &retryError{error: err, attempt: attempt}
}

type Attempts interface {
	Next() (time.Duration, bool)
	Current() int
}

func Start(ctx context.Context, a Attempts, cb Callable) error {
	for {
		err := cb(a.Current())
		if err == nil {
			return nil
		}

		// callable encountered an unrecoverable error
		rErr, ok := err.(*retryError)
		if !ok {
			return errors.Wrapf(err, "attempt %d failed", a.Current())
		}

		next, stop := a.Next()
		if stop {
			return errors.Wrapf(ErrTooManyAttempts, "after %d attempt(s): %s", rErr.attempt, rErr.error.Error())
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "gave up after %d attempt(s): %s", rErr.attempt, rErr.error.Error())
		case <-time.After(next):
			continue
		}
	}
}

func Incremental(ctx context.Context, step time.Duration, maxAttempts int, cb Callable) error {
	return Start(ctx, IncrementalAttempts(step, maxAttempts), cb)
}

type incrementalAttempts struct {
	sync.RWMutex
	prev time.Duration
	step time.Duration
	max  int
	curr int
}

func (a *incrementalAttempts) Next() (time.Duration, bool) {
	a.Lock()
	defer a.Unlock()

	a.curr++
	if a.curr > a.max {
		return 0, true
	}

	next := a.prev + a.step
	a.prev = next

	return next, false
}

func (a *incrementalAttempts) Current() int {
	a.RLock()
	defer a.RUnlock()
	return a.curr
}

// IncrementalAttempts waits one more step before each next attempt,
// maxAttempts below 1 is treated as a single attempt
func IncrementalAttempts(step time.Duration, maxAttempts int) Attempts {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &incrementalAttempts{
		prev: 0,
		step: step,
		max:  maxAttempts,
		curr: 1,
	}
}
