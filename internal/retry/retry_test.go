package retry

import (
	"context"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	t.Run("single successful try", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 5, func(attempt int) error {
			runs++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, runs)
	})

	t.Run("success from the third time", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			if attempt < 3 {
				return Error(errors.New("attempt failed"), attempt)
			}

			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, runs)
	})

	t.Run("fails when attempt limit is exhausted", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			if attempt < 5 {
				return Error(errors.New("attempt failed"), attempt)
			}

			return nil
		})

		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooManyAttempts))
		assert.Contains(t, err.Error(), "attempt failed")
		assert.Equal(t, 4, runs)
	})

	t.Run("a single attempt is made when max attempts is not positive", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 0, func(attempt int) error {
			runs++
			return Error(errors.New("attempt failed"), attempt)
		})

		assert.True(t, errors.Is(err, ErrTooManyAttempts))
		assert.Equal(t, 1, runs)
	})

	t.Run("fails if not an instance of retry error is returned from callback", func(t *testing.T) {
		runs := 0
		someErr := errors.New("some error")

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			return someErr
		})

		assert.Error(t, err)
		assert.Equal(t, someErr, errors.Cause(err))
		assert.Equal(t, 1, runs)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Incremental(ctx, time.Second, 10, func(attempt int) error {
			return Error(errors.New("attempt failed"), attempt)
		})

		assert.True(t, errors.Is(err, context.Canceled))
	})
}
