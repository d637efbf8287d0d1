package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	r := New(WithMaxAttempts(4), WithInitialDelay(time.Millisecond), WithJitter(0))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_StopsOnPermanent(t *testing.T) {
	calls := 0
	bad := errors.New("bad credentials")
	r := New(WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(bad)
	})

	assert.ErrorIs(t, err, bad)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetrier_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var attempts []int
	r := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		}),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("still down")
	})

	assert.EqualError(t, err, "still down")
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetrier_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Do(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
