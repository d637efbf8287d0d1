package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream 502")

func failing(context.Context) error { return errUpstream }
func ok(context.Context) error      { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New("llm", WithFailureThreshold(2), WithOpenTimeout(time.Minute))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, failing), errUpstream)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, failing), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenTrialCall(t *testing.T) {
	now := time.Now()
	cb := New("search", WithFailureThreshold(1), WithOpenTimeout(10*time.Second))
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(11 * time.Second)
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailedTrialCallReopens(t *testing.T) {
	now := time.Now()
	cb := New("email", WithFailureThreshold(3), WithOpenTimeout(time.Second))
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, failing), errUpstream)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IgnoresCancellation(t *testing.T) {
	cb := New("llm", WithFailureThreshold(1))
	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestUpstream_ClientErrorsDoNotTrip(t *testing.T) {
	cb := Upstream("llm", nil)
	ctx := context.Background()

	badRequest := &StatusError{Service: "gateway", Code: 400, Body: "context too long"}
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return badRequest }), badRequest)
	}
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return &StatusError{Service: "gateway", Code: 503} })
	}
	assert.Equal(t, StateOpen, cb.State())
}

func TestIsUpstreamFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&StatusError{Code: 400}, false},
		{&StatusError{Code: 401}, false},
		{&StatusError{Code: 408}, true},
		{&StatusError{Code: 429}, true},
		{&StatusError{Code: 500}, true},
		{fmt.Errorf("open stream: %w", &StatusError{Code: 404}), false},
		{errUpstream, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsUpstreamFailure(tt.err), "%v", tt.err)
	}
}
