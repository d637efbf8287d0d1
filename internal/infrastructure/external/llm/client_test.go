package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/circuitbreaker"
	"github.com/integration-hub/student-hub/pkg/sse"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k", Model: "m", HeaderTimeout: time.Second})
}

func TestStream_RelaysChunksUntilDone(t *testing.T) {
	var got completionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keepalive\n\ndata: {\"n\":1}\n\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "data: {\"n\"")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, ":2}\r\n\r\ndata: [DONE]\n\n")
	})

	s, err := client.Stream(context.Background(), []coach.Message{{Role: coach.RoleUser, Content: "salut"}})
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(first))

	second, err := s.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(second))

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)

	assert.True(t, got.Stream)
	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 1)
}

func TestStream_Truncated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"n\":1}\n\n")
	})

	s, err := client.Stream(context.Background(), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, sse.ErrTruncated)
}

func TestStream_UpstreamErrorIsGeneric(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Stream(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
	assert.Equal(t, "upstream_error", shared.CodeOf(err, ""))
}

func TestStream_HeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: srv.URL, HeaderTimeout: 20 * time.Millisecond})
	_, err := client.Stream(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTimeout))
	assert.Equal(t, "upstream_error", shared.CodeOf(err, ""))
}

func TestStream_RejectedRequestsKeepBreakerClosed(t *testing.T) {
	var reject atomic.Bool
	reject.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			http.Error(w, "context length exceeded", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	for i := 0; i < 8; i++ {
		_, err := client.Stream(context.Background(), nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	}
	assert.Equal(t, circuitbreaker.StateClosed, client.breaker.State())

	reject.Store(false)
	s, err := client.Stream(context.Background(), nil)
	require.NoError(t, err)
	_ = s.Close()
}
