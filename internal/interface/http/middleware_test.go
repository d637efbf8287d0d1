package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/pkg/logger"
)

func liveFrom(h http.Handler, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_ForwardedForIgnoredByDefault(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Dependencies) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	assert.Equal(t, http.StatusOK, liveFrom(h.handler, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, liveFrom(h.handler, "203.0.113.2"),
		"a new X-Forwarded-For value must not buy a fresh bucket")
}

func TestRateLimit_TrustedProxyUsesForwardedFor(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Dependencies) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
		c.TrustProxyHeaders = true
	})

	assert.Equal(t, http.StatusOK, liveFrom(h.handler, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, liveFrom(h.handler, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, liveFrom(h.handler, "203.0.113.1"))
}

func TestRateLimiter_StopEndsCleanupLoop(t *testing.T) {
	rl := newRateLimiter(1, 1, time.Minute)
	rl.Stop()
	rl.Stop()

	select {
	case <-rl.done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop still running")
	}
}

func TestServer_ShutdownStopsRateLimiter(t *testing.T) {
	cfg := DefaultConfig()
	s := NewServer(cfg, Dependencies{Logger: logger.Nop()})
	require.NotNil(t, s.rateLimiter)

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case <-s.rateLimiter.done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop still running after Shutdown")
	}
}

func TestRateLimiter_CleanupDropsIdleVisitors(t *testing.T) {
	rl := newRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")

	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}
