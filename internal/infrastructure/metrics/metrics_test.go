package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveHTTP("GET", "", http.StatusNotFound, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCounters(t *testing.T) {
	hits := testutil.ToFloat64(cityInsightsLookups.WithLabelValues("hit"))
	CityInsightsLookup(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(cityInsightsLookups.WithLabelValues("hit")))

	rejected := testutil.ToFloat64(quotaRejections.WithLabelValues("coach_message"))
	QuotaRejected("coach_message")
	assert.Equal(t, rejected+1, testutil.ToFloat64(quotaRejections.WithLabelValues("coach_message")))

	assert.Equal(t, "error", status(errors.New("x")))
	assert.Equal(t, "ok", status(nil))
}

func TestHandler(t *testing.T) {
	VerificationAttempt(VerificationSent)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "student_hub_verification_attempts_total")
}
