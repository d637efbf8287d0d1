// Package metrics exposes Prometheus collectors for the hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "student_hub"

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)

	verificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_attempts_total",
			Help:      "University email verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	quotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Messages rejected because the free quota is exhausted",
		},
		[]string{"feature"},
	)

	coachStreams = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coach_streams_total",
			Help:      "Coach completion streams by result",
		},
		[]string{"result"},
	)

	cityInsightsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "city_insights_lookups_total",
			Help:      "City insights lookups by cache result",
		},
		[]string{"cache"},
	)

	eventHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Duration of domain event handlers",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"event_type", "status"},
	)

	jobRuns = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"job", "status"},
	)
)

// Verification outcomes.
const (
	VerificationSent        = "sent"
	VerificationDevLink     = "dev_link"
	VerificationRateLimited = "rate_limited"
	VerificationDuplicate   = "duplicate"
	VerificationFailed      = "failed"
	VerificationConfirmed   = "confirmed"
	VerificationExpired     = "expired"
	VerificationInvalid     = "invalid"
)

// Coach stream results.
const (
	StreamCompleted   = "completed"
	StreamInterrupted = "interrupted"
	StreamUpstreamErr = "upstream_error"
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// VerificationAttempt counts a verification outcome.
func VerificationAttempt(outcome string) {
	verificationAttempts.WithLabelValues(outcome).Inc()
}

// QuotaRejected counts a rejected message.
func QuotaRejected(feature string) {
	quotaRejections.WithLabelValues(feature).Inc()
}

// CoachStream counts a finished coach stream.
func CoachStream(result string) {
	coachStreams.WithLabelValues(result).Inc()
}

// CityInsightsLookup counts a lookup as a cache hit or miss.
func CityInsightsLookup(hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	cityInsightsLookups.WithLabelValues(label).Inc()
}

// EventHandled records one event handler execution.
func EventHandled(eventType string, d time.Duration, err error) {
	eventHandlerDuration.WithLabelValues(eventType, status(err)).Observe(d.Seconds())
}

// JobCompleted records a finished job run.
func JobCompleted(job string, d time.Duration, err error) {
	jobRuns.WithLabelValues(job, status(err)).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
