// Package metrics owns the Prometheus collectors of the portal.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civic_portal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "civic_portal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	authzDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civic_portal",
			Subsystem: "access",
			Name:      "denials_total",
			Help:      "Authorization denials by guard stage and error kind.",
		},
		[]string{"stage", "kind"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civic_portal",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Request lifecycle operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	referenceCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "civic_portal",
			Subsystem: "lifecycle",
			Name:      "reference_collisions_total",
			Help:      "Reference number collisions that caused a creation retry.",
		},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civic_portal",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Request events handed to the broker.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		authzDenials,
		transitions,
		referenceCollisions,
		eventsPublished,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request.  route is the
// registered route template, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDenial counts an authorization denial.
func RecordDenial(stage, kind string) {
	authzDenials.WithLabelValues(stage, kind).Inc()
}

// RecordTransition counts a lifecycle operation.  outcome is "ok" or an
// error kind.
func RecordTransition(operation, outcome string) {
	transitions.WithLabelValues(operation, outcome).Inc()
}

// RecordReferenceCollision counts a retried creation.
func RecordReferenceCollision() {
	referenceCollisions.Inc()
}

// RecordEventPublished counts a publish attempt.
func RecordEventPublished(success bool) {
	eventsPublished.WithLabelValues(strconv.FormatBool(success)).Inc()
}
