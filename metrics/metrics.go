// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realestate_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_http_requests_total",
			Help: "HTTP requests by route template and status.",
		},
		[]string{"method", "route", "status"},
	)

	entitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_entities_created_total",
			Help: "Documents created, by entity kind.",
		},
		[]string{"entity"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_side_effect_failures_total",
			Help: "Best-effort side effects that failed without failing the request.",
		},
		[]string{"effect"},
	)

	PropertyViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realestate_property_views_total",
		Help: "Property detail fetches.",
	})

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_listing_cache_lookups_total",
			Help: "Listing cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	UploadedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_uploaded_files_total",
			Help: "Uploaded files by destination folder.",
		},
		[]string{"folder"},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// EntityCreated counts a successful insert of the named entity kind.
func EntityCreated(entity string) {
	entitiesCreated.WithLabelValues(entity).Inc()
}

// SideEffectFailed counts a failure that was logged and swallowed.
func SideEffectFailed(effect string) {
	sideEffectFailures.WithLabelValues(effect).Inc()
}
