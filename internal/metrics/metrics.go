// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmorate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmorate_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	APIRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmorate_http_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Domain
	EntitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_entities_created_total",
			Help: "Total number of films and users created",
		},
		[]string{"kind"}, // "film", "user"
	)

	EntitiesDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_entities_deleted_total",
			Help: "Total number of films and users deleted",
		},
		[]string{"kind"},
	)

	LikeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_like_operations_total",
			Help: "Total number of like and unlike operations",
		},
		[]string{"operation"}, // "add", "remove"
	)

	FriendshipOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_friendship_operations_total",
			Help: "Total number of friendship edge operations",
		},
		[]string{"operation"},
	)

	ServiceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_service_errors_total",
			Help: "Total number of rejected domain operations by error kind",
		},
		[]string{"kind"}, // "validation", "not_found", "duplicate"
	)

	// Snapshots
	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_snapshot_operations_total",
			Help: "Total number of snapshot saves and restores",
		},
		[]string{"operation", "result"},
	)
)

// Entity kinds used as label values.
const (
	KindFilm = "film"
	KindUser = "user"
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight HTTP requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a rejected request.
func RecordRateLimitHit() {
	APIRateLimitHits.Inc()
}

// RecordCreated counts a created film or user.
func RecordCreated(kind string) {
	EntitiesCreated.WithLabelValues(kind).Inc()
}

// RecordDeleted counts a deleted film or user.
func RecordDeleted(kind string) {
	EntitiesDeleted.WithLabelValues(kind).Inc()
}

// RecordLike counts a like (add=true) or an unlike.
func RecordLike(add bool) {
	LikeOperations.WithLabelValues(operation(add)).Inc()
}

// RecordFriendship counts a friendship added (add=true) or removed.
func RecordFriendship(add bool) {
	FriendshipOperations.WithLabelValues(operation(add)).Inc()
}

// RecordServiceError counts a rejected domain operation.
func RecordServiceError(kind string) {
	ServiceErrors.WithLabelValues(kind).Inc()
}

// RecordSnapshot counts a snapshot save or restore.
func RecordSnapshot(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	SnapshotOperations.WithLabelValues(op, result).Inc()
}

func operation(add bool) string {
	if add {
		return "add"
	}
	return "remove"
}
