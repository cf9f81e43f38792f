// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal tracks finished resolutions by outcome
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "outcomes_total",
			Help:      "Total number of finished resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionErrorsTotal tracks failed resolution steps by error kind
	ResolutionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "errors_total",
			Help:      "Total number of failed resolution steps by error kind",
		},
		[]string{"kind"},
	)

	// MatchesTotal tracks surfaced matches by tier
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of surfaced duplicate matches by tier",
		},
		[]string{"tier"},
	)

	// MatchingDuration tracks how long a matching pass takes
	MatchingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Duration of duplicate matching passes in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// LockWaitDuration tracks time spent waiting for the resolution lock
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the resolution lock in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"backend"},
	)

	// ActiveSessions tracks resolutions waiting for a decision
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "active_sessions",
			Help:      "Number of resolutions waiting for a decision",
		},
	)

	// EventsPublishedTotal tracks contact events by type and status
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "events_published_total",
			Help:      "Total number of contact events published to Kafka",
		},
		[]string{"event_type", "status"},
	)

	// StoreOperationsTotal tracks contact store calls by operation and status
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of contact store operations by status",
		},
		[]string{"operation", "status"},
	)

	// StoreOperationDuration tracks contact store call duration
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of contact store operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// ContactsDeletedTotal tracks deleted contacts
	ContactsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "contacts",
			Name:      "deleted_total",
			Help:      "Total number of deleted contacts",
		},
	)
)

// RecordResolution records a finished resolution
func RecordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordResolutionError records a failed resolution step
func RecordResolutionError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	ResolutionErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordMatch records one surfaced match
func RecordMatch(tier string) {
	MatchesTotal.WithLabelValues(tier).Inc()
}

// RecordMatching records the duration of a matching pass
func RecordMatching(duration time.Duration) {
	MatchingDuration.Observe(duration.Seconds())
}

// RecordLockWait records how long a caller waited for the resolution lock
func RecordLockWait(backend string, duration time.Duration) {
	LockWaitDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordStoreOperation records one contact store call. Missing records are
// an answer, not a failure.
func RecordStoreOperation(operation, errorKind string, duration time.Duration) {
	status := "success"
	switch errorKind {
	case "":
	case "not_found":
		status = "not_found"
	default:
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished records a publish attempt
func RecordEventPublished(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
