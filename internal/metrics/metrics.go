// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

const namespace = "pitchforkify"

var (
	// HTTPRequestsTotal tracks outbound requests by upstream and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"upstream", "status_code"},
	)

	// RetriesTotal tracks retry decisions taken by the retry policy
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "retries_total",
			Help:      "Total number of retried outbound calls by failure kind",
		},
		[]string{"upstream", "kind"},
	)

	// ThrottledPagesTotal tracks detail pages that came back without a body
	ThrottledPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "throttled_pages_total",
			Help:      "Total number of detail pages re-fetched because the body was empty",
		},
	)

	// ReviewsReconciledTotal tracks reconcile outcomes
	ReviewsReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "reviews_total",
			Help:      "Total number of reconciled reviews by outcome",
		},
		[]string{"outcome"},
	)

	// ReviewFailuresTotal tracks per-review failures by pipeline stage
	ReviewFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "review_failures_total",
			Help:      "Total number of reviews that failed, by stage",
		},
		[]string{"stage"},
	)

	// CatalogLookupsTotal tracks catalog match results
	CatalogLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "lookups_total",
			Help:      "Total number of catalog lookups by result",
		},
		[]string{"result"},
	)

	// PageDuration tracks how long one listing page takes end to end
	PageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "page_duration_seconds",
			Help:      "Duration of listing page ingestion in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
)

// RetryObserver returns a retry.Policy hook counting retries for upstream.
func RetryObserver(upstream string) func(retry.Kind) {
	return func(kind retry.Kind) {
		RetriesTotal.WithLabelValues(upstream, string(kind)).Inc()
	}
}

// RecordOutcome counts one reconcile outcome.
func RecordOutcome(o domain.Outcome) {
	ReviewsReconciledTotal.WithLabelValues(string(o)).Inc()
}
