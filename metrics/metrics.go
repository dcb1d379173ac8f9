// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTracked counts track calls by event type and result
	// (stored, skipped, failed).
	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Track calls by event type and result",
		},
		[]string{"event_type", "result"},
	)

	SummaryQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_summary_query_failures_total",
			Help: "Summary sub-queries that failed and were left empty",
		},
		[]string{"field"},
	)

	SummaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_summary_duration_seconds",
			Help:    "Time to assemble an analytics summary",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_store_breaker_state",
			Help: "Event store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
