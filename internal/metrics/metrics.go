// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Rating ledger
	RatingsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Ratings written by the ledger",
		},
		[]string{"result"}, // created|updated
	)
	RatingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_rejected_total",
			Help: "Rating submissions that were refused",
		},
		[]string{"reason"}, // invalid|forbidden|not_found|conflict|error
	)
	AggregateRecomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_aggregate_recompute_seconds",
			Help:    "Time spent recomputing a store's rating aggregate",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// Identity
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts",
		},
		[]string{"result"}, // success|failure
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	registerOnce sync.Once
)

// Handler serves the default registry.
var Handler = promhttp.Handler

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			RatingsSubmitted,
			RatingsRejected,
			AggregateRecomputeDuration,
			LoginsTotal,
			RateLimited,
		)
	})
}
