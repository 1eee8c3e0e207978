// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	OrdersNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_notified_total",
			Help: "Orders successfully forwarded to the notification sink",
		},
	)

	OrderNotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_notify_failures_total",
			Help: "Failed notification dispatches, retried on the next poll",
		},
	)

	OrdersMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_malformed_total",
			Help: "Order records skipped because they could not be read",
		},
	)

	WatcherPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_watcher_poll_errors_total",
			Help: "Poll cycles that failed to load the orders collection",
		},
	)

	WatcherSeen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "order_watcher_seen",
			Help: "Size of the watcher's in-memory dedup set",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
