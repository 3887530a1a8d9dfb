package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nps_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nps_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nps_http_errors_total",
			Help: "HTTP 5xx responses by route.",
		},
		[]string{"route"},
	)

	SendsAttemptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nps_sends_attempted_total",
			Help: "Survey delivery attempts by channel and outcome.",
		},
		[]string{"channel", "status"},
	)

	SendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nps_send_duration_seconds",
			Help:    "Provider call latency per delivery attempt.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nps_webhook_events_total",
			Help: "Accepted webhook events by source.",
		},
		[]string{"source"},
	)
)

// InitAPIMetrics registers the collectors the API process emits.
func InitAPIMetrics() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPErrorsTotal,
		WebhookEventsTotal,
	)
}

// InitWorkerMetrics registers the collectors the worker process emits.
func InitWorkerMetrics() {
	prometheus.MustRegister(
		SendsAttemptedTotal,
		SendDuration,
	)
}
