package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts the number of requests served by the verify
	// service.
	//
	// Example usage:
	// metrics.RequestsTotal.WithLabelValues("identity", "success", "200").Inc()
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_requests_total",
			Help: "Number of requests served by the verify service.",
		},
		[]string{"type", "condition", "status"},
	)

	// AcknowledgeAttemptsTotal counts best-effort purchase acknowledgement
	// attempts by purchase kind and outcome.
	AcknowledgeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_acknowledge_attempts_total",
			Help: "Number of best-effort purchase acknowledgement attempts.",
		},
		[]string{"kind", "status"},
	)

	// MintTotal counts best-effort custom token minting attempts by outcome.
	MintTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_custom_token_mints_total",
			Help: "Number of best-effort custom session token mints.",
		},
		[]string{"status"},
	)

	// RequestHandlerDuration is a histogram that tracks the latency of each
	// request handler.
	RequestHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "verify_request_handler_duration",
			Help: "A histogram of latencies for each request handler.",
		},
		[]string{"path", "code"},
	)
)
