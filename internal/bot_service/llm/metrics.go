package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somabot",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Chat completion requests by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "somabot",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of chat completion requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"operation"},
	)
)
