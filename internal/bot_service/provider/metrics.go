package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "somabot",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Duration of outbound send requests per provider.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"provider"},
)
