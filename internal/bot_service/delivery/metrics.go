package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somabot",
			Subsystem: "delivery",
			Name:      "dispatch_total",
			Help:      "Outbound dispatch attempts by outcome.",
		},
		[]string{"outcome"}, // sent, retry, dead_letter
	)

	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "somabot",
		Subsystem: "delivery",
		Name:      "queue_depth",
		Help:      "Messages waiting in the outbound queue.",
	})

	queueFullTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "somabot",
		Subsystem: "delivery",
		Name:      "queue_full_total",
		Help:      "Replies that found the outbound queue full and had to wait.",
	})

	statusCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somabot",
			Subsystem: "delivery",
			Name:      "status_callbacks_total",
			Help:      "Provider status callbacks by result.",
		},
		[]string{"result"}, // applied, stale, unknown_id
	)
)
