package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somabot",
			Subsystem: "router",
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by normalized kind.",
		},
		[]string{"kind"},
	)

	intentsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "somabot",
			Subsystem: "router",
			Name:      "intents_total",
			Help:      "Text messages by classified intent and handling outcome.",
		},
		[]string{"intent", "outcome"}, // outcome: ok, error
	)

	intentDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "somabot",
			Subsystem: "router",
			Name:      "intent_duration_seconds",
			Help:      "Time spent handling an intent, including LLM calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"intent"},
	)
)
