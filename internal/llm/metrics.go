package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusInvalid = "invalid"
	statusError   = "error"
)

var (
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dungeon_llm_completions_total",
			Help: "Completion attempts by provider, operation and outcome.",
		},
		[]string{"provider", "operation", "status"},
	)
	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dungeon_llm_completion_duration_seconds",
			Help:    "Latency of individual backend calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)
)

func observe(provider, operation, status string) {
	completionsTotal.WithLabelValues(provider, operation, status).Inc()
}
