package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deepchat"

var (
	RelaySessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_sessions_total",
		Help:      "Streaming relay sessions by terminal outcome",
	}, []string{"outcome"})

	RelayFragments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_fragments_total",
		Help:      "Completion fragments forwarded to clients",
	})

	RelayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "relay_duration_seconds",
		Help:      "Time from provider call to terminal event",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"outcome"})

	ChatOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_operations_total",
		Help:      "Chat record operations by operation and result",
	}, []string{"operation", "result"})
)

// ObserveChatOperation records the result of a chat record operation.
func ObserveChatOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ChatOperations.WithLabelValues(operation, result).Inc()
}
