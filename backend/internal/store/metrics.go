package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "askgraph/backend/pkg/errors"
)

var (
	// operationsTotal counts store transactions by backend, operation and outcome
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askgraph_store_operations_total",
			Help: "Total number of graph store transactions",
		},
		[]string{"backend", "operation", "outcome"},
	)

	// operationDuration tracks store transaction latency
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askgraph_store_operation_duration_seconds",
			Help:    "Duration of graph store transactions in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "operation"},
	)

	// breakerState exposes the circuit breaker state (0 closed, 1 half-open, 2 open)
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "askgraph_store_breaker_state",
			Help: "Circuit breaker state for the graph store",
		},
		[]string{"name"},
	)
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsStoreUnavailable(err):
		return "unavailable"
	case apperrors.IsConflict(err):
		return "conflict"
	default:
		return "rejected"
	}
}

func recordOperation(backend, op string, err error, elapsed time.Duration) {
	operationsTotal.WithLabelValues(backend, op, outcomeOf(err)).Inc()
	operationDuration.WithLabelValues(backend, op).Observe(elapsed.Seconds())
}
