package metrics

import "github.com/prometheus/client_golang/prometheus"

// Circuit breaker metrics. State: 0 closed, 1 half-open, 2 open.
var (
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_rejected_total",
			Help:      "Calls rejected without reaching the upstream",
		},
		[]string{"name"},
	)
)
