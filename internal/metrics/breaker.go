// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "seb_circuit_breaker_state",
		Help: "Circuit breaker state per component (0=closed, 1=half-open, 2=open)",
	}, []string{"component"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seb_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips by component and reason",
	}, []string{"component", "reason"})
)

// SetCircuitBreakerState publishes the breaker state of a component.
func SetCircuitBreakerState(component, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	circuitBreakerState.WithLabelValues(orUnknown(component)).Set(v)
}

// RecordCircuitBreakerTrip counts a transition into the open state.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(orUnknown(component), orUnknown(reason)).Inc()
}
