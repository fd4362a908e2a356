// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelinePassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seb_pipeline_passes_total",
		Help: "Pipeline passes by mode and final state",
	}, []string{"mode", "state"})

	OperationResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seb_operation_results_total",
		Help: "Operation results by operation, mode and result",
	}, []string{"operation", "mode", "result"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seb_operation_duration_seconds",
		Help:    "Duration of single operation calls",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
	}, []string{"operation", "mode"})

	RevertFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seb_revert_failures_total",
		Help: "Revert calls that did not succeed, by operation",
	}, []string{"operation"})

	ActiveSession = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seb_session_active",
		Help: "1 while a session attempt is held by the runtime",
	})

	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seb_config_reloads_total",
		Help: "Configuration reloads applied to the runtime, by outcome",
	}, []string{"outcome"})
)

// RecordPass counts a finished pipeline pass.
func RecordPass(mode, state string) {
	PipelinePassesTotal.WithLabelValues(orUnknown(mode), orUnknown(state)).Inc()
}

// RecordOperation counts one operation call and observes its duration.
func RecordOperation(operation, mode, result string, d time.Duration) {
	OperationResultsTotal.WithLabelValues(orUnknown(operation), orUnknown(mode), orUnknown(result)).Inc()
	OperationDuration.WithLabelValues(orUnknown(operation), orUnknown(mode)).Observe(d.Seconds())
}

// IncRevertFailure counts a revert that did not return success.
func IncRevertFailure(operation string) {
	RevertFailuresTotal.WithLabelValues(orUnknown(operation)).Inc()
}

// SetSessionActive flips the active-session gauge.
func SetSessionActive(active bool) {
	if active {
		ActiveSession.Set(1)
		return
	}
	ActiveSession.Set(0)
}

// IncConfigReload counts a configuration reload outcome.
func IncConfigReload(outcome string) {
	ConfigReloadsTotal.WithLabelValues(orUnknown(outcome)).Inc()
}
