// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func TestRecordPass(t *testing.T) {
	before := counterValue(t, PipelinePassesTotal, "perform", "COMPLETED")
	RecordPass("perform", "COMPLETED")
	assert.Equal(t, before+1, counterValue(t, PipelinePassesTotal, "perform", "COMPLETED"))
}

func TestRecordOperation(t *testing.T) {
	before := counterValue(t, OperationResultsTotal, "vm", "repeat", "FAILURE")
	RecordOperation("vm", "repeat", "FAILURE", 12*time.Millisecond)
	assert.Equal(t, before+1, counterValue(t, OperationResultsTotal, "vm", "repeat", "FAILURE"))

	metric := &dto.Metric{}
	obs, ok := OperationDuration.WithLabelValues("vm", "repeat").(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, obs.Write(metric))
	assert.GreaterOrEqual(t, metric.GetHistogram().GetSampleCount(), uint64(1))
}

func TestEmptyLabelsBecomeUnknown(t *testing.T) {
	before := counterValue(t, BusDroppedTotal, "unknown", "unknown")
	IncBusDropReason("", "")
	assert.Equal(t, before+1, counterValue(t, BusDroppedTotal, "unknown", "unknown"))

	before = counterValue(t, RevertFailuresTotal, "unknown")
	IncRevertFailure("")
	assert.Equal(t, before+1, counterValue(t, RevertFailuresTotal, "unknown"))
}

func TestSetSessionActive(t *testing.T) {
	metric := &dto.Metric{}
	SetSessionActive(true)
	require.NoError(t, ActiveSession.Write(metric))
	assert.Equal(t, 1.0, metric.GetGauge().GetValue())

	SetSessionActive(false)
	require.NoError(t, ActiveSession.Write(metric))
	assert.Equal(t, 0.0, metric.GetGauge().GetValue())
}
