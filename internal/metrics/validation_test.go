// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, counterVec.WithLabelValues(labels...))
}

func getHistogramCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	observer, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	metric := &dto.Metric{}
	require.NoError(t, observer.(prometheus.Metric).Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestObserveValidation_Valid(t *testing.T) {
	initial := getCounterVecValue(t, validationsTotal, SourceFile, "valid")
	initialObs := getHistogramCount(t, validationDuration, SourceFile)

	ObserveValidation(SourceFile, "valid", nil, 2*time.Millisecond)

	assert.Equal(t, initial+1, getCounterVecValue(t, validationsTotal, SourceFile, "valid"))
	assert.Equal(t, initialObs+1, getHistogramCount(t, validationDuration, SourceFile))
}

func TestObserveValidation_CountsRules(t *testing.T) {
	initialRequired := getCounterVecValue(t, violationsTotal, "required")
	initialOther := getCounterVecValue(t, violationsTotal, "other")

	ObserveValidation(SourceHTTP, "invalid", []string{"required", "required", "pattern"}, time.Millisecond)

	assert.Equal(t, initialRequired+2, getCounterVecValue(t, violationsTotal, "required"))
	assert.Equal(t, initialOther+1, getCounterVecValue(t, violationsTotal, "other"))
}

func TestObserveValidation_NormalizesLabels(t *testing.T) {
	initial := getCounterVecValue(t, validationsTotal, "unknown", "unknown")
	ObserveValidation("grpc", "exploded", nil, 0)
	assert.Equal(t, initial+1, getCounterVecValue(t, validationsTotal, "unknown", "unknown"))
}

func TestIncReload(t *testing.T) {
	ok := getCounterVecValue(t, reloadsTotal, "success")
	failed := getCounterVecValue(t, reloadsTotal, "failure")

	IncReload(true)
	IncReload(false)
	IncReload(false)

	assert.Equal(t, ok+1, getCounterVecValue(t, reloadsTotal, "success"))
	assert.Equal(t, failed+2, getCounterVecValue(t, reloadsTotal, "failure"))
}
