package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerIterations_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(SchedulerIterations)
	SchedulerIterations.Inc()
	after := testutil.ToFloat64(SchedulerIterations)
	assert.Equal(t, before+1, after)
}

func TestTasksReaped_LabelsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(TasksReaped.WithLabelValues("success"))
	TasksReaped.WithLabelValues("success").Inc()
	after := testutil.ToFloat64(TasksReaped.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

// histogramSampleCount reads the number of observations recorded by an
// unlabeled histogram registered in the default registry.
func histogramSampleCount(t *testing.T, name string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s is not registered", name)
	return 0
}

func TestTimer_ObserveDurationRecordsToHistogram(t *testing.T) {
	before := histogramSampleCount(t, "wok_partitioning_duration_seconds")

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(PartitioningDuration)

	after := histogramSampleCount(t, "wok_partitioning_duration_seconds")
	assert.Equal(t, before+1, after)
	assert.Greater(t, timer.Duration(), time.Duration(0))
}

func TestAPIRequestsTotal_IncrementsUnderLabels(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "200"))
	APIRequestsTotal.WithLabelValues("GET", "200").Inc()
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "200"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ReturnsNonNilHTTPHandler(t *testing.T) {
	require.NotNil(t, Handler())
}
