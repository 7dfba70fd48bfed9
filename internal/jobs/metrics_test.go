package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	assert.NoError(t, m.Track("diagnostics:run").End(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, m.Track("diagnostics:run").End(boom))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("diagnostics:run", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("diagnostics:run", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("diagnostics:run")))
}

func TestBatchItems(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddBatchItems("delete", "failed", 2)
	m.AddBatchItems("delete", "failed", 0)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.batchItems.WithLabelValues("delete", "failed")))

	var nilMetrics *Metrics
	nilMetrics.AddBatchItems("delete", "failed", 1)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}
