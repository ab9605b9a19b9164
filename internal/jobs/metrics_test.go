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

	assert.NoError(t, m.Track("rbac:integrity").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("rbac:integrity").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("rbac:integrity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("rbac:integrity", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("rbac:integrity")))
}

func TestSetIntegrityFindingsResetsKinds(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	kinds := []string{"cycle", "dangling_parent"}

	m.SetIntegrityFindings(kinds, map[string]int{"cycle": 2})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.findings.WithLabelValues("cycle")))

	m.SetIntegrityFindings(kinds, map[string]int{"dangling_parent": 1})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.findings.WithLabelValues("cycle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.findings.WithLabelValues("dangling_parent")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("noop").End(nil))
	m.SetIntegrityFindings([]string{"cycle"}, nil)
}
