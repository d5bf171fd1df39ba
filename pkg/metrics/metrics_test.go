package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())

	c.RecordGenerated("solar", 48)
	c.RecordGenerated("solar", 2)
	c.RecordBackfillError("batch_insert")
	c.RecordAPIRequest("/api/live", "GET", "200")

	assert.Equal(t, 50.0, testutil.ToFloat64(c.GeneratedPointsTotal.WithLabelValues("solar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BackfillErrorsTotal.WithLabelValues("batch_insert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/live", "GET", "200")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())
		NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())
	})
}

func TestCollector_ConnectionPool(t *testing.T) {
	c := NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())
	c.UpdateDBConnectionPool(3, 2, 5)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("in_use")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())
	timer := c.NewTimer(c.BackfillDuration)
	time.Sleep(time.Millisecond)
	assert.True(t, timer.ObserveDuration() > 0)
}
