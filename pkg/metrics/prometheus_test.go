package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordTick("ok", 0.5)
	r.RecordTick("aborted", 0.1)
	r.RecordAlerts("evaluated", 3)
	r.RecordAlerts("suppressed", 0)
	r.RecordDispatch("telegram", nil)
	r.RecordDispatch("telegram", errors.New("x"))
	r.RecordNormalize("fallback", "no_json")
	r.RecordLastPrice("BITCOIN", 50000)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticks.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.alerts.WithLabelValues("evaluated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.alerts.WithLabelValues("suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatches.WithLabelValues("telegram", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.normalize.WithLabelValues("fallback", "no_json")))
	assert.Equal(t, 50000.0, testutil.ToFloat64(r.lastPrice.WithLabelValues("BITCOIN")))

	n, err := testutil.GatherAndCount(reg, "pulsewatch_monitor_tick_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
