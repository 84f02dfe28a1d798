package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Disabled(t *testing.T) {
	m := NewMetrics(&Config{Enabled: false})

	// Recording on disabled metrics must be a no-op, not a panic.
	m.RecordAlert("proj", "error")
	m.RecordSuppressed("proj")
	m.RecordRetryAttempt("op", "timeout")
	m.RecordRetriesExhausted("op")
	m.RecordBackgroundPanic("task")
	assert.NotNil(t, m.Handler())
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(DefaultConfig())

	m.RecordAlert("billing", "error")
	m.RecordAlert("billing", "error")
	m.RecordSuppressed("billing")
	m.RecordRetryAttempt("sync-orders", "failure")
	m.RecordRetryAttempt("sync-orders", "timeout")
	m.RecordRetriesExhausted("sync-orders")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AlertsTotal.WithLabelValues("billing", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AlertsSuppressedTotal.WithLabelValues("billing")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RetryAttempts.WithLabelValues("sync-orders", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RetryAttempts.WithLabelValues("sync-orders", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RetriesExhausted.WithLabelValues("sync-orders")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(DefaultConfig())
	m.RecordAlert("billing", "info")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "opskit_alerts_sent_total")
}
