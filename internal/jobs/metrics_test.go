package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("scan").End(boom), boom)

	assert.Equal(t, 1.0, sampleValue(t, reg, "medconnect_jobs_total", map[string]string{"job": "scan", "status": "success"}))
	assert.Equal(t, 1.0, sampleValue(t, reg, "medconnect_jobs_total", map[string]string{"job": "scan", "status": "failure"}))
	assert.Equal(t, 1.0, sampleValue(t, reg, "medconnect_jobs_failures_total", map[string]string{"job": "scan"}))
}

func TestSetStockAlertsKeepsLatestValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SetStockAlerts("Low Stock", 3)
	m.SetStockAlerts("Low Stock", 1)

	assert.Equal(t, 1.0, sampleValue(t, reg, "medconnect_pharmacy_stock_alerts", map[string]string{"status": "Low Stock"}))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SetStockAlerts("Low Stock", 2)
	assert.NoError(t, m.Track("scan").End(nil))
}
