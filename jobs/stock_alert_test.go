package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/medconnect/medconnect/internal/jobs"
	"github.com/medconnect/medconnect/internal/pharmacy"
)

type stubMedicines []pharmacy.Medicine

func (s stubMedicines) ListMedicines(ctx context.Context) ([]pharmacy.Medicine, error) {
	return s, nil
}

type failingMedicines struct{}

func (failingMedicines) ListMedicines(ctx context.Context) ([]pharmacy.Medicine, error) {
	return nil, errors.New("connection refused")
}

type failingWriter struct{}

func (failingWriter) Save(ctx context.Context, snap pharmacy.AlertSnapshot) error {
	return errors.New("redis down")
}

func newAlertStore(t *testing.T) *pharmacy.AlertStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return pharmacy.NewAlertStore(client, 0)
}

func TestStockAlertJobStoresSnapshot(t *testing.T) {
	store := newAlertStore(t)
	medicines := stubMedicines(pharmacy.SampleData().Medicines)
	medicines[4].QuantityInStock = 4

	job := NewStockAlertJob(medicines, store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC) }

	task, err := NewStockAlertScanTask("test")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	snap, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 5, snap.Scanned)
	require.Len(t, snap.LowStock, 1)
	assert.Equal(t, "Metformin", snap.LowStock[0].Name)
	// Amoxicillin expires 30 days after the scan; Loratadine is still 141 days out.
	require.Len(t, snap.ExpiringSoon, 1)
	assert.Equal(t, "Amoxicillin", snap.ExpiringSoon[0].Name)
}

func TestStockAlertJobReportsSaveFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	job := NewStockAlertJob(stubMedicines(nil), failingWriter{}, nil, jobmetrics.NewMetrics(registry))

	_, err := job.Run(context.Background(), "test")
	require.Error(t, err)

	families, gatherErr := registry.Gather()
	require.NoError(t, gatherErr)
	found := false
	for _, mf := range families {
		if mf.GetName() == "medconnect_jobs_failures_total" {
			found = true
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "failure counter not exported")
}

func TestStockAlertJobKeepsSnapshotWhenStoreFails(t *testing.T) {
	store := newAlertStore(t)
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	medicines := stubMedicines(pharmacy.SampleData().Medicines)
	medicines[4].QuantityInStock = 4

	job := NewStockAlertJob(medicines, store, nil, metrics)
	job.clock = func() time.Time { return time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC) }
	task, err := NewStockAlertScanTask("test")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	job.Source = failingMedicines{}
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	snap, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 5, snap.Scanned)
	assert.Equal(t, 2, snap.Total())

	families, err := registry.Gather()
	require.NoError(t, err)
	gauges := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "medconnect_pharmacy_stock_alerts" {
			continue
		}
		for _, m := range mf.GetMetric() {
			gauges[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, gauges[string(pharmacy.StatusLowStock)])
	assert.Equal(t, 1.0, gauges[string(pharmacy.StatusExpiringSoon)])
}

func TestStockAlertJobSkipsMalformedPayload(t *testing.T) {
	job := NewStockAlertJob(stubMedicines(nil), newAlertStore(t), nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskStockAlertScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewStockAlertScanTaskPayload(t *testing.T) {
	task, err := NewStockAlertScanTask("cron")
	require.NoError(t, err)
	assert.Equal(t, TaskStockAlertScan, task.Type())

	var payload StockAlertScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Reason)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsPendingTasks(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3}`, rr.Body.String())
}

func TestHealthUnavailableWhenInspectorFails(t *testing.T) {
	h := NewHandler(stubInspector{err: errors.New("no redis")}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
