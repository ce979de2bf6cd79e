package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/medconnect/medconnect/internal/jobs"
	"github.com/medconnect/medconnect/internal/pharmacy"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// MedicineSource lists medicines for the scan. Read errors must surface so a
// failed scan never replaces the last stored snapshot.
type MedicineSource interface {
	ListMedicines(ctx context.Context) ([]pharmacy.Medicine, error)
}

// SnapshotWriter persists the scan result.
type SnapshotWriter interface {
	Save(ctx context.Context, snap pharmacy.AlertSnapshot) error
}

// StockAlertJob classifies every medicine and stores the alert snapshot.
type StockAlertJob struct {
	Source    MedicineSource
	Snapshots SnapshotWriter
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewStockAlertJob initialises the stock alert handler.
func NewStockAlertJob(source MedicineSource, snapshots SnapshotWriter, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockAlertJob {
	return &StockAlertJob{
		Source:    source,
		Snapshots: snapshots,
		Logger:    logger,
		Metrics:   metrics,
		clock:     time.Now,
	}
}

// Handle runs the scan for an Asynq task.
func (j *StockAlertJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stock alert: handler not configured")
	}
	var payload StockAlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload.Reason)
	return err
}

// Run performs one scan and returns the stored snapshot.
func (j *StockAlertJob) Run(ctx context.Context, reason string) (snap pharmacy.AlertSnapshot, err error) {
	if j.Source == nil || j.Snapshots == nil {
		return pharmacy.AlertSnapshot{}, errors.New("stock alert: dependencies not configured")
	}
	start := j.now()
	tracker := j.metrics().Track(TaskStockAlertScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("reason", reason))
	logger.Info("starting stock alert scan")

	medicines, err := j.Source.ListMedicines(ctx)
	if err != nil {
		logger.Error("list medicines", slog.Any("error", err))
		return pharmacy.AlertSnapshot{}, fmt.Errorf("stock alert: list medicines: %w", err)
	}
	snap = pharmacy.BuildAlertSnapshot(medicines, start)
	if err = j.Snapshots.Save(ctx, snap); err != nil {
		logger.Error("save stock alert snapshot", slog.Any("error", err))
		return pharmacy.AlertSnapshot{}, err
	}

	for _, item := range snap.LowStock {
		logger.Warn("medicine low on stock", slog.Int64("medicine_id", item.MedicineID), slog.String("name", item.Name), slog.Int("quantity_in_stock", item.QuantityInStock))
	}
	for _, item := range snap.ExpiringSoon {
		logger.Warn("medicine expiring soon", slog.Int64("medicine_id", item.MedicineID), slog.String("name", item.Name), slog.String("expiry_date", item.ExpiryDate))
	}
	j.metrics().SetStockAlerts(string(pharmacy.StatusLowStock), len(snap.LowStock))
	j.metrics().SetStockAlerts(string(pharmacy.StatusExpiringSoon), len(snap.ExpiringSoon))

	logger.Info("completed stock alert scan",
		slog.Int("scanned", snap.Scanned),
		slog.Int("alerts", snap.Total()),
		slog.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

func (j *StockAlertJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockAlertScan))
	}
	return slog.Default().With(slog.String("job", TaskStockAlertScan))
}

func (j *StockAlertJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StockAlertJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
