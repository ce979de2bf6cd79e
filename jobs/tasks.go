package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlertScan evaluates stock status for every medicine.
	TaskStockAlertScan = "pharmacy:stock_alert_scan"
)

// StockAlertScanPayload carries scheduling metadata. The scheduler enqueues
// the same task on every tick, so the payload holds nothing run-specific.
type StockAlertScanPayload struct {
	Reason string `json:"reason"`
}

// NewStockAlertScanTask constructs an Asynq task for the stock alert scan.
func NewStockAlertScanTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(StockAlertScanPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlertScan, body, asynq.Queue(QueueDefault)), nil
}
