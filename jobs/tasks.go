package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan sweeps the stock ledger for items below their thresholds.
	TaskLowStockScan = "stock:low_stock_scan"
	// TaskCostRollup recomputes product cost prices from current material costs.
	TaskCostRollup = "catalog:cost_rollup"
)

// LowStockScanPayload carries scheduling metadata for a ledger sweep.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for a low stock sweep.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// CostRollupPayload selects which products to recost. ProductID zero means
// every product.
type CostRollupPayload struct {
	ProductID int64 `json:"product_id"`
}

// NewCostRollupTask constructs an Asynq task for a cost rollup.
func NewCostRollupTask(productID int64) (*asynq.Task, error) {
	body, err := json.Marshal(CostRollupPayload{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCostRollup, body, asynq.Queue(QueueDefault)), nil
}
