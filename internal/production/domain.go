package production

import (
	"errors"
	"time"
)

// BatchStatus enumerates production batch states.
type BatchStatus string

const (
	BatchPlanned      BatchStatus = "planned"
	BatchInProgress   BatchStatus = "in_progress"
	BatchPaused       BatchStatus = "paused"
	BatchQualityCheck BatchStatus = "quality_check"
	BatchCompleted    BatchStatus = "completed"
	BatchCancelled    BatchStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled
}

// MaterialUsage snapshots one material reservation taken at batch start.
type MaterialUsage struct {
	MaterialID       int64     `json:"material_id"`
	MaterialName     string    `json:"material_name"`
	ReservedQuantity float64   `json:"reserved_quantity"`
	Unit             string    `json:"unit"`
	ReservedAt       time.Time `json:"reserved_at"`
}

// Batch is a planned production run of one product.
type Batch struct {
	ID                   int64           `json:"id"`
	BatchNumber          string          `json:"batch_number"`
	ProductID            int64           `json:"product_id"`
	OrderItemID          *int64          `json:"order_item_id,omitempty"`
	PlannedQuantity      float64         `json:"planned_quantity"`
	ActualQuantity       float64         `json:"actual_quantity"`
	CompletedQuantity    float64         `json:"completed_quantity"`
	RejectedQuantity     float64         `json:"rejected_quantity"`
	Status               BatchStatus     `json:"status"`
	PlannedStartDate     *time.Time      `json:"planned_start_date,omitempty"`
	PlannedEndDate       *time.Time      `json:"planned_end_date,omitempty"`
	ActualStartDate      *time.Time      `json:"actual_start_date,omitempty"`
	ActualEndDate        *time.Time      `json:"actual_end_date,omitempty"`
	EstimatedHours       float64         `json:"estimated_hours"`
	ActualHours          float64         `json:"actual_hours"`
	EfficiencyPercentage float64         `json:"efficiency_percentage"`
	Supervisor           string          `json:"supervisor,omitempty"`
	MaterialUsage        []MaterialUsage `json:"material_usage,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Efficiency averages the hours ratio and the quantity ratio, skipping
// either component when its denominator is unusable.
func (b *Batch) Efficiency() float64 {
	var parts []float64
	if b.EstimatedHours > 0 && b.ActualHours > 0 {
		parts = append(parts, b.EstimatedHours/b.ActualHours*100)
	}
	if b.PlannedQuantity > 0 {
		parts = append(parts, b.CompletedQuantity/b.PlannedQuantity*100)
	}
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

// ScheduleStatus enumerates schedule states.
type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "scheduled"
	ScheduleInProgress ScheduleStatus = "in_progress"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleCancelled  ScheduleStatus = "cancelled"
	ScheduleDelayed    ScheduleStatus = "delayed"
)

// CompletionLogEntry is one append-only progress note on a schedule.
type CompletionLogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Percentage float64        `json:"percentage"`
	Notes      string         `json:"notes,omitempty"`
	Worker     string         `json:"worker,omitempty"`
	Status     ScheduleStatus `json:"status"`
}

// RequiredMaterial is one line of the material snapshot taken at schedule creation.
type RequiredMaterial struct {
	MaterialID   int64   `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

// Schedule is a time-boxed work unit under a batch.
type Schedule struct {
	ID                   int64                `json:"id"`
	BatchID              int64                `json:"batch_id"`
	Name                 string               `json:"name"`
	ScheduledDate        time.Time            `json:"scheduled_date"`
	StartTime            string               `json:"start_time,omitempty"`
	EndTime              string               `json:"end_time,omitempty"`
	PlannedQuantity      float64              `json:"planned_quantity"`
	WorkStation          string               `json:"work_station,omitempty"`
	AssignedWorker       string               `json:"assigned_worker,omitempty"`
	Shift                string               `json:"shift,omitempty"`
	Status               ScheduleStatus       `json:"status"`
	CompletionPercentage float64              `json:"completion_percentage"`
	RequiredMaterials    []RequiredMaterial   `json:"required_materials,omitempty"`
	CompletionLog        []CompletionLogEntry `json:"completion_log,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// ListFilter filters batch listings.
type ListFilter struct {
	Status    BatchStatus
	ProductID int64
	Limit     int
	Offset    int
}

var (
	// ErrNotFound indicates a missing batch or schedule.
	ErrNotFound = errors.New("production: not found")
	// ErrInvalidState indicates a transition attempted from a state that does not permit it.
	ErrInvalidState = errors.New("production: invalid state for operation")
	// ErrInsufficientMaterials indicates batch start without enough raw material stock.
	ErrInsufficientMaterials = errors.New("production: insufficient materials")
	// ErrValidation indicates malformed input to a production operation.
	ErrValidation = errors.New("production: validation failed")
)
