package production

import "time"

// CreateBatchRequest is the payload for creating a batch.
type CreateBatchRequest struct {
	ProductID        int64      `json:"product_id" validate:"required,gt=0"`
	OrderItemID      *int64     `json:"order_item_id,omitempty" validate:"omitempty,gt=0"`
	PlannedQuantity  float64    `json:"planned_quantity" validate:"required,gt=0"`
	PlannedStartDate *time.Time `json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time `json:"planned_end_date,omitempty"`
	EstimatedHours   float64    `json:"estimated_hours" validate:"gte=0"`
	Supervisor       string     `json:"supervisor,omitempty" validate:"max=100"`
	Notes            string     `json:"notes,omitempty" validate:"max=2000"`
}

// RecordRequest is the payload for recording production output.
type RecordRequest struct {
	CompletedQuantity float64 `json:"completed_quantity" validate:"gte=0"`
	RejectedQuantity  float64 `json:"rejected_quantity" validate:"gte=0"`
	Notes             string  `json:"notes,omitempty" validate:"max=1000"`
	Actor             string  `json:"actor,omitempty" validate:"max=100"`
}

// CompleteBatchRequest is the payload for completing a batch.
type CompleteBatchRequest struct {
	ActualHours *float64 `json:"actual_hours,omitempty" validate:"omitempty,gte=0"`
	Notes       string   `json:"notes,omitempty" validate:"max=1000"`
	Actor       string   `json:"actor,omitempty" validate:"max=100"`
}

// ReasonRequest is the payload for pause/cancel style operations.
type ReasonRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
	Actor  string `json:"actor,omitempty" validate:"max=100"`
}

// CreateScheduleRequest is the payload for creating a schedule.
type CreateScheduleRequest struct {
	Name            string    `json:"name,omitempty" validate:"max=200"`
	ScheduledDate   time.Time `json:"scheduled_date" validate:"required"`
	StartTime       string    `json:"start_time,omitempty" validate:"max=10"`
	EndTime         string    `json:"end_time,omitempty" validate:"max=10"`
	PlannedQuantity float64   `json:"planned_quantity" validate:"required,gt=0"`
	WorkStation     string    `json:"work_station,omitempty" validate:"max=100"`
	AssignedWorker  string    `json:"assigned_worker,omitempty" validate:"max=100"`
	Shift           string    `json:"shift,omitempty" validate:"omitempty,oneof=morning afternoon night"`
	Notes           string    `json:"notes,omitempty" validate:"max=2000"`
}

// ProgressRequest is the payload for schedule progress updates.
type ProgressRequest struct {
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
	Notes      string  `json:"notes,omitempty" validate:"max=1000"`
	Worker     string  `json:"worker,omitempty" validate:"max=100"`
}

// CompleteScheduleRequest is the payload for completing a schedule.
type CompleteScheduleRequest struct {
	ActualQuantity *float64 `json:"actual_quantity,omitempty" validate:"omitempty,gt=0"`
	Notes          string   `json:"notes,omitempty" validate:"max=1000"`
	Worker         string   `json:"worker,omitempty" validate:"max=100"`
}

// DelayRequest is the payload for delaying a schedule.
type DelayRequest struct {
	NewDate time.Time `json:"new_date" validate:"required"`
	Reason  string    `json:"reason,omitempty" validate:"max=1000"`
	Worker  string    `json:"worker,omitempty" validate:"max=100"`
}
