package production

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides PostgreSQL backed persistence for batches and schedules.
// Snapshot lists (material usage, required materials, completion log) live
// in jsonb columns.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const batchColumns = `id, batch_number, product_id, order_item_id, planned_quantity, actual_quantity, completed_quantity, rejected_quantity, status, planned_start_date, planned_end_date, actual_start_date, actual_end_date, estimated_hours, actual_hours, efficiency_percentage, COALESCE(supervisor,''), COALESCE(material_usage,'[]'::jsonb), COALESCE(notes,''), created_at, updated_at`

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.BatchNumber, &b.ProductID, &b.OrderItemID, &b.PlannedQuantity, &b.ActualQuantity, &b.CompletedQuantity, &b.RejectedQuantity, &b.Status, &b.PlannedStartDate, &b.PlannedEndDate, &b.ActualStartDate, &b.ActualEndDate, &b.EstimatedHours, &b.ActualHours, &b.EfficiencyPercentage, &b.Supervisor, &b.MaterialUsage, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	if err != nil {
		return Batch{}, err
	}
	return b, nil
}

// CreateBatch inserts a batch row.
func (r *Repo) CreateBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO production_batches (batch_number, product_id, order_item_id, planned_quantity, status, planned_start_date, planned_end_date, estimated_hours, supervisor, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,'')) RETURNING id`,
		b.BatchNumber, b.ProductID, b.OrderItemID, b.PlannedQuantity, b.Status, b.PlannedStartDate, b.PlannedEndDate, b.EstimatedHours, b.Supervisor, b.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("production: create batch: %w", err)
	}
	return id, nil
}

// GetBatch returns one batch by id.
func (r *Repo) GetBatch(ctx context.Context, id int64) (Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE id=$1`, id)
	return scanBatch(row)
}

// SaveBatch persists all mutable batch fields.
func (r *Repo) SaveBatch(ctx context.Context, b Batch) error {
	usage := b.MaterialUsage
	if usage == nil {
		usage = []MaterialUsage{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE production_batches SET actual_quantity=$1, completed_quantity=$2, rejected_quantity=$3, status=$4, actual_start_date=$5, actual_end_date=$6, actual_hours=$7, efficiency_percentage=$8, material_usage=$9, notes=NULLIF($10,''), updated_at=NOW()
		WHERE id=$11`,
		b.ActualQuantity, b.CompletedQuantity, b.RejectedQuantity, b.Status, b.ActualStartDate, b.ActualEndDate, b.ActualHours, b.EfficiencyPercentage, usage, b.Notes, b.ID)
	if err != nil {
		return fmt.Errorf("production: save batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBatches returns batches matching the filter, newest first.
func (r *Repo) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM production_batches WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		query += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}
	if filter.ProductID > 0 {
		argCount++
		query += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	if filter.Offset > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

const scheduleColumns = `id, batch_id, name, scheduled_date, COALESCE(start_time,''), COALESCE(end_time,''), planned_quantity, COALESCE(work_station,''), COALESCE(assigned_worker,''), COALESCE(shift,''), status, completion_percentage, COALESCE(required_materials,'[]'::jsonb), COALESCE(completion_log,'[]'::jsonb), COALESCE(notes,''), created_at, updated_at`

func scanSchedule(row pgx.Row) (Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.BatchID, &s.Name, &s.ScheduledDate, &s.StartTime, &s.EndTime, &s.PlannedQuantity, &s.WorkStation, &s.AssignedWorker, &s.Shift, &s.Status, &s.CompletionPercentage, &s.RequiredMaterials, &s.CompletionLog, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, ErrNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// CreateSchedule inserts a schedule row.
func (r *Repo) CreateSchedule(ctx context.Context, s Schedule) (int64, error) {
	materials := s.RequiredMaterials
	if materials == nil {
		materials = []RequiredMaterial{}
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO production_schedules (batch_id, name, scheduled_date, start_time, end_time, planned_quantity, work_station, assigned_worker, shift, status, required_materials, notes)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),$10,$11,NULLIF($12,'')) RETURNING id`,
		s.BatchID, s.Name, s.ScheduledDate, s.StartTime, s.EndTime, s.PlannedQuantity, s.WorkStation, s.AssignedWorker, s.Shift, s.Status, materials, s.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("production: create schedule: %w", err)
	}
	return id, nil
}

// GetSchedule returns one schedule by id.
func (r *Repo) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM production_schedules WHERE id=$1`, id)
	return scanSchedule(row)
}

// SaveSchedule persists all mutable schedule fields. The completion log is
// written whole; callers only ever append to it.
func (r *Repo) SaveSchedule(ctx context.Context, s Schedule) error {
	log := s.CompletionLog
	if log == nil {
		log = []CompletionLogEntry{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE production_schedules SET scheduled_date=$1, start_time=NULLIF($2,''), end_time=NULLIF($3,''), work_station=NULLIF($4,''), assigned_worker=NULLIF($5,''), shift=NULLIF($6,''), status=$7, completion_percentage=$8, completion_log=$9, notes=NULLIF($10,''), updated_at=NOW()
		WHERE id=$11`,
		s.ScheduledDate, s.StartTime, s.EndTime, s.WorkStation, s.AssignedWorker, s.Shift, s.Status, s.CompletionPercentage, log, s.Notes, s.ID)
	if err != nil {
		return fmt.Errorf("production: save schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSchedules returns a batch's schedules ordered by date.
func (r *Repo) ListSchedules(ctx context.Context, batchID int64) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM production_schedules WHERE batch_id=$1 ORDER BY scheduled_date, id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
