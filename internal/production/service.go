package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
	"github.com/atelier-erp/atelier-erp/internal/shared"
	"github.com/atelier-erp/atelier-erp/internal/stock"
)

// Repository abstracts production persistence.
type Repository interface {
	CreateBatch(ctx context.Context, b Batch) (int64, error)
	GetBatch(ctx context.Context, id int64) (Batch, error)
	SaveBatch(ctx context.Context, b Batch) error
	ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error)

	CreateSchedule(ctx context.Context, s Schedule) (int64, error)
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	SaveSchedule(ctx context.Context, s Schedule) error
	ListSchedules(ctx context.Context, batchID int64) ([]Schedule, error)
}

// CatalogPort reads product and BOM data from the catalog.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	RequiredMaterials(ctx context.Context, productID int64, qty float64) ([]catalog.MaterialRequirement, error)
	CanProduce(ctx context.Context, productID int64, qty float64) (bool, error)
}

// LedgerPort mutates stock on behalf of production.
type LedgerPort interface {
	Reserve(ctx context.Context, input stock.ReserveInput) (stock.Record, error)
	Release(ctx context.Context, input stock.ReserveInput) (stock.Record, error)
	Adjust(ctx context.Context, input stock.AdjustInput) (stock.Record, error)
}

// OrderCascadePort lets batch completion advance the linked order item
// without importing the orders package.
type OrderCascadePort interface {
	ItemQuantity(ctx context.Context, itemID int64) (float64, error)
	CompleteItemProduction(ctx context.Context, itemID int64, actor string) error
}

// SequencePort hands out document sequence numbers.
type SequencePort interface {
	Next(ctx context.Context, scope string) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates production batches and schedules.
type Service struct {
	repo     Repository
	catalog  CatalogPort
	ledger   LedgerPort
	orders   OrderCascadePort
	sequence SequencePort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, cat CatalogPort, ledger LedgerPort, sequence SequencePort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		ledger:   ledger,
		sequence: sequence,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithOrderCascade wires the order item completion hook. Set after
// construction because orders and production are wired independently.
func (s *Service) WithOrderCascade(orders OrderCascadePort) *Service {
	s.orders = orders
	return s
}

// CreateBatchInput describes a new batch.
type CreateBatchInput struct {
	ProductID        int64
	OrderItemID      *int64
	PlannedQuantity  float64
	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	EstimatedHours   float64
	Supervisor       string
	Notes            string
}

// CreateBatch numbers and persists a planned batch.
func (s *Service) CreateBatch(ctx context.Context, in CreateBatchInput) (Batch, error) {
	if in.PlannedQuantity <= 0 {
		return Batch{}, fmt.Errorf("%w: planned quantity must be positive", ErrValidation)
	}
	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return Batch{}, err
	}
	day := s.now().Format("20060102")
	seq, err := s.sequence.Next(ctx, fmt.Sprintf("batch:%s:%s", product.SKU, day))
	if err != nil {
		return Batch{}, err
	}
	b := Batch{
		BatchNumber:      fmt.Sprintf("BATCH-%s-%s-%03d", product.SKU, day, seq),
		ProductID:        in.ProductID,
		OrderItemID:      in.OrderItemID,
		PlannedQuantity:  in.PlannedQuantity,
		Status:           BatchPlanned,
		PlannedStartDate: in.PlannedStartDate,
		PlannedEndDate:   in.PlannedEndDate,
		EstimatedHours:   in.EstimatedHours,
		Supervisor:       in.Supervisor,
		Notes:            in.Notes,
	}
	id, err := s.repo.CreateBatch(ctx, b)
	if err != nil {
		return Batch{}, err
	}
	b.ID = id
	s.auditBatch(ctx, b, in.Supervisor, "production:batch_created", nil)
	return b, nil
}

// GetBatch returns one batch.
func (s *Service) GetBatch(ctx context.Context, id int64) (Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

// ListBatches returns batches matching the filter.
func (s *Service) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	return s.repo.ListBatches(ctx, filter)
}

// StartBatch moves a planned batch into production and reserves every BOM
// line's material. Reservation is all or nothing: a failed line releases
// whatever was already taken before the error surfaces.
func (s *Service) StartBatch(ctx context.Context, id int64, actor string) (Batch, error) {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchPlanned {
		return Batch{}, fmt.Errorf("%w: cannot start batch in status %s", ErrInvalidState, b.Status)
	}
	can, err := s.catalog.CanProduce(ctx, b.ProductID, b.PlannedQuantity)
	if err != nil {
		return Batch{}, err
	}
	if !can {
		return Batch{}, fmt.Errorf("%w: batch %s needs more raw material", ErrInsufficientMaterials, b.BatchNumber)
	}
	requirements, err := s.catalog.RequiredMaterials(ctx, b.ProductID, b.PlannedQuantity)
	if err != nil {
		return Batch{}, err
	}

	usage, err := s.reserveAll(ctx, b.BatchNumber, requirements, actor)
	if err != nil {
		return Batch{}, err
	}

	now := s.now()
	b.Status = BatchInProgress
	b.ActualStartDate = &now
	b.MaterialUsage = usage
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		s.releaseAll(ctx, b.BatchNumber, usage, actor)
		return Batch{}, err
	}
	s.auditBatch(ctx, b, actor, "production:batch_started", nil)
	return b, nil
}

func (s *Service) reserveAll(ctx context.Context, batchNumber string, requirements []catalog.MaterialRequirement, actor string) ([]MaterialUsage, error) {
	var usage []MaterialUsage
	for _, req := range requirements {
		_, err := s.ledger.Reserve(ctx, stock.ReserveInput{
			Item:  stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: req.MaterialID},
			Qty:   req.WithWaste,
			Notes: fmt.Sprintf("Reserved for batch %s", batchNumber),
			Actor: actor,
		})
		if err != nil {
			s.releaseAll(ctx, batchNumber, usage, actor)
			return nil, fmt.Errorf("%w: %s: %v", ErrInsufficientMaterials, req.MaterialName, err)
		}
		usage = append(usage, MaterialUsage{
			MaterialID:       req.MaterialID,
			MaterialName:     req.MaterialName,
			ReservedQuantity: req.WithWaste,
			Unit:             req.Unit,
			ReservedAt:       s.now(),
		})
	}
	return usage, nil
}

func (s *Service) releaseAll(ctx context.Context, batchNumber string, usage []MaterialUsage, actor string) {
	for _, u := range usage {
		_, err := s.ledger.Release(ctx, stock.ReserveInput{
			Item:  stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: u.MaterialID},
			Qty:   u.ReservedQuantity,
			Notes: fmt.Sprintf("Released for batch %s", batchNumber),
			Actor: actor,
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("material release failed",
				slog.String("batch", batchNumber),
				slog.Int64("material_id", u.MaterialID),
				slog.Any("error", err))
		}
	}
}

// PauseBatch pauses an in-progress batch.
func (s *Service) PauseBatch(ctx context.Context, id int64, reason, actor string) (Batch, error) {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchInProgress {
		return Batch{}, fmt.Errorf("%w: cannot pause batch in status %s", ErrInvalidState, b.Status)
	}
	b.Status = BatchPaused
	b.Notes = appendNote(b.Notes, s.now(), noteOr(reason, "Production paused"))
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	s.auditBatch(ctx, b, actor, "production:batch_paused", map[string]any{"reason": reason})
	return b, nil
}

// ResumeBatch resumes a paused batch.
func (s *Service) ResumeBatch(ctx context.Context, id int64, actor string) (Batch, error) {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchPaused {
		return Batch{}, fmt.Errorf("%w: cannot resume batch in status %s", ErrInvalidState, b.Status)
	}
	b.Status = BatchInProgress
	b.Notes = appendNote(b.Notes, s.now(), "Production resumed")
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	s.auditBatch(ctx, b, actor, "production:batch_resumed", nil)
	return b, nil
}

// RecordInput describes a production output record.
type RecordInput struct {
	CompletedQty float64
	RejectedQty  float64
	Notes        string
	Actor        string
}

// RecordProduction accumulates output on an in-progress batch and enters
// quality check once the planned quantity is reached.
func (s *Service) RecordProduction(ctx context.Context, id int64, in RecordInput) (Batch, error) {
	if in.CompletedQty < 0 || in.RejectedQty < 0 {
		return Batch{}, fmt.Errorf("%w: quantities must not be negative", ErrValidation)
	}
	if in.CompletedQty == 0 && in.RejectedQty == 0 {
		return Batch{}, fmt.Errorf("%w: nothing to record", ErrValidation)
	}
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchInProgress {
		return Batch{}, fmt.Errorf("%w: cannot record production in status %s", ErrInvalidState, b.Status)
	}
	b.CompletedQuantity += in.CompletedQty
	b.RejectedQuantity += in.RejectedQty
	b.ActualQuantity = b.CompletedQuantity + b.RejectedQuantity
	if in.Notes != "" {
		b.Notes = appendNote(b.Notes, s.now(), in.Notes)
	}
	if b.CompletedQuantity >= b.PlannedQuantity {
		b.Status = BatchQualityCheck
	}
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	s.auditBatch(ctx, b, in.Actor, "production:output_recorded", map[string]any{
		"completed": in.CompletedQty,
		"rejected":  in.RejectedQty,
	})
	return b, nil
}

// CompleteInput describes batch completion.
type CompleteInput struct {
	ActualHours *float64
	Notes       string
	Actor       string
}

// CompleteBatch finishes production, computes efficiency, credits finished
// goods and cascades to the linked order item. The cascade is a follow-on
// application call; its failure is logged, not propagated, so the batch
// itself stays completed.
func (s *Service) CompleteBatch(ctx context.Context, id int64, in CompleteInput) (Batch, error) {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchInProgress && b.Status != BatchQualityCheck {
		return Batch{}, fmt.Errorf("%w: cannot complete batch in status %s", ErrInvalidState, b.Status)
	}
	now := s.now()
	b.Status = BatchCompleted
	b.ActualEndDate = &now
	if in.ActualHours != nil {
		b.ActualHours = *in.ActualHours
	}
	b.EfficiencyPercentage = b.Efficiency()
	if in.Notes != "" {
		b.Notes = appendNote(b.Notes, now, in.Notes)
	}
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return Batch{}, err
	}

	if b.CompletedQuantity > 0 {
		_, err := s.ledger.Adjust(ctx, stock.AdjustInput{
			Item:  stock.ItemRef{Kind: stock.ItemKindProduct, ID: b.ProductID},
			Delta: b.CompletedQuantity,
			Type:  stock.MovementProduction,
			Notes: fmt.Sprintf("Completed batch %s", b.BatchNumber),
			Actor: in.Actor,
		})
		if err != nil {
			return Batch{}, fmt.Errorf("production: credit finished goods: %w", err)
		}
	}

	s.cascadeOrderItem(ctx, b, in.Actor)
	s.auditBatch(ctx, b, in.Actor, "production:batch_completed", map[string]any{
		"efficiency": b.EfficiencyPercentage,
		"completed":  b.CompletedQuantity,
	})
	return b, nil
}

func (s *Service) cascadeOrderItem(ctx context.Context, b Batch, actor string) {
	if s.orders == nil || b.OrderItemID == nil {
		return
	}
	qty, err := s.orders.ItemQuantity(ctx, *b.OrderItemID)
	if err == nil && b.CompletedQuantity >= qty {
		err = s.orders.CompleteItemProduction(ctx, *b.OrderItemID, actor)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("order item cascade failed",
			slog.String("batch", b.BatchNumber),
			slog.Int64("order_item_id", *b.OrderItemID),
			slog.Any("error", err))
	}
}

// CancelBatch cancels any non-terminal batch and releases materials still
// reserved from its start.
func (s *Service) CancelBatch(ctx context.Context, id int64, reason, actor string) (Batch, error) {
	b, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status.Terminal() {
		return Batch{}, fmt.Errorf("%w: cannot cancel batch in status %s", ErrInvalidState, b.Status)
	}
	hadReservations := len(b.MaterialUsage) > 0
	b.Status = BatchCancelled
	b.Notes = appendNote(b.Notes, s.now(), noteOr(reason, "Batch cancelled"))
	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	if hadReservations {
		s.releaseAll(ctx, b.BatchNumber, b.MaterialUsage, actor)
	}
	s.auditBatch(ctx, b, actor, "production:batch_cancelled", map[string]any{"reason": reason})
	return b, nil
}

// CreateScheduleInput describes a new schedule under a batch.
type CreateScheduleInput struct {
	Name            string
	ScheduledDate   time.Time
	StartTime       string
	EndTime         string
	PlannedQuantity float64
	WorkStation     string
	AssignedWorker  string
	Shift           string
	Notes           string
}

// CreateSchedule creates a schedule with a snapshot of its material needs.
func (s *Service) CreateSchedule(ctx context.Context, batchID int64, in CreateScheduleInput) (Schedule, error) {
	if in.PlannedQuantity <= 0 {
		return Schedule{}, fmt.Errorf("%w: planned quantity must be positive", ErrValidation)
	}
	if in.ScheduledDate.IsZero() {
		return Schedule{}, fmt.Errorf("%w: scheduled date required", ErrValidation)
	}
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Schedule{}, err
	}
	requirements, err := s.catalog.RequiredMaterials(ctx, b.ProductID, in.PlannedQuantity)
	if err != nil {
		return Schedule{}, err
	}
	snapshot := make([]RequiredMaterial, 0, len(requirements))
	for _, req := range requirements {
		snapshot = append(snapshot, RequiredMaterial{
			MaterialID:   req.MaterialID,
			MaterialName: req.MaterialName,
			Quantity:     req.WithWaste,
			Unit:         req.Unit,
		})
	}
	name := in.Name
	if name == "" {
		name = fmt.Sprintf("%s - %s", b.BatchNumber, in.ScheduledDate.Format("2006-01-02"))
	}
	sched := Schedule{
		BatchID:           batchID,
		Name:              name,
		ScheduledDate:     in.ScheduledDate,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		PlannedQuantity:   in.PlannedQuantity,
		WorkStation:       in.WorkStation,
		AssignedWorker:    in.AssignedWorker,
		Shift:             in.Shift,
		Status:            ScheduleScheduled,
		RequiredMaterials: snapshot,
		Notes:             in.Notes,
	}
	id, err := s.repo.CreateSchedule(ctx, sched)
	if err != nil {
		return Schedule{}, err
	}
	sched.ID = id
	return sched, nil
}

// GetSchedule returns one schedule.
func (s *Service) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

// ListSchedules returns a batch's schedules.
func (s *Service) ListSchedules(ctx context.Context, batchID int64) ([]Schedule, error) {
	return s.repo.ListSchedules(ctx, batchID)
}

// StartSchedule begins scheduled work. It refuses future-dated schedules and
// schedules whose batch cannot source materials right now.
func (s *Service) StartSchedule(ctx context.Context, id int64, worker string) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sched.Status != ScheduleScheduled && sched.Status != ScheduleDelayed {
		return Schedule{}, fmt.Errorf("%w: cannot start schedule in status %s", ErrInvalidState, sched.Status)
	}
	today := s.now().Truncate(24 * time.Hour)
	if sched.ScheduledDate.Truncate(24 * time.Hour).After(today) {
		return Schedule{}, fmt.Errorf("%w: schedule is dated %s", ErrInvalidState, sched.ScheduledDate.Format("2006-01-02"))
	}
	b, err := s.repo.GetBatch(ctx, sched.BatchID)
	if err != nil {
		return Schedule{}, err
	}
	can, err := s.catalog.CanProduce(ctx, b.ProductID, sched.PlannedQuantity)
	if err != nil {
		return Schedule{}, err
	}
	if !can {
		return Schedule{}, fmt.Errorf("%w: schedule %s needs more raw material", ErrInsufficientMaterials, sched.Name)
	}
	sched.Status = ScheduleInProgress
	sched.CompletionLog = append(sched.CompletionLog, CompletionLogEntry{
		Timestamp: s.now(),
		Notes:     "Work started",
		Worker:    worker,
		Status:    ScheduleInProgress,
	})
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

// ProgressInput describes a progress update.
type ProgressInput struct {
	Percentage float64
	Notes      string
	Worker     string
}

// UpdateProgress appends a progress entry, clamping the percentage to
// [0,100] and auto-completing at 100.
func (s *Service) UpdateProgress(ctx context.Context, id int64, in ProgressInput) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sched.Status != ScheduleInProgress {
		return Schedule{}, fmt.Errorf("%w: cannot update progress in status %s", ErrInvalidState, sched.Status)
	}
	pct := in.Percentage
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	sched.CompletionPercentage = pct
	if pct >= 100 {
		sched.Status = ScheduleCompleted
	}
	sched.CompletionLog = append(sched.CompletionLog, CompletionLogEntry{
		Timestamp:  s.now(),
		Percentage: pct,
		Notes:      in.Notes,
		Worker:     in.Worker,
		Status:     sched.Status,
	})
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

// CompleteScheduleInput describes schedule completion.
type CompleteScheduleInput struct {
	ActualQuantity *float64
	Notes          string
	Worker         string
}

// CompleteSchedule finishes the work unit and optionally records its output
// into the parent batch.
func (s *Service) CompleteSchedule(ctx context.Context, id int64, in CompleteScheduleInput) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sched.Status != ScheduleInProgress && sched.Status != ScheduleScheduled {
		return Schedule{}, fmt.Errorf("%w: cannot complete schedule in status %s", ErrInvalidState, sched.Status)
	}
	sched.Status = ScheduleCompleted
	sched.CompletionPercentage = 100
	sched.CompletionLog = append(sched.CompletionLog, CompletionLogEntry{
		Timestamp:  s.now(),
		Percentage: 100,
		Notes:      noteOr(in.Notes, "Work completed"),
		Worker:     in.Worker,
		Status:     ScheduleCompleted,
	})
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	if in.ActualQuantity != nil && *in.ActualQuantity > 0 {
		if _, err := s.RecordProduction(ctx, sched.BatchID, RecordInput{
			CompletedQty: *in.ActualQuantity,
			Notes:        fmt.Sprintf("Recorded from schedule %s", sched.Name),
			Actor:        in.Worker,
		}); err != nil && s.logger != nil {
			s.logger.Warn("schedule output record failed",
				slog.Int64("schedule_id", sched.ID),
				slog.Any("error", err))
		}
	}
	return sched, nil
}

// CancelSchedule cancels a not-yet-completed schedule.
func (s *Service) CancelSchedule(ctx context.Context, id int64, reason, worker string) (Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sched.Status == ScheduleCompleted || sched.Status == ScheduleCancelled {
		return Schedule{}, fmt.Errorf("%w: cannot cancel schedule in status %s", ErrInvalidState, sched.Status)
	}
	sched.Status = ScheduleCancelled
	sched.CompletionLog = append(sched.CompletionLog, CompletionLogEntry{
		Timestamp:  s.now(),
		Percentage: sched.CompletionPercentage,
		Notes:      noteOr(reason, "Schedule cancelled"),
		Worker:     worker,
		Status:     ScheduleCancelled,
	})
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

// DelaySchedule moves the schedule to a later date.
func (s *Service) DelaySchedule(ctx context.Context, id int64, newDate time.Time, reason, worker string) (Schedule, error) {
	if newDate.IsZero() {
		return Schedule{}, fmt.Errorf("%w: new date required", ErrValidation)
	}
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sched.Status == ScheduleCompleted || sched.Status == ScheduleCancelled {
		return Schedule{}, fmt.Errorf("%w: cannot delay schedule in status %s", ErrInvalidState, sched.Status)
	}
	sched.Status = ScheduleDelayed
	sched.ScheduledDate = newDate
	sched.CompletionLog = append(sched.CompletionLog, CompletionLogEntry{
		Timestamp:  s.now(),
		Percentage: sched.CompletionPercentage,
		Notes:      noteOr(reason, fmt.Sprintf("Delayed to %s", newDate.Format("2006-01-02"))),
		Worker:     worker,
		Status:     ScheduleDelayed,
	})
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}
	return sched, nil
}

func (s *Service) auditBatch(ctx context.Context, b Batch, actor, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["batch_number"] = b.BatchNumber
	meta["status"] = string(b.Status)
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "production_batch",
		EntityID: fmt.Sprintf("%d", b.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func appendNote(existing string, at time.Time, note string) string {
	stamped := fmt.Sprintf("[%s] %s", at.Format(time.RFC3339), note)
	if existing == "" {
		return stamped
	}
	return existing + "\n" + stamped
}

func noteOr(notes, fallback string) string {
	if notes != "" {
		return notes
	}
	return fallback
}
