package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-erp/atelier-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, item ItemRef) (Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Movements(ctx context.Context, item ItemRef, limit int) ([]Movement, error)
	InsertMovement(ctx context.Context, mv Movement) error
	Valuation(ctx context.Context) ([]KindValuation, error)
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, item ItemRef) (Record, error)
	Create(ctx context.Context, rec Record) (int64, error)
	Save(ctx context.Context, rec Record) error
	AddIncoming(ctx context.Context, item ItemRef, qty float64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ThresholdResolver resolves the owning item's stock alarm levels.
type ThresholdResolver interface {
	Thresholds(ctx context.Context, item ItemRef) (Thresholds, error)
}

// Service coordinates ledger operations for stockable items.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	thresholds ThresholdResolver
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, thresholds ThresholdResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		audit:      audit,
		thresholds: thresholds,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithThresholds installs the resolver for per-item alarm levels. Installed
// after construction because the catalog, which owns the thresholds, also
// depends on the ledger.
func (s *Service) WithThresholds(resolver ThresholdResolver) *Service {
	s.thresholds = resolver
	return s
}

// AdjustInput describes a direct ledger adjustment. Delta may be negative;
// the ledger applies it without a zero floor.
type AdjustInput struct {
	Item     ItemRef
	Delta    float64
	Type     MovementType
	Notes    string
	UnitCost *float64
	Actor    string
}

// ReserveInput describes a reservation, release or fulfilment request.
type ReserveInput struct {
	Item  ItemRef
	Qty   float64
	Notes string
	Actor string
}

// ReceiveInput describes inbound stock.
type ReceiveInput struct {
	Item     ItemRef
	Qty      float64
	UnitCost *float64
	Notes    string
	Actor    string
}

// EnsureRecord creates the ledger row for a newly created item. It is a
// no-op when the record already exists.
func (s *Service) EnsureRecord(ctx context.Context, item ItemRef, location string) (Record, error) {
	if !item.Valid() {
		return Record{}, fmt.Errorf("%w: item reference", ErrInvalidQuantity)
	}
	var out Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, item)
		if err == nil {
			out = rec
			return nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		rec = Record{Item: item, Location: location}
		rec.normalize()
		id, err := tx.Create(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id
		out = rec
		return nil
	})
	return out, err
}

// Adjust applies a signed delta to current stock, recomputes availability and
// the weighted average cost, and records the movement.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Record, error) {
	if !input.Item.Valid() {
		return Record{}, fmt.Errorf("%w: item reference", ErrInvalidQuantity)
	}
	if input.Delta == 0 {
		return Record{}, fmt.Errorf("%w: delta must be non-zero", ErrInvalidQuantity)
	}
	movementType := input.Type
	if movementType == "" {
		movementType = MovementManual
	}
	if !movementType.Valid() {
		return Record{}, fmt.Errorf("%w: unknown movement type %q", ErrInvalidQuantity, input.Type)
	}

	var out Record
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.Item)
		if err != nil {
			return err
		}
		mv = s.applyDelta(&rec, input.Delta, movementType, input.Notes, input.UnitCost, input.Actor)
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	s.recordMovement(ctx, mv)
	return out, nil
}

// Reserve earmarks qty units of available stock.
func (s *Service) Reserve(ctx context.Context, input ReserveInput) (Record, error) {
	if err := validateQty(input.Item, input.Qty); err != nil {
		return Record{}, err
	}
	var out Record
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.Item)
		if err != nil {
			return err
		}
		if input.Qty > rec.AvailableStock {
			return fmt.Errorf("%w: available %.4f, requested %.4f", ErrInsufficientStock, rec.AvailableStock, input.Qty)
		}
		rec.ReservedStock += input.Qty
		rec.normalize()
		now := s.now()
		rec.LastMovementAt = &now
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		mv = s.movement(rec, MovementReservation, -input.Qty, rec.CurrentStock, rec.CurrentStock, nil, noteOr(input.Notes, fmt.Sprintf("Reserved %.4f units", input.Qty)), input.Actor)
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	s.recordMovement(ctx, mv)
	return out, nil
}

// Release returns qty reserved units to availability.
func (s *Service) Release(ctx context.Context, input ReserveInput) (Record, error) {
	if err := validateQty(input.Item, input.Qty); err != nil {
		return Record{}, err
	}
	var out Record
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.Item)
		if err != nil {
			return err
		}
		if input.Qty > rec.ReservedStock {
			return fmt.Errorf("%w: reserved %.4f, requested %.4f", ErrInvalidRelease, rec.ReservedStock, input.Qty)
		}
		rec.ReservedStock -= input.Qty
		rec.normalize()
		now := s.now()
		rec.LastMovementAt = &now
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		mv = s.movement(rec, MovementRelease, input.Qty, rec.CurrentStock, rec.CurrentStock, nil, noteOr(input.Notes, fmt.Sprintf("Released %.4f units from reservation", input.Qty)), input.Actor)
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	s.recordMovement(ctx, mv)
	return out, nil
}

// Fulfill consumes qty reserved units; they leave current stock entirely and
// availability is unaffected.
func (s *Service) Fulfill(ctx context.Context, input ReserveInput) (Record, error) {
	if err := validateQty(input.Item, input.Qty); err != nil {
		return Record{}, err
	}
	var out Record
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.Item)
		if err != nil {
			return err
		}
		if input.Qty > rec.ReservedStock {
			return fmt.Errorf("%w: reserved %.4f, requested %.4f", ErrInvalidRelease, rec.ReservedStock, input.Qty)
		}
		old := rec.CurrentStock
		rec.ReservedStock -= input.Qty
		rec.CurrentStock -= input.Qty
		rec.normalize()
		now := s.now()
		rec.LastMovementAt = &now
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		mv = s.movement(rec, MovementFulfillment, -input.Qty, old, rec.CurrentStock, nil, noteOr(input.Notes, fmt.Sprintf("Fulfilled %.4f units from reservation", input.Qty)), input.Actor)
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	s.recordMovement(ctx, mv)
	return out, nil
}

// Receive books inbound stock and clears expected-receipt tracking when the
// quantity was announced as incoming.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Record, error) {
	if err := validateQty(input.Item, input.Qty); err != nil {
		return Record{}, err
	}
	var out Record
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.Item)
		if err != nil {
			return err
		}
		mv = s.applyDelta(&rec, input.Qty, MovementReceipt, input.Notes, input.UnitCost, input.Actor)
		if rec.IncomingStock >= input.Qty {
			rec.IncomingStock -= input.Qty
		}
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	s.recordMovement(ctx, mv)
	return out, nil
}

// ExpectIncoming adds qty to the incoming-stock counter for a raw material
// that has been ordered but not yet received.
func (s *Service) ExpectIncoming(ctx context.Context, item ItemRef, qty float64) error {
	if err := validateQty(item, qty); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.AddIncoming(ctx, item, qty)
	})
}

// Get returns the ledger record for one item.
func (s *Service) Get(ctx context.Context, item ItemRef) (Record, error) {
	if !item.Valid() {
		return Record{}, fmt.Errorf("%w: item reference", ErrInvalidQuantity)
	}
	return s.repo.Get(ctx, item)
}

// List returns ledger records matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	return s.repo.List(ctx, filter)
}

// LowStock returns every record at or below its minimum stock level.
func (s *Service) LowStock(ctx context.Context) ([]Record, error) {
	records, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range records {
		min := float64(DefaultMinStockLevel)
		if t, err := s.resolveThresholds(ctx, rec.Item); err == nil && t.MinStockLevel > 0 {
			min = t.MinStockLevel
		}
		if rec.CurrentStock <= min {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Valuation returns per-kind stock quantity and value totals, valued at the
// weighted average cost.
func (s *Service) Valuation(ctx context.Context) ([]KindValuation, error) {
	return s.repo.Valuation(ctx)
}

// Movements returns the most recent movement rows for one item.
func (s *Service) Movements(ctx context.Context, item ItemRef, limit int) ([]Movement, error) {
	if !item.Valid() {
		return nil, fmt.Errorf("%w: item reference", ErrInvalidQuantity)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.Movements(ctx, item, limit)
}

// IsLowStock compares current stock to the item's minimum stock level.
func (s *Service) IsLowStock(ctx context.Context, item ItemRef) (bool, error) {
	rec, err := s.repo.Get(ctx, item)
	if err != nil {
		return false, err
	}
	min := float64(DefaultMinStockLevel)
	if t, err := s.resolveThresholds(ctx, item); err == nil && t.MinStockLevel > 0 {
		min = t.MinStockLevel
	}
	return rec.CurrentStock <= min, nil
}

// NeedsReorder compares current stock to the item's reorder point.
func (s *Service) NeedsReorder(ctx context.Context, item ItemRef) (bool, error) {
	rec, err := s.repo.Get(ctx, item)
	if err != nil {
		return false, err
	}
	point := float64(DefaultReorderPoint)
	if t, err := s.resolveThresholds(ctx, item); err == nil && t.ReorderPoint > 0 {
		point = t.ReorderPoint
	}
	return rec.CurrentStock <= point, nil
}

func (s *Service) resolveThresholds(ctx context.Context, item ItemRef) (Thresholds, error) {
	if s.thresholds == nil {
		return Thresholds{}, nil
	}
	return s.thresholds.Thresholds(ctx, item)
}

// applyDelta mutates the record for a signed stock change. Positive deltas
// with a unit cost feed the weighted average.
func (s *Service) applyDelta(rec *Record, delta float64, movementType MovementType, notes string, unitCost *float64, actor string) Movement {
	old := rec.CurrentStock
	rec.CurrentStock += delta
	if delta > 0 && unitCost != nil {
		totalQty := old + delta
		if totalQty > 0 {
			rec.AverageCost = (old*rec.AverageCost + delta*(*unitCost)) / totalQty
		} else {
			rec.AverageCost = *unitCost
		}
	}
	rec.normalize()
	now := s.now()
	rec.LastMovementAt = &now
	if notes != "" {
		rec.Notes = notes
	}
	return s.movement(*rec, movementType, delta, old, rec.CurrentStock, unitCost, notes, actor)
}

func (s *Service) movement(rec Record, movementType MovementType, qty, oldStock, newStock float64, unitCost *float64, notes, actor string) Movement {
	return Movement{
		RecordID:   rec.ID,
		Item:       rec.Item,
		Type:       movementType,
		Quantity:   qty,
		OldStock:   oldStock,
		NewStock:   newStock,
		UnitCost:   unitCost,
		Notes:      notes,
		Actor:      actor,
		RefID:      uuid.NewString(),
		OccurredAt: s.now(),
	}
}

// recordMovement persists the movement row and mirrors it to the audit sink.
// Both are side channels; failures never abort the triggering operation.
func (s *Service) recordMovement(ctx context.Context, mv Movement) {
	if err := s.repo.InsertMovement(ctx, mv); err != nil && s.logger != nil {
		s.logger.Warn("stock movement log failed",
			slog.String("item", mv.Item.String()),
			slog.String("type", string(mv.Type)),
			slog.Any("error", err))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    mv.Actor,
			Action:   fmt.Sprintf("stock:%s", mv.Type),
			Entity:   "stock_record",
			EntityID: mv.Item.String(),
			Meta: map[string]any{
				"quantity":  mv.Quantity,
				"old_stock": mv.OldStock,
				"new_stock": mv.NewStock,
				"notes":     mv.Notes,
			},
			At: mv.OccurredAt,
		})
	}
}

func validateQty(item ItemRef, qty float64) error {
	if !item.Valid() {
		return fmt.Errorf("%w: item reference", ErrInvalidQuantity)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}
	return nil
}

func noteOr(notes, fallback string) string {
	if notes != "" {
		return notes
	}
	return fallback
}
