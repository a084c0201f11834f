package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-erp/atelier-erp/internal/stock"
)

// Repository abstracts procurement persistence.
type Repository interface {
	Create(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	Save(ctx context.Context, po PurchaseOrder) error
	SaveLine(ctx context.Context, line POLine) error
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
}

// LedgerPort announces and books inbound stock.
type LedgerPort interface {
	ExpectIncoming(ctx context.Context, item stock.ItemRef, qty float64) error
	Receive(ctx context.Context, input stock.ReceiveInput) (stock.Record, error)
}

// SequencePort hands out document sequence numbers.
type SequencePort interface {
	Next(ctx context.Context, scope string) (int, error)
}

// Service coordinates raw material replenishment.
type Service struct {
	repo     Repository
	ledger   LedgerPort
	sequence SequencePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, ledger LedgerPort, sequence SequencePort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		sequence: sequence,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LineInput is one ordered material at creation.
type LineInput struct {
	RawMaterialID int64
	Quantity      float64
	UnitCost      float64
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierName string
	ExpectedDate *time.Time
	Notes        string
	Lines        []LineInput
}

// Create numbers and persists an open purchase order, announcing each
// line's quantity as incoming stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (PurchaseOrder, error) {
	if in.SupplierName == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier name required", ErrValidation)
	}
	if len(in.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order needs at least one line", ErrValidation)
	}
	for _, line := range in.Lines {
		if line.RawMaterialID <= 0 || line.Quantity <= 0 || line.UnitCost < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: bad line for material %d", ErrValidation, line.RawMaterialID)
		}
	}

	now := s.now()
	month := now.Format("200601")
	seq, err := s.sequence.Next(ctx, "po:"+month)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po := PurchaseOrder{
		PONumber:     fmt.Sprintf("PO-%s%04d", month, seq),
		SupplierName: in.SupplierName,
		Status:       POOpen,
		OrderDate:    now,
		ExpectedDate: in.ExpectedDate,
		Notes:        in.Notes,
	}
	for _, line := range in.Lines {
		po.Lines = append(po.Lines, POLine{
			RawMaterialID:   line.RawMaterialID,
			OrderedQuantity: line.Quantity,
			UnitCost:        line.UnitCost,
		})
	}
	created, err := s.repo.Create(ctx, po)
	if err != nil {
		return PurchaseOrder{}, err
	}

	for _, line := range created.Lines {
		item := stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: line.RawMaterialID}
		if err := s.ledger.ExpectIncoming(ctx, item, line.OrderedQuantity); err != nil && s.logger != nil {
			s.logger.Warn("incoming stock announcement failed",
				slog.String("po", created.PONumber),
				slog.Int64("material_id", line.RawMaterialID),
				slog.Any("error", err))
		}
	}
	return created, nil
}

// Get returns one purchase order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, filter)
}

// ReceiveInput describes a line receipt.
type ReceiveInput struct {
	LineID   int64
	Quantity float64
	Actor    string
}

// ReceiveLine books qty of one line into stock at the line's unit cost and
// closes the order once every line is fully received.
func (s *Service) ReceiveLine(ctx context.Context, poID int64, in ReceiveInput) (PurchaseOrder, error) {
	if in.Quantity <= 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	po, err := s.repo.Get(ctx, poID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status.Terminal() {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.PONumber, po.Status)
	}
	var line *POLine
	for i := range po.Lines {
		if po.Lines[i].ID == in.LineID {
			line = &po.Lines[i]
			break
		}
	}
	if line == nil {
		return PurchaseOrder{}, fmt.Errorf("%w: line %d", ErrNotFound, in.LineID)
	}
	if in.Quantity > line.Outstanding() {
		return PurchaseOrder{}, fmt.Errorf("%w: %.4f outstanding, %.4f offered", ErrValidation, line.Outstanding(), in.Quantity)
	}

	cost := line.UnitCost
	_, err = s.ledger.Receive(ctx, stock.ReceiveInput{
		Item:     stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: line.RawMaterialID},
		Qty:      in.Quantity,
		UnitCost: &cost,
		Notes:    fmt.Sprintf("Receipt against %s", po.PONumber),
		Actor:    in.Actor,
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	line.ReceivedQuantity += in.Quantity
	if err := s.repo.SaveLine(ctx, *line); err != nil {
		return PurchaseOrder{}, err
	}

	allReceived := true
	anyReceived := false
	for _, l := range po.Lines {
		if l.ReceivedQuantity > 0 {
			anyReceived = true
		}
		if l.Outstanding() > 0 {
			allReceived = false
		}
	}
	switch {
	case allReceived:
		now := s.now()
		po.Status = POReceived
		po.ReceivedDate = &now
	case anyReceived:
		po.Status = POPartial
	}
	if err := s.repo.Save(ctx, po); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Cancel closes an open purchase order. Already-received lines stay booked.
func (s *Service) Cancel(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status.Terminal() {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.PONumber, po.Status)
	}
	po.Status = POCancelled
	if err := s.repo.Save(ctx, po); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}
