package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
	"github.com/atelier-erp/atelier-erp/internal/shared"
)

// Repository abstracts order persistence.
type Repository interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	SaveOrder(ctx context.Context, o Order) error
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error)

	GetItem(ctx context.Context, id int64) (Item, error)
	SaveItem(ctx context.Context, item Item) error
	AddItem(ctx context.Context, item Item) (int64, error)
	DeleteItem(ctx context.Context, id int64) error
	ItemsByOrder(ctx context.Context, orderID int64) ([]Item, error)
}

// CatalogPort reads product data for pricing and production gating.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	CanProduce(ctx context.Context, productID int64, qty float64) (bool, error)
}

// CustomerPort verifies customers exist before orders reference them.
type CustomerPort interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// SequencePort hands out document sequence numbers.
type SequencePort interface {
	Next(ctx context.Context, scope string) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order and order item lifecycles.
type Service struct {
	repo      Repository
	catalog   CatalogPort
	customers CustomerPort
	sequence  SequencePort
	audit     AuditPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, cat CatalogPort, customers CustomerPort, sequence SequencePort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		customers: customers,
		sequence:  sequence,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ItemInput describes one order line at creation.
type ItemInput struct {
	ProductID               int64
	Quantity                float64
	UnitPrice               *float64
	CustomizationDetails    string
	ProductionDaysEstimated int
}

// CreateOrderInput describes a new order.
type CreateOrderInput struct {
	CustomerID      int64
	Priority        Priority
	RequiredDate    *time.Time
	PromisedDate    *time.Time
	TaxAmount       float64
	ShippingCost    float64
	DiscountAmount  float64
	ShippingAddress string
	BillingAddress  string
	ShippingMethod  string
	Notes           string
	Items           []ItemInput
	Actor           string
}

// CreateOrder numbers the order, prices its lines and persists everything
// atomically. Lines with no explicit unit price take the product's selling
// price at order time.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order needs at least one item", ErrValidation)
	}
	if !in.Priority.Valid() {
		return Order{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	if in.TaxAmount < 0 || in.ShippingCost < 0 || in.DiscountAmount < 0 {
		return Order{}, fmt.Errorf("%w: monetary amounts must not be negative", ErrValidation)
	}
	if s.customers != nil {
		ok, err := s.customers.Exists(ctx, in.CustomerID)
		if err != nil {
			return Order{}, err
		}
		if !ok {
			return Order{}, fmt.Errorf("%w: customer %d", ErrNotFound, in.CustomerID)
		}
	}

	now := s.now()
	items := make([]Item, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: item quantity must be positive", ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Order{}, err
		}
		price := product.SellingPrice
		if line.UnitPrice != nil {
			if *line.UnitPrice < 0 {
				return Order{}, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
			}
			price = *line.UnitPrice
		}
		items = append(items, Item{
			ProductID:               line.ProductID,
			ProductName:             product.Name,
			Quantity:                line.Quantity,
			UnitPrice:               price,
			CustomizationDetails:    line.CustomizationDetails,
			Status:                  ItemPending,
			ProductionDaysEstimated: line.ProductionDaysEstimated,
		})
	}

	month := now.Format("200601")
	seq, err := s.sequence.Next(ctx, "order:"+month)
	if err != nil {
		return Order{}, err
	}
	o := Order{
		OrderNumber:     fmt.Sprintf("ORD-%s%04d", month, seq),
		CustomerID:      in.CustomerID,
		Status:          StatusPending,
		Priority:        in.Priority,
		OrderDate:       now,
		RequiredDate:    in.RequiredDate,
		PromisedDate:    in.PromisedDate,
		TaxAmount:       in.TaxAmount,
		ShippingCost:    in.ShippingCost,
		DiscountAmount:  in.DiscountAmount,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		ShippingMethod:  in.ShippingMethod,
		Notes:           in.Notes,
		Items:           items,
	}
	o.RecalculateTotals()

	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return Order{}, err
	}
	s.auditOrder(ctx, created, in.Actor, "orders:created", map[string]any{"total": created.TotalAmount})
	return created, nil
}

// GetOrder returns one order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns orders matching the filter with a total count.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	return s.repo.ListOrders(ctx, filter)
}

// UpdateStatus sets any status from any other. Transitions into shipped and
// delivered stamp their dates; nothing else is guarded at the order level.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, trackingNumber, actor string) (Order, error) {
	if !status.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	previous := o.Status
	o.Status = status
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	now := s.now()
	switch status {
	case StatusShipped:
		o.ShippedDate = &now
	case StatusDelivered:
		o.DeliveredDate = &now
	}
	if err := s.repo.SaveOrder(ctx, o); err != nil {
		return Order{}, err
	}
	s.auditOrder(ctx, o, actor, "orders:status_changed", map[string]any{
		"from": string(previous),
		"to":   string(status),
	})
	return o, nil
}

// AddItem appends a line to an order and recomputes the roll-up.
func (s *Service) AddItem(ctx context.Context, orderID int64, in ItemInput, actor string) (Order, error) {
	if in.Quantity <= 0 {
		return Order{}, fmt.Errorf("%w: item quantity must be positive", ErrValidation)
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return Order{}, err
	}
	price := product.SellingPrice
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	item := Item{
		OrderID:                 orderID,
		ProductID:               in.ProductID,
		ProductName:             product.Name,
		Quantity:                in.Quantity,
		UnitPrice:               price,
		LineTotal:               in.Quantity * price,
		CustomizationDetails:    in.CustomizationDetails,
		Status:                  ItemPending,
		ProductionDaysEstimated: in.ProductionDaysEstimated,
	}
	if _, err := s.repo.AddItem(ctx, item); err != nil {
		return Order{}, err
	}
	return s.refreshTotals(ctx, o, actor)
}

// RemoveItem deletes a pending line and recomputes the roll-up.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64, actor string) (Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Order{}, err
	}
	if item.OrderID != orderID {
		return Order{}, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	if item.Status != ItemPending {
		return Order{}, fmt.Errorf("%w: cannot remove item in status %s", ErrInvalidState, item.Status)
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return Order{}, err
	}
	return s.refreshTotals(ctx, o, actor)
}

func (s *Service) refreshTotals(ctx context.Context, o Order, actor string) (Order, error) {
	items, err := s.repo.ItemsByOrder(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	o.RecalculateTotals()
	if err := s.repo.SaveOrder(ctx, o); err != nil {
		return Order{}, err
	}
	for _, item := range o.Items {
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return Order{}, err
		}
	}
	s.auditOrder(ctx, o, actor, "orders:totals_recalculated", map[string]any{"total": o.TotalAmount})
	return o, nil
}

// StartItemProduction moves a pending item into production, gated on the
// product's material availability.
func (s *Service) StartItemProduction(ctx context.Context, itemID int64, actor string) (Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if item.Status != ItemPending {
		return Item{}, fmt.Errorf("%w: cannot start production for item in status %s", ErrInvalidState, item.Status)
	}
	can, err := s.catalog.CanProduce(ctx, item.ProductID, item.Quantity)
	if err != nil {
		return Item{}, err
	}
	if !can {
		return Item{}, fmt.Errorf("%w: product %d cannot cover %.0f units", ErrInsufficientMaterials, item.ProductID, item.Quantity)
	}
	now := s.now()
	item.Status = ItemInProduction
	item.ProductionStartDate = &now
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return Item{}, err
	}
	s.auditItem(ctx, item, actor, "orders:item_production_started")
	return item, nil
}

// CompleteItemProduction finishes an in-production item and advances the
// order to ready when every sibling is completed.
func (s *Service) CompleteItemProduction(ctx context.Context, itemID int64, actor string) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status != ItemInProduction {
		return fmt.Errorf("%w: cannot complete item in status %s", ErrInvalidState, item.Status)
	}
	now := s.now()
	item.Status = ItemCompleted
	item.ProductionEndDate = &now
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return err
	}
	s.auditItem(ctx, item, actor, "orders:item_production_completed")

	siblings, err := s.repo.ItemsByOrder(ctx, item.OrderID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.Status != ItemCompleted {
			return nil
		}
	}
	o, err := s.repo.GetOrder(ctx, item.OrderID)
	if err != nil {
		return err
	}
	if o.Status != StatusInProduction {
		return nil
	}
	o.Status = StatusReady
	if err := s.repo.SaveOrder(ctx, o); err != nil {
		return err
	}
	s.auditOrder(ctx, o, actor, "orders:ready", nil)
	return nil
}

// GetItem returns one order item.
func (s *Service) GetItem(ctx context.Context, itemID int64) (Item, error) {
	return s.repo.GetItem(ctx, itemID)
}

// ItemQuantity returns the ordered quantity for one item. Production uses
// it to decide whether a finished batch covers the line.
func (s *Service) ItemQuantity(ctx context.Context, itemID int64) (float64, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

func (s *Service) auditOrder(ctx context.Context, o Order, actor, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["order_number"] = o.OrderNumber
	meta["status"] = string(o.Status)
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", o.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func (s *Service) auditItem(ctx context.Context, item Item, actor, action string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "order_item",
		EntityID: fmt.Sprintf("%d", item.ID),
		Meta: map[string]any{
			"order_id":   item.OrderID,
			"product_id": item.ProductID,
			"status":     string(item.Status),
		},
		At: s.now(),
	})
}
