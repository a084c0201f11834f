package orders

import (
	"errors"
	"time"
)

// Status enumerates order states. Transitions are deliberately unrestricted
// at the order level; only the date stamping reacts to specific targets.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusInProduction Status = "in_production"
	StatusReady        Status = "ready"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
	StatusOnHold       Status = "on_hold"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProduction, StatusReady,
		StatusShipped, StatusDelivered, StatusCancelled, StatusOnHold:
		return true
	}
	return false
}

// Priority enumerates order urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is known or unset.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ItemStatus enumerates order item states.
type ItemStatus string

const (
	ItemPending      ItemStatus = "pending"
	ItemInProduction ItemStatus = "in_production"
	ItemCompleted    ItemStatus = "completed"
	ItemShipped      ItemStatus = "shipped"
)

// Order is a customer order with its monetary roll-up.
type Order struct {
	ID              int64      `json:"id"`
	OrderNumber     string     `json:"order_number"`
	CustomerID      int64      `json:"customer_id"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority,omitempty"`
	OrderDate       time.Time  `json:"order_date"`
	RequiredDate    *time.Time `json:"required_date,omitempty"`
	PromisedDate    *time.Time `json:"promised_date,omitempty"`
	ShippedDate     *time.Time `json:"shipped_date,omitempty"`
	DeliveredDate   *time.Time `json:"delivered_date,omitempty"`
	Subtotal        float64    `json:"subtotal"`
	TaxAmount       float64    `json:"tax_amount"`
	ShippingCost    float64    `json:"shipping_cost"`
	DiscountAmount  float64    `json:"discount_amount"`
	TotalAmount     float64    `json:"total_amount"`
	ShippingAddress string     `json:"shipping_address,omitempty"`
	BillingAddress  string     `json:"billing_address,omitempty"`
	ShippingMethod  string     `json:"shipping_method,omitempty"`
	TrackingNumber  string     `json:"tracking_number,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Items           []Item     `json:"items,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RecalculateTotals recomputes line totals and the money roll-up in place.
func (o *Order) RecalculateTotals() {
	var sum float64
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].Quantity * o.Items[i].UnitPrice
		sum += o.Items[i].LineTotal
	}
	o.Subtotal = sum - o.DiscountAmount
	o.TotalAmount = o.Subtotal + o.TaxAmount + o.ShippingCost
}

// CanBeCancelled reports whether cancellation is allowed from the current state.
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed || o.Status == StatusOnHold
}

// CanBeShipped reports whether the order is ready to ship.
func (o *Order) CanBeShipped() bool {
	return o.Status == StatusReady
}

// CanBeDelivered requires a shipped order with a tracking number on file.
func (o *Order) CanBeDelivered() bool {
	return o.Status == StatusShipped && o.TrackingNumber != ""
}

// Item is one order line. LineTotal is always derived from quantity and
// unit price, never set directly.
type Item struct {
	ID                      int64      `json:"id"`
	OrderID                 int64      `json:"order_id"`
	ProductID               int64      `json:"product_id"`
	ProductName             string     `json:"product_name,omitempty"`
	Quantity                float64    `json:"quantity"`
	UnitPrice               float64    `json:"unit_price"`
	LineTotal               float64    `json:"line_total"`
	CustomizationDetails    string     `json:"customization_details,omitempty"`
	Status                  ItemStatus `json:"status"`
	ProductionStartDate     *time.Time `json:"production_start_date,omitempty"`
	ProductionEndDate       *time.Time `json:"production_end_date,omitempty"`
	ProductionDaysEstimated int        `json:"production_days_estimated,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// ListFilter filters order listings.
type ListFilter struct {
	Status     Status
	Priority   Priority
	CustomerID int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

var (
	// ErrNotFound indicates a missing order or item.
	ErrNotFound = errors.New("orders: not found")
	// ErrInvalidState indicates a transition attempted from a state that does not permit it.
	ErrInvalidState = errors.New("orders: invalid state for operation")
	// ErrInsufficientMaterials indicates item production start without enough raw material stock.
	ErrInsufficientMaterials = errors.New("orders: insufficient materials")
	// ErrValidation indicates malformed input to an order operation.
	ErrValidation = errors.New("orders: validation failed")
)
