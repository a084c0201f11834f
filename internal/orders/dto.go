package orders

import "time"

// ItemRequest is one order line in a create or add-item payload.
type ItemRequest struct {
	ProductID               int64    `json:"product_id" validate:"required,gt=0"`
	Quantity                float64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice               *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	CustomizationDetails    string   `json:"customization_details,omitempty" validate:"max=2000"`
	ProductionDaysEstimated int      `json:"production_days_estimated,omitempty" validate:"gte=0"`
}

func (req ItemRequest) toInput() ItemInput {
	return ItemInput{
		ProductID:               req.ProductID,
		Quantity:                req.Quantity,
		UnitPrice:               req.UnitPrice,
		CustomizationDetails:    req.CustomizationDetails,
		ProductionDaysEstimated: req.ProductionDaysEstimated,
	}
}

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	CustomerID      int64         `json:"customer_id" validate:"required,gt=0"`
	Priority        string        `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	RequiredDate    *time.Time    `json:"required_date,omitempty"`
	PromisedDate    *time.Time    `json:"promised_date,omitempty"`
	TaxAmount       float64       `json:"tax_amount" validate:"gte=0"`
	ShippingCost    float64       `json:"shipping_cost" validate:"gte=0"`
	DiscountAmount  float64       `json:"discount_amount" validate:"gte=0"`
	ShippingAddress string        `json:"shipping_address,omitempty" validate:"max=500"`
	BillingAddress  string        `json:"billing_address,omitempty" validate:"max=500"`
	ShippingMethod  string        `json:"shipping_method,omitempty" validate:"max=100"`
	Notes           string        `json:"notes,omitempty" validate:"max=2000"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Actor           string        `json:"actor,omitempty" validate:"max=100"`
}

// StatusRequest is the payload for order status updates.
type StatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=pending confirmed in_production ready shipped delivered cancelled on_hold"`
	TrackingNumber string `json:"tracking_number,omitempty" validate:"max=100"`
	Actor          string `json:"actor,omitempty" validate:"max=100"`
}

// ActorRequest carries just the acting identity for item transitions.
type ActorRequest struct {
	Actor string `json:"actor,omitempty" validate:"max=100"`
}

// OrderResponse decorates an order with its derived predicates.
type OrderResponse struct {
	Order
	CanBeCancelled bool `json:"can_be_cancelled"`
	CanBeShipped   bool `json:"can_be_shipped"`
	CanBeDelivered bool `json:"can_be_delivered"`
}

// NewOrderResponse builds the response shape for one order.
func NewOrderResponse(o Order) OrderResponse {
	return OrderResponse{
		Order:          o,
		CanBeCancelled: o.CanBeCancelled(),
		CanBeShipped:   o.CanBeShipped(),
		CanBeDelivered: o.CanBeDelivered(),
	}
}

// ListMeta carries pagination totals.
type ListMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
