package procurement

import (
	"errors"
	"time"
)

// POStatus enumerates purchase order states.
type POStatus string

const (
	POOpen      POStatus = "open"
	POPartial   POStatus = "partially_received"
	POReceived  POStatus = "received"
	POCancelled POStatus = "cancelled"
)

// Terminal reports whether no further receipt is possible.
func (s POStatus) Terminal() bool {
	return s == POReceived || s == POCancelled
}

// POLine is one ordered material on a purchase order.
type POLine struct {
	ID               int64   `json:"id"`
	PurchaseOrderID  int64   `json:"purchase_order_id"`
	RawMaterialID    int64   `json:"raw_material_id"`
	MaterialName     string  `json:"material_name,omitempty"`
	OrderedQuantity  float64 `json:"ordered_quantity"`
	ReceivedQuantity float64 `json:"received_quantity"`
	UnitCost         float64 `json:"unit_cost"`
}

// Outstanding returns the quantity still to be received.
func (l POLine) Outstanding() float64 {
	remaining := l.OrderedQuantity - l.ReceivedQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PurchaseOrder is a replenishment order for raw materials.
type PurchaseOrder struct {
	ID           int64      `json:"id"`
	PONumber     string     `json:"po_number"`
	SupplierName string     `json:"supplier_name"`
	Status       POStatus   `json:"status"`
	OrderDate    time.Time  `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	ReceivedDate *time.Time `json:"received_date,omitempty"`
	Lines        []POLine   `json:"lines,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ListFilter filters purchase order listings.
type ListFilter struct {
	Status   POStatus
	Supplier string
	Limit    int
	Offset   int
}

var (
	// ErrNotFound indicates a missing purchase order or line.
	ErrNotFound = errors.New("procurement: not found")
	// ErrInvalidState indicates an operation attempted on a closed order.
	ErrInvalidState = errors.New("procurement: invalid state for operation")
	// ErrValidation indicates malformed input to a procurement operation.
	ErrValidation = errors.New("procurement: validation failed")
)
