package stock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ItemKind discriminates the owner of a stock record.
type ItemKind string

const (
	// ItemKindProduct marks finished-goods records.
	ItemKindProduct ItemKind = "product"
	// ItemKindRawMaterial marks raw-material records.
	ItemKindRawMaterial ItemKind = "raw_material"
)

// Valid reports whether the kind is one of the two known variants.
func (k ItemKind) Valid() bool {
	return k == ItemKindProduct || k == ItemKindRawMaterial
}

// ItemRef identifies a stockable item as a tagged (kind, id) pair.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// Valid reports whether the reference points at a concrete item.
func (r ItemRef) Valid() bool {
	return r.Kind.Valid() && r.ID > 0
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementManual represents a direct manual adjustment.
	MovementManual MovementType = "manual"
	// MovementReceipt represents inbound stock from a supplier.
	MovementReceipt MovementType = "receipt"
	// MovementReservation earmarks stock for a pending use.
	MovementReservation MovementType = "reservation"
	// MovementRelease returns a reservation to availability.
	MovementRelease MovementType = "release_reservation"
	// MovementFulfillment consumes reserved stock.
	MovementFulfillment MovementType = "fulfillment"
	// MovementProduction credits finished goods from a completed batch.
	MovementProduction MovementType = "production"
)

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case MovementManual, MovementReceipt, MovementReservation, MovementRelease, MovementFulfillment, MovementProduction:
		return true
	}
	return false
}

// Record is the quantity/cost ledger for one stockable item.
type Record struct {
	ID             int64      `json:"id"`
	Item           ItemRef    `json:"item"`
	CurrentStock   float64    `json:"current_stock"`
	AvailableStock float64    `json:"available_stock"`
	ReservedStock  float64    `json:"reserved_stock"`
	IncomingStock  float64    `json:"incoming_stock"`
	AverageCost    float64    `json:"average_cost"`
	LastMovementAt *time.Time `json:"last_movement_at,omitempty"`
	Location       string     `json:"location,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// normalize re-establishes the ledger invariant after any mutation.
func (r *Record) normalize() {
	r.AvailableStock = math.Max(0, r.CurrentStock-r.ReservedStock)
}

// StockValue returns current stock valued at the running average cost.
func (r *Record) StockValue() float64 {
	return r.CurrentStock * r.AverageCost
}

// ReservationPercentage reports how much of current stock is reserved.
func (r *Record) ReservationPercentage() float64 {
	if r.CurrentStock <= 0 {
		return 0
	}
	return r.ReservedStock / r.CurrentStock * 100
}

// Movement is an immutable audit row describing one ledger mutation.
type Movement struct {
	ID         int64        `json:"id"`
	RecordID   int64        `json:"record_id"`
	Item       ItemRef      `json:"item"`
	Type       MovementType `json:"type"`
	Quantity   float64      `json:"quantity"`
	OldStock   float64      `json:"old_stock"`
	NewStock   float64      `json:"new_stock"`
	UnitCost   *float64     `json:"unit_cost,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	Actor      string       `json:"actor,omitempty"`
	RefID      string       `json:"ref_id,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Thresholds carries the owning item's stock alarm levels. Zero values mean
// the item has none configured and the package defaults apply.
type Thresholds struct {
	MinStockLevel float64
	ReorderPoint  float64
}

const (
	// DefaultMinStockLevel applies when the item has no configured minimum.
	DefaultMinStockLevel = 10
	// DefaultReorderPoint applies when the item has no configured reorder point.
	DefaultReorderPoint = 5
)

// KindValuation aggregates quantity and value over one item kind.
type KindValuation struct {
	Kind          ItemKind `json:"kind"`
	TotalQuantity float64  `json:"total_quantity"`
	TotalValue    float64  `json:"total_value"`
}

// ListFilter filters ledger listings.
type ListFilter struct {
	Kind     *ItemKind
	Location string
	Limit    int
	Offset   int
}

var (
	// ErrInsufficientStock indicates a reservation exceeding available stock.
	ErrInsufficientStock = errors.New("stock: insufficient available stock")
	// ErrInvalidRelease indicates a release or fulfilment exceeding the reserved quantity.
	ErrInvalidRelease = errors.New("stock: quantity exceeds reserved stock")
	// ErrInvalidQuantity indicates a malformed quantity.
	ErrInvalidQuantity = errors.New("stock: invalid quantity")
	// ErrRecordNotFound indicates a missing ledger row.
	ErrRecordNotFound = errors.New("stock: record not found")
)
