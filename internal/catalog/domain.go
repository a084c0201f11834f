package catalog

import (
	"errors"
	"time"
)

// ItemStatus enumerates catalog item lifecycle states.
type ItemStatus string

const (
	ItemStatusActive       ItemStatus = "active"
	ItemStatusInactive     ItemStatus = "inactive"
	ItemStatusDiscontinued ItemStatus = "discontinued"
)

// Criticality tags a BOM line's importance. It affects display ordering only.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Rank returns the sort priority for a criticality tag.
func (c Criticality) Rank() int {
	switch c {
	case CriticalityCritical:
		return 4
	case CriticalityHigh:
		return 3
	case CriticalityMedium:
		return 2
	case CriticalityLow:
		return 1
	}
	return 0
}

// Valid reports whether the tag is known or unset.
func (c Criticality) Valid() bool {
	return c == "" || c.Rank() > 0
}

// Product is a manufactured catalog item.
type Product struct {
	ID                  int64      `json:"id"`
	SKU                 string     `json:"sku"`
	Name                string     `json:"name"`
	Description         string     `json:"description,omitempty"`
	Category            string     `json:"category,omitempty"`
	Type                string     `json:"type,omitempty"`
	SellingPrice        float64    `json:"selling_price"`
	CostPrice           float64    `json:"cost_price"`
	Weight              float64    `json:"weight,omitempty"`
	Dimensions          string     `json:"dimensions,omitempty"`
	WoodType            string     `json:"wood_type,omitempty"`
	Finish              string     `json:"finish,omitempty"`
	ProductionTimeHours float64    `json:"production_time_hours"`
	MinStockLevel       float64    `json:"min_stock_level"`
	MaxStockLevel       float64    `json:"max_stock_level"`
	ImageURL            string     `json:"image_url,omitempty"`
	Status              ItemStatus `json:"status"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ProfitMargin reports the selling margin as a percentage of selling price.
func (p *Product) ProfitMargin() float64 {
	if p.SellingPrice == 0 {
		return 0
	}
	return (p.SellingPrice - p.CostPrice) / p.SellingPrice * 100
}

// RawMaterial is a purchased input to production.
type RawMaterial struct {
	ID                 int64      `json:"id"`
	SKU                string     `json:"sku"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	Category           string     `json:"category,omitempty"`
	Type               string     `json:"type,omitempty"`
	UnitOfMeasure      string     `json:"unit_of_measure"`
	UnitCost           float64    `json:"unit_cost"`
	MinStockLevel      float64    `json:"min_stock_level"`
	MaxStockLevel      float64    `json:"max_stock_level"`
	ReorderPoint       float64    `json:"reorder_point"`
	ReorderQuantity    float64    `json:"reorder_quantity"`
	SupplierName       string     `json:"supplier_name,omitempty"`
	SupplierContact    string     `json:"supplier_contact,omitempty"`
	LeadTimeDays       int        `json:"lead_time_days"`
	StorageCostPerUnit float64    `json:"storage_cost_per_unit,omitempty"`
	StorageLocation    string     `json:"storage_location,omitempty"`
	LastRestockDate    *time.Time `json:"last_restock_date,omitempty"`
	Status             ItemStatus `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BOMLine maps a product to one required raw material. Unique per
// (product, raw material) pair.
type BOMLine struct {
	ID               int64       `json:"id"`
	ProductID        int64       `json:"product_id"`
	RawMaterialID    int64       `json:"raw_material_id"`
	MaterialName     string      `json:"material_name,omitempty"`
	MaterialUnitCost float64     `json:"material_unit_cost,omitempty"`
	QuantityRequired float64     `json:"quantity_required"`
	UnitOfMeasure    string      `json:"unit_of_measure"`
	WasteFactor      float64     `json:"waste_factor"`
	Criticality      Criticality `json:"criticality,omitempty"`
	UsageNotes       string      `json:"usage_notes,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// QuantityWithWaste returns the per-unit requirement including the waste allowance.
func (l BOMLine) QuantityWithWaste() float64 {
	return l.QuantityRequired * (1 + l.WasteFactor)
}

// MaterialRequirement is one line of a material roll-up for a given quantity.
type MaterialRequirement struct {
	MaterialID       int64       `json:"material_id"`
	MaterialName     string      `json:"material_name"`
	RequiredQuantity float64     `json:"required_quantity"`
	WithWaste        float64     `json:"with_waste"`
	Unit             string      `json:"unit"`
	Criticality      Criticality `json:"criticality,omitempty"`
}

// ListFilter filters catalog listings.
type ListFilter struct {
	Status   ItemStatus
	Category string
	Search   string
	Limit    int
	Offset   int
}

var (
	// ErrNotFound indicates a missing product or raw material.
	ErrNotFound = errors.New("catalog: not found")
	// ErrValidation indicates malformed input to a catalog operation.
	ErrValidation = errors.New("catalog: validation failed")
	// ErrDuplicateBOMLine indicates the material is already attached to the product.
	ErrDuplicateBOMLine = errors.New("catalog: material already attached to product")
)
