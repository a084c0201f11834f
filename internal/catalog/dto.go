package catalog

// ProductRequest is the payload for creating or updating a product.
type ProductRequest struct {
	SKU                 string  `json:"sku" validate:"required,max=50"`
	Name                string  `json:"name" validate:"required,max=200"`
	Description         string  `json:"description,omitempty" validate:"max=2000"`
	Category            string  `json:"category,omitempty" validate:"max=100"`
	Type                string  `json:"type,omitempty" validate:"max=100"`
	SellingPrice        float64 `json:"selling_price" validate:"gte=0"`
	Weight              float64 `json:"weight,omitempty" validate:"gte=0"`
	Dimensions          string  `json:"dimensions,omitempty" validate:"max=100"`
	WoodType            string  `json:"wood_type,omitempty" validate:"max=100"`
	Finish              string  `json:"finish,omitempty" validate:"max=100"`
	ProductionTimeHours float64 `json:"production_time_hours" validate:"gte=0"`
	MinStockLevel       float64 `json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel       float64 `json:"max_stock_level" validate:"gte=0"`
	ImageURL            string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Status              string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive discontinued"`
	Notes               string  `json:"notes,omitempty" validate:"max=2000"`
}

func (req ProductRequest) toDomain() Product {
	return Product{
		SKU:                 req.SKU,
		Name:                req.Name,
		Description:         req.Description,
		Category:            req.Category,
		Type:                req.Type,
		SellingPrice:        req.SellingPrice,
		Weight:              req.Weight,
		Dimensions:          req.Dimensions,
		WoodType:            req.WoodType,
		Finish:              req.Finish,
		ProductionTimeHours: req.ProductionTimeHours,
		MinStockLevel:       req.MinStockLevel,
		MaxStockLevel:       req.MaxStockLevel,
		ImageURL:            req.ImageURL,
		Status:              ItemStatus(req.Status),
		Notes:               req.Notes,
	}
}

// RawMaterialRequest is the payload for creating or updating a raw material.
type RawMaterialRequest struct {
	SKU                string  `json:"sku" validate:"required,max=50"`
	Name               string  `json:"name" validate:"required,max=200"`
	Description        string  `json:"description,omitempty" validate:"max=2000"`
	Category           string  `json:"category,omitempty" validate:"max=100"`
	Type               string  `json:"type,omitempty" validate:"max=100"`
	UnitOfMeasure      string  `json:"unit_of_measure" validate:"required,max=20"`
	UnitCost           float64 `json:"unit_cost" validate:"gte=0"`
	MinStockLevel      float64 `json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel      float64 `json:"max_stock_level" validate:"gte=0"`
	ReorderPoint       float64 `json:"reorder_point" validate:"gte=0"`
	ReorderQuantity    float64 `json:"reorder_quantity" validate:"gte=0"`
	SupplierName       string  `json:"supplier_name,omitempty" validate:"max=200"`
	SupplierContact    string  `json:"supplier_contact,omitempty" validate:"max=200"`
	LeadTimeDays       int     `json:"lead_time_days" validate:"gte=0"`
	StorageCostPerUnit float64 `json:"storage_cost_per_unit,omitempty" validate:"gte=0"`
	StorageLocation    string  `json:"storage_location,omitempty" validate:"max=100"`
	Status             string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive discontinued"`
	Notes              string  `json:"notes,omitempty" validate:"max=2000"`
}

func (req RawMaterialRequest) toDomain() RawMaterial {
	return RawMaterial{
		SKU:                req.SKU,
		Name:               req.Name,
		Description:        req.Description,
		Category:           req.Category,
		Type:               req.Type,
		UnitOfMeasure:      req.UnitOfMeasure,
		UnitCost:           req.UnitCost,
		MinStockLevel:      req.MinStockLevel,
		MaxStockLevel:      req.MaxStockLevel,
		ReorderPoint:       req.ReorderPoint,
		ReorderQuantity:    req.ReorderQuantity,
		SupplierName:       req.SupplierName,
		SupplierContact:    req.SupplierContact,
		LeadTimeDays:       req.LeadTimeDays,
		StorageCostPerUnit: req.StorageCostPerUnit,
		StorageLocation:    req.StorageLocation,
		Status:             ItemStatus(req.Status),
		Notes:              req.Notes,
	}
}

// BOMLineRequest is the payload for attaching or updating a BOM line.
type BOMLineRequest struct {
	RawMaterialID    int64   `json:"raw_material_id" validate:"required,gt=0"`
	QuantityRequired float64 `json:"quantity_required" validate:"required,gt=0"`
	UnitOfMeasure    string  `json:"unit_of_measure,omitempty" validate:"max=20"`
	WasteFactor      float64 `json:"waste_factor" validate:"gte=0,lte=1"`
	Criticality      string  `json:"criticality,omitempty" validate:"omitempty,oneof=low medium high critical"`
	UsageNotes       string  `json:"usage_notes,omitempty" validate:"max=1000"`
}

func (req BOMLineRequest) toInput() AttachInput {
	return AttachInput{
		RawMaterialID:    req.RawMaterialID,
		QuantityRequired: req.QuantityRequired,
		UnitOfMeasure:    req.UnitOfMeasure,
		WasteFactor:      req.WasteFactor,
		Criticality:      Criticality(req.Criticality),
		UsageNotes:       req.UsageNotes,
	}
}

// ProductResponse decorates a product with the derived margin.
type ProductResponse struct {
	Product
	ProfitMargin float64 `json:"profit_margin"`
}

// NewProductResponse builds the response shape for one product.
func NewProductResponse(p Product) ProductResponse {
	return ProductResponse{Product: p, ProfitMargin: p.ProfitMargin()}
}

// ListMeta carries pagination totals.
type ListMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
