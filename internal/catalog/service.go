package catalog

import (
	"context"
	"fmt"

	"github.com/atelier-erp/atelier-erp/internal/stock"
)

// Repository abstracts catalog persistence.
type Repository interface {
	CreateProduct(ctx context.Context, p Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	UpdateProductCost(ctx context.Context, id int64, costPrice float64) error
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error)
	GetRawMaterial(ctx context.Context, id int64) (RawMaterial, error)
	UpdateRawMaterial(ctx context.Context, m RawMaterial) error
	ListRawMaterials(ctx context.Context, filter ListFilter) ([]RawMaterial, int, error)
	DeleteRawMaterial(ctx context.Context, id int64) error

	InsertBOMLine(ctx context.Context, line BOMLine) (int64, error)
	UpdateBOMLine(ctx context.Context, line BOMLine) error
	DeleteBOMLine(ctx context.Context, productID, rawMaterialID int64) error
	BOMLines(ctx context.Context, productID int64) ([]BOMLine, error)
}

// LedgerPort creates and reads stock records for catalog items.
type LedgerPort interface {
	EnsureRecord(ctx context.Context, item stock.ItemRef, location string) (stock.Record, error)
	Get(ctx context.Context, item stock.ItemRef) (stock.Record, error)
}

// Service owns products, raw materials and bill-of-materials logic.
type Service struct {
	repo      Repository
	ledger    LedgerPort
	laborRate float64
}

// NewService builds Service. laborRate is the hourly rate applied by the
// cost roll-up; it comes from configuration, not a literal in the math.
func NewService(repo Repository, ledger LedgerPort, laborRate float64) *Service {
	return &Service{repo: repo, ledger: ledger, laborRate: laborRate}
}

// CreateProduct persists a product and opens its finished-goods ledger.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.SKU == "" || p.Name == "" {
		return Product{}, fmt.Errorf("%w: sku and name required", ErrValidation)
	}
	if p.Status == "" {
		p.Status = ItemStatusActive
	}
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	p.ID = id
	if s.ledger != nil {
		if _, err := s.ledger.EnsureRecord(ctx, stock.ItemRef{Kind: stock.ItemKindProduct, ID: id}, ""); err != nil {
			return Product{}, fmt.Errorf("catalog: open product ledger: %w", err)
		}
	}
	return p, nil
}

// CreateRawMaterial persists a raw material and opens its ledger.
func (s *Service) CreateRawMaterial(ctx context.Context, m RawMaterial) (RawMaterial, error) {
	if m.SKU == "" || m.Name == "" {
		return RawMaterial{}, fmt.Errorf("%w: sku and name required", ErrValidation)
	}
	if m.UnitOfMeasure == "" {
		return RawMaterial{}, fmt.Errorf("%w: unit of measure required", ErrValidation)
	}
	if m.Status == "" {
		m.Status = ItemStatusActive
	}
	id, err := s.repo.CreateRawMaterial(ctx, m)
	if err != nil {
		return RawMaterial{}, err
	}
	m.ID = id
	if s.ledger != nil {
		if _, err := s.ledger.EnsureRecord(ctx, stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: id}, m.StorageLocation); err != nil {
			return RawMaterial{}, fmt.Errorf("catalog: open material ledger: %w", err)
		}
	}
	return m, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct persists product field changes.
func (s *Service) UpdateProduct(ctx context.Context, p Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: product id required", ErrValidation)
	}
	return s.repo.UpdateProduct(ctx, p)
}

// ListProducts returns products matching the filter with a total count.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter)
}

// DeleteProduct removes a product and, through the schema, its BOM lines.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// GetRawMaterial returns one raw material.
func (s *Service) GetRawMaterial(ctx context.Context, id int64) (RawMaterial, error) {
	return s.repo.GetRawMaterial(ctx, id)
}

// UpdateRawMaterial persists raw material field changes and refreshes the
// product costs that depend on its unit cost.
func (s *Service) UpdateRawMaterial(ctx context.Context, m RawMaterial) error {
	if m.ID <= 0 {
		return fmt.Errorf("%w: material id required", ErrValidation)
	}
	return s.repo.UpdateRawMaterial(ctx, m)
}

// ListRawMaterials returns raw materials matching the filter.
func (s *Service) ListRawMaterials(ctx context.Context, filter ListFilter) ([]RawMaterial, int, error) {
	return s.repo.ListRawMaterials(ctx, filter)
}

// DeleteRawMaterial removes a raw material.
func (s *Service) DeleteRawMaterial(ctx context.Context, id int64) error {
	return s.repo.DeleteRawMaterial(ctx, id)
}

// AttachInput describes a BOM line attach or update.
type AttachInput struct {
	RawMaterialID    int64
	QuantityRequired float64
	UnitOfMeasure    string
	WasteFactor      float64
	Criticality      Criticality
	UsageNotes       string
}

func (in AttachInput) validate() error {
	if in.RawMaterialID <= 0 {
		return fmt.Errorf("%w: raw material id required", ErrValidation)
	}
	if in.QuantityRequired <= 0 {
		return fmt.Errorf("%w: quantity required must be positive", ErrValidation)
	}
	if in.WasteFactor < 0 || in.WasteFactor > 1 {
		return fmt.Errorf("%w: waste factor must be within [0,1]", ErrValidation)
	}
	if !in.Criticality.Valid() {
		return fmt.Errorf("%w: unknown criticality %q", ErrValidation, in.Criticality)
	}
	return nil
}

// AttachMaterial adds a raw material to the product's BOM and recomputes the
// product cost price. The recompute is an explicit sequenced call, not a
// persistence hook.
func (s *Service) AttachMaterial(ctx context.Context, productID int64, in AttachInput) (BOMLine, error) {
	if err := in.validate(); err != nil {
		return BOMLine{}, err
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return BOMLine{}, err
	}
	material, err := s.repo.GetRawMaterial(ctx, in.RawMaterialID)
	if err != nil {
		return BOMLine{}, err
	}
	unit := in.UnitOfMeasure
	if unit == "" {
		unit = material.UnitOfMeasure
	}
	line := BOMLine{
		ProductID:        productID,
		RawMaterialID:    in.RawMaterialID,
		QuantityRequired: in.QuantityRequired,
		UnitOfMeasure:    unit,
		WasteFactor:      in.WasteFactor,
		Criticality:      in.Criticality,
		UsageNotes:       in.UsageNotes,
	}
	id, err := s.repo.InsertBOMLine(ctx, line)
	if err != nil {
		return BOMLine{}, err
	}
	line.ID = id
	line.MaterialName = material.Name
	line.MaterialUnitCost = material.UnitCost
	if _, err := s.RecomputeCostPrice(ctx, productID); err != nil {
		return BOMLine{}, err
	}
	return line, nil
}

// UpdateMaterialLine updates an existing BOM line and recomputes the product cost.
func (s *Service) UpdateMaterialLine(ctx context.Context, productID int64, in AttachInput) (BOMLine, error) {
	if err := in.validate(); err != nil {
		return BOMLine{}, err
	}
	line := BOMLine{
		ProductID:        productID,
		RawMaterialID:    in.RawMaterialID,
		QuantityRequired: in.QuantityRequired,
		UnitOfMeasure:    in.UnitOfMeasure,
		WasteFactor:      in.WasteFactor,
		Criticality:      in.Criticality,
		UsageNotes:       in.UsageNotes,
	}
	if err := s.repo.UpdateBOMLine(ctx, line); err != nil {
		return BOMLine{}, err
	}
	if _, err := s.RecomputeCostPrice(ctx, productID); err != nil {
		return BOMLine{}, err
	}
	return line, nil
}

// DetachMaterial removes a BOM line and recomputes the product cost.
func (s *Service) DetachMaterial(ctx context.Context, productID, rawMaterialID int64) error {
	if err := s.repo.DeleteBOMLine(ctx, productID, rawMaterialID); err != nil {
		return err
	}
	_, err := s.RecomputeCostPrice(ctx, productID)
	return err
}

// BOMLines returns the product's BOM ordered by criticality, most critical first.
func (s *Service) BOMLines(ctx context.Context, productID int64) ([]BOMLine, error) {
	return s.repo.BOMLines(ctx, productID)
}

// RequiredMaterials computes the material roll-up for producing qty units.
// Pure function of the BOM lines; no stock check.
func (s *Service) RequiredMaterials(ctx context.Context, productID int64, qty float64) ([]MaterialRequirement, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	lines, err := s.repo.BOMLines(ctx, productID)
	if err != nil {
		return nil, err
	}
	requirements := make([]MaterialRequirement, 0, len(lines))
	for _, line := range lines {
		required := line.QuantityRequired * qty
		requirements = append(requirements, MaterialRequirement{
			MaterialID:       line.RawMaterialID,
			MaterialName:     line.MaterialName,
			RequiredQuantity: required,
			WithWaste:        required * (1 + line.WasteFactor),
			Unit:             line.UnitOfMeasure,
			Criticality:      line.Criticality,
		})
	}
	return requirements, nil
}

// CanProduce reports whether current raw-material stock covers every BOM
// line's waste-adjusted requirement for qty units.
func (s *Service) CanProduce(ctx context.Context, productID int64, qty float64) (bool, error) {
	requirements, err := s.RequiredMaterials(ctx, productID, qty)
	if err != nil {
		return false, err
	}
	for _, req := range requirements {
		rec, err := s.ledger.Get(ctx, stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: req.MaterialID})
		if err != nil {
			return false, nil
		}
		if rec.CurrentStock < req.WithWaste {
			return false, nil
		}
	}
	return true, nil
}

// EstimatedProductionCost returns material cost plus labor for qty units.
func (s *Service) EstimatedProductionCost(ctx context.Context, productID int64, qty float64) (float64, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	lines, err := s.repo.BOMLines(ctx, productID)
	if err != nil {
		return 0, err
	}
	var materialCost float64
	for _, line := range lines {
		materialCost += line.QuantityWithWaste() * qty * line.MaterialUnitCost
	}
	laborCost := product.ProductionTimeHours * s.laborRate * qty
	return materialCost + laborCost, nil
}

// RecomputeCostPrice refreshes the product's single-unit cost price from its
// current BOM lines plus flat labor, and persists it.
func (s *Service) RecomputeCostPrice(ctx context.Context, productID int64) (float64, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	lines, err := s.repo.BOMLines(ctx, productID)
	if err != nil {
		return 0, err
	}
	var materialCost float64
	for _, line := range lines {
		materialCost += line.QuantityWithWaste() * line.MaterialUnitCost
	}
	cost := materialCost + product.ProductionTimeHours*s.laborRate
	if err := s.repo.UpdateProductCost(ctx, productID, cost); err != nil {
		return 0, err
	}
	return cost, nil
}

// Thresholds implements stock.ThresholdResolver against catalog data, so the
// ledger can resolve min-stock and reorder levels without owning them.
func (s *Service) Thresholds(ctx context.Context, item stock.ItemRef) (stock.Thresholds, error) {
	switch item.Kind {
	case stock.ItemKindProduct:
		p, err := s.repo.GetProduct(ctx, item.ID)
		if err != nil {
			return stock.Thresholds{}, err
		}
		return stock.Thresholds{MinStockLevel: p.MinStockLevel}, nil
	case stock.ItemKindRawMaterial:
		m, err := s.repo.GetRawMaterial(ctx, item.ID)
		if err != nil {
			return stock.Thresholds{}, err
		}
		return stock.Thresholds{MinStockLevel: m.MinStockLevel, ReorderPoint: m.ReorderPoint}, nil
	}
	return stock.Thresholds{}, fmt.Errorf("%w: unknown item kind", ErrValidation)
}
