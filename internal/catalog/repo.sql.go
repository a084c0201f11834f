package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides PostgreSQL backed persistence for catalog data.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const productColumns = `id, sku, name, COALESCE(description,''), COALESCE(category,''), COALESCE(type,''), selling_price, cost_price, weight, COALESCE(dimensions,''), COALESCE(wood_type,''), COALESCE(finish,''), production_time_hours, min_stock_level, max_stock_level, COALESCE(image_url,''), status, COALESCE(notes,''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Type, &p.SellingPrice, &p.CostPrice, &p.Weight, &p.Dimensions, &p.WoodType, &p.Finish, &p.ProductionTimeHours, &p.MinStockLevel, &p.MaxStockLevel, &p.ImageURL, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateProduct inserts a product row.
func (r *Repo) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, description, category, type, selling_price, cost_price, weight, dimensions, wood_type, finish, production_time_hours, min_stock_level, max_stock_level, image_url, status, notes)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,$8,NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),$12,$13,$14,NULLIF($15,''),$16,NULLIF($17,'')) RETURNING id`,
		p.SKU, p.Name, p.Description, p.Category, p.Type, p.SellingPrice, p.CostPrice, p.Weight, p.Dimensions, p.WoodType, p.Finish, p.ProductionTimeHours, p.MinStockLevel, p.MaxStockLevel, p.ImageURL, p.Status, p.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create product: %w", err)
	}
	return id, nil
}

// GetProduct returns one product by id.
func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

// UpdateProduct persists all mutable product fields.
func (r *Repo) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET sku=$1, name=$2, description=NULLIF($3,''), category=NULLIF($4,''), type=NULLIF($5,''), selling_price=$6, weight=$7, dimensions=NULLIF($8,''), wood_type=NULLIF($9,''), finish=NULLIF($10,''), production_time_hours=$11, min_stock_level=$12, max_stock_level=$13, image_url=NULLIF($14,''), status=$15, notes=NULLIF($16,''), updated_at=NOW()
		WHERE id=$17`,
		p.SKU, p.Name, p.Description, p.Category, p.Type, p.SellingPrice, p.Weight, p.Dimensions, p.WoodType, p.Finish, p.ProductionTimeHours, p.MinStockLevel, p.MaxStockLevel, p.ImageURL, p.Status, p.Notes, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProductCost writes the rolled-up cost price only.
func (r *Repo) UpdateProductCost(ctx context.Context, id int64, costPrice float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET cost_price=$1, updated_at=NOW() WHERE id=$2`, costPrice, id)
	if err != nil {
		return fmt.Errorf("catalog: update product cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns products matching the filter plus a total count.
func (r *Repo) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where, args := buildCatalogFilter(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name`
	query, args = appendPage(query, args, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// DeleteProduct removes a product; BOM lines cascade through the schema.
func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const rawMaterialColumns = `id, sku, name, COALESCE(description,''), COALESCE(category,''), COALESCE(type,''), unit_of_measure, unit_cost, min_stock_level, max_stock_level, reorder_point, reorder_quantity, COALESCE(supplier_name,''), COALESCE(supplier_contact,''), lead_time_days, storage_cost_per_unit, COALESCE(storage_location,''), last_restock_date, status, COALESCE(notes,''), created_at, updated_at`

func scanRawMaterial(row pgx.Row) (RawMaterial, error) {
	var m RawMaterial
	err := row.Scan(&m.ID, &m.SKU, &m.Name, &m.Description, &m.Category, &m.Type, &m.UnitOfMeasure, &m.UnitCost, &m.MinStockLevel, &m.MaxStockLevel, &m.ReorderPoint, &m.ReorderQuantity, &m.SupplierName, &m.SupplierContact, &m.LeadTimeDays, &m.StorageCostPerUnit, &m.StorageLocation, &m.LastRestockDate, &m.Status, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawMaterial{}, ErrNotFound
	}
	if err != nil {
		return RawMaterial{}, err
	}
	return m, nil
}

// CreateRawMaterial inserts a raw material row.
func (r *Repo) CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO raw_materials (sku, name, description, category, type, unit_of_measure, unit_cost, min_stock_level, max_stock_level, reorder_point, reorder_quantity, supplier_name, supplier_contact, lead_time_days, storage_cost_per_unit, storage_location, status, notes)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,$10,$11,NULLIF($12,''),NULLIF($13,''),$14,$15,NULLIF($16,''),$17,NULLIF($18,'')) RETURNING id`,
		m.SKU, m.Name, m.Description, m.Category, m.Type, m.UnitOfMeasure, m.UnitCost, m.MinStockLevel, m.MaxStockLevel, m.ReorderPoint, m.ReorderQuantity, m.SupplierName, m.SupplierContact, m.LeadTimeDays, m.StorageCostPerUnit, m.StorageLocation, m.Status, m.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create raw material: %w", err)
	}
	return id, nil
}

// GetRawMaterial returns one raw material by id.
func (r *Repo) GetRawMaterial(ctx context.Context, id int64) (RawMaterial, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rawMaterialColumns+` FROM raw_materials WHERE id=$1`, id)
	return scanRawMaterial(row)
}

// UpdateRawMaterial persists all mutable raw material fields.
func (r *Repo) UpdateRawMaterial(ctx context.Context, m RawMaterial) error {
	tag, err := r.pool.Exec(ctx, `UPDATE raw_materials SET sku=$1, name=$2, description=NULLIF($3,''), category=NULLIF($4,''), type=NULLIF($5,''), unit_of_measure=$6, unit_cost=$7, min_stock_level=$8, max_stock_level=$9, reorder_point=$10, reorder_quantity=$11, supplier_name=NULLIF($12,''), supplier_contact=NULLIF($13,''), lead_time_days=$14, storage_cost_per_unit=$15, storage_location=NULLIF($16,''), last_restock_date=$17, status=$18, notes=NULLIF($19,''), updated_at=NOW()
		WHERE id=$20`,
		m.SKU, m.Name, m.Description, m.Category, m.Type, m.UnitOfMeasure, m.UnitCost, m.MinStockLevel, m.MaxStockLevel, m.ReorderPoint, m.ReorderQuantity, m.SupplierName, m.SupplierContact, m.LeadTimeDays, m.StorageCostPerUnit, m.StorageLocation, m.LastRestockDate, m.Status, m.Notes, m.ID)
	if err != nil {
		return fmt.Errorf("catalog: update raw material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRawMaterials returns raw materials matching the filter plus a total count.
func (r *Repo) ListRawMaterials(ctx context.Context, filter ListFilter) ([]RawMaterial, int, error) {
	where, args := buildCatalogFilter(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM raw_materials`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + rawMaterialColumns + ` FROM raw_materials` + where + ` ORDER BY name`
	query, args = appendPage(query, args, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var materials []RawMaterial
	for rows.Next() {
		m, err := scanRawMaterial(rows)
		if err != nil {
			return nil, 0, err
		}
		materials = append(materials, m)
	}
	return materials, total, rows.Err()
}

// DeleteRawMaterial removes a raw material.
func (r *Repo) DeleteRawMaterial(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM raw_materials WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete raw material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertBOMLine appends a BOM line. The schema's unique (product_id,
// raw_material_id) constraint maps to ErrDuplicateBOMLine.
func (r *Repo) InsertBOMLine(ctx context.Context, line BOMLine) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO product_raw_materials (product_id, raw_material_id, quantity_required, unit_of_measure, waste_factor, criticality, usage_notes)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,'')) RETURNING id`,
		line.ProductID, line.RawMaterialID, line.QuantityRequired, line.UnitOfMeasure, line.WasteFactor, line.Criticality, line.UsageNotes).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateBOMLine
		}
		return 0, fmt.Errorf("catalog: insert bom line: %w", err)
	}
	return id, nil
}

// UpdateBOMLine rewrites an existing line identified by its pair key.
func (r *Repo) UpdateBOMLine(ctx context.Context, line BOMLine) error {
	tag, err := r.pool.Exec(ctx, `UPDATE product_raw_materials SET quantity_required=$1, unit_of_measure=$2, waste_factor=$3, criticality=NULLIF($4,''), usage_notes=NULLIF($5,''), updated_at=NOW()
		WHERE product_id=$6 AND raw_material_id=$7`,
		line.QuantityRequired, line.UnitOfMeasure, line.WasteFactor, line.Criticality, line.UsageNotes, line.ProductID, line.RawMaterialID)
	if err != nil {
		return fmt.Errorf("catalog: update bom line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBOMLine removes one line by its pair key.
func (r *Repo) DeleteBOMLine(ctx context.Context, productID, rawMaterialID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_raw_materials WHERE product_id=$1 AND raw_material_id=$2`, productID, rawMaterialID)
	if err != nil {
		return fmt.Errorf("catalog: delete bom line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BOMLines returns the product's lines joined with material name and cost,
// most critical first.
func (r *Repo) BOMLines(ctx context.Context, productID int64) ([]BOMLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.product_id, l.raw_material_id, m.name, m.unit_cost, l.quantity_required, l.unit_of_measure, l.waste_factor, COALESCE(l.criticality,''), COALESCE(l.usage_notes,''), l.created_at, l.updated_at
		FROM product_raw_materials l
		JOIN raw_materials m ON m.id = l.raw_material_id
		WHERE l.product_id=$1
		ORDER BY CASE l.criticality WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, m.name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []BOMLine
	for rows.Next() {
		var l BOMLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.RawMaterialID, &l.MaterialName, &l.MaterialUnitCost, &l.QuantityRequired, &l.UnitOfMeasure, &l.WasteFactor, &l.Criticality, &l.UsageNotes, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func buildCatalogFilter(filter ListFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	return where, args
}

func appendPage(query string, args []interface{}, filter ListFilter) (string, []interface{}) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}
	return query, args
}
