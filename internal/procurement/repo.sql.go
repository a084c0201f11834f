package procurement

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides PostgreSQL backed persistence for purchase orders.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const poColumns = `id, po_number, supplier_name, status, order_date, expected_date, received_date, COALESCE(notes,''), created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.PONumber, &po.SupplierName, &po.Status, &po.OrderDate, &po.ExpectedDate, &po.ReceivedDate, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Create inserts the order and its lines in one transaction.
func (r *Repo) Create(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, supplier_name, status, order_date, expected_date, notes)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')) RETURNING id`,
		po.PONumber, po.SupplierName, po.Status, po.OrderDate, po.ExpectedDate, po.Notes).Scan(&po.ID)
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("procurement: create purchase order: %w", err)
	}
	for i := range po.Lines {
		po.Lines[i].PurchaseOrderID = po.ID
		err = tx.QueryRow(ctx, `INSERT INTO purchase_order_lines (purchase_order_id, raw_material_id, ordered_quantity, unit_cost)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			po.ID, po.Lines[i].RawMaterialID, po.Lines[i].OrderedQuantity, po.Lines[i].UnitCost).Scan(&po.Lines[i].ID)
		if err != nil {
			return PurchaseOrder{}, fmt.Errorf("procurement: create line: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Get returns one purchase order with its lines.
func (r *Repo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.purchase_order_id, l.raw_material_id, COALESCE(m.name,''), l.ordered_quantity, l.received_quantity, l.unit_cost
		FROM purchase_order_lines l LEFT JOIN raw_materials m ON m.id = l.raw_material_id
		WHERE l.purchase_order_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line POLine
		if err := rows.Scan(&line.ID, &line.PurchaseOrderID, &line.RawMaterialID, &line.MaterialName, &line.OrderedQuantity, &line.ReceivedQuantity, &line.UnitCost); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, line)
	}
	return po, rows.Err()
}

// Save persists the order's status and dates.
func (r *Repo) Save(ctx context.Context, po PurchaseOrder) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET status=$1, expected_date=$2, received_date=$3, notes=NULLIF($4,''), updated_at=NOW() WHERE id=$5`,
		po.Status, po.ExpectedDate, po.ReceivedDate, po.Notes, po.ID)
	if err != nil {
		return fmt.Errorf("procurement: save purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveLine persists one line's received quantity.
func (r *Repo) SaveLine(ctx context.Context, line POLine) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_order_lines SET received_quantity=$1 WHERE id=$2`, line.ReceivedQuantity, line.ID)
	if err != nil {
		return fmt.Errorf("procurement: save line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns purchase orders matching the filter, newest first. Lines are
// not hydrated on listings.
func (r *Repo) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		query += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}
	if filter.Supplier != "" {
		argCount++
		query += ` AND supplier_name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filter.Supplier+"%")
	}
	query += ` ORDER BY order_date DESC, id DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	if filter.Offset > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}
