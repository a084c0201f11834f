package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides PostgreSQL backed persistence for orders and items.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const orderColumns = `id, order_number, customer_id, status, COALESCE(priority,''), order_date, required_date, promised_date, shipped_date, delivered_date, subtotal, tax_amount, shipping_cost, discount_amount, total_amount, COALESCE(shipping_address,''), COALESCE(billing_address,''), COALESCE(shipping_method,''), COALESCE(tracking_number,''), COALESCE(notes,''), created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Priority, &o.OrderDate, &o.RequiredDate, &o.PromisedDate, &o.ShippedDate, &o.DeliveredDate, &o.Subtotal, &o.TaxAmount, &o.ShippingCost, &o.DiscountAmount, &o.TotalAmount, &o.ShippingAddress, &o.BillingAddress, &o.ShippingMethod, &o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

const itemColumns = `i.id, i.order_id, i.product_id, COALESCE(p.name,''), i.quantity, i.unit_price, i.line_total, COALESCE(i.customization_details,''), i.status, i.production_start_date, i.production_end_date, i.production_days_estimated, i.created_at, i.updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CustomizationDetails, &item.Status, &item.ProductionStartDate, &item.ProductionEndDate, &item.ProductionDaysEstimated, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// CreateOrder inserts the order and its items in one transaction.
func (r *Repo) CreateOrder(ctx context.Context, o Order) (Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `INSERT INTO orders (order_number, customer_id, status, priority, order_date, required_date, promised_date, subtotal, tax_amount, shipping_cost, discount_amount, total_amount, shipping_address, billing_address, shipping_method, notes)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13,''),NULLIF($14,''),NULLIF($15,''),NULLIF($16,'')) RETURNING id`,
		o.OrderNumber, o.CustomerID, o.Status, o.Priority, o.OrderDate, o.RequiredDate, o.PromisedDate, o.Subtotal, o.TaxAmount, o.ShippingCost, o.DiscountAmount, o.TotalAmount, o.ShippingAddress, o.BillingAddress, o.ShippingMethod, o.Notes).Scan(&o.ID)
	if err != nil {
		return Order{}, fmt.Errorf("orders: create order: %w", err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		err = tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total, customization_details, status, production_days_estimated)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8) RETURNING id`,
			o.ID, o.Items[i].ProductID, o.Items[i].Quantity, o.Items[i].UnitPrice, o.Items[i].LineTotal, o.Items[i].CustomizationDetails, o.Items[i].Status, o.Items[i].ProductionDaysEstimated).Scan(&o.Items[i].ID)
		if err != nil {
			return Order{}, fmt.Errorf("orders: create order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetOrder returns an order with its items.
func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.ItemsByOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// SaveOrder persists all mutable order fields.
func (r *Repo) SaveOrder(ctx context.Context, o Order) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status=$1, priority=NULLIF($2,''), required_date=$3, promised_date=$4, shipped_date=$5, delivered_date=$6, subtotal=$7, tax_amount=$8, shipping_cost=$9, discount_amount=$10, total_amount=$11, shipping_address=NULLIF($12,''), billing_address=NULLIF($13,''), shipping_method=NULLIF($14,''), tracking_number=NULLIF($15,''), notes=NULLIF($16,''), updated_at=NOW()
		WHERE id=$17`,
		o.Status, o.Priority, o.RequiredDate, o.PromisedDate, o.ShippedDate, o.DeliveredDate, o.Subtotal, o.TaxAmount, o.ShippingCost, o.DiscountAmount, o.TotalAmount, o.ShippingAddress, o.BillingAddress, o.ShippingMethod, o.TrackingNumber, o.Notes, o.ID)
	if err != nil {
		return fmt.Errorf("orders: save order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrders returns orders matching the filter plus a total count. Items
// are not hydrated on listings.
func (r *Repo) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		argCount++
		where += ` AND priority = $` + strconv.Itoa(argCount)
		args = append(args, filter.Priority)
	}
	if filter.CustomerID > 0 {
		argCount++
		where += ` AND customer_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.CustomerID)
	}
	if filter.From != nil {
		argCount++
		where += ` AND order_date >= $` + strconv.Itoa(argCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argCount++
		where += ` AND order_date <= $` + strconv.Itoa(argCount)
		args = append(args, *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY order_date DESC, id DESC`
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
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// GetItem returns one order item.
func (r *Repo) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items i LEFT JOIN products p ON p.id = i.product_id WHERE i.id=$1`, id)
	return scanItem(row)
}

// SaveItem persists all mutable item fields, rederiving line_total.
func (r *Repo) SaveItem(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE order_items SET quantity=$1, unit_price=$2, line_total=$1*$2, customization_details=NULLIF($3,''), status=$4, production_start_date=$5, production_end_date=$6, production_days_estimated=$7, updated_at=NOW()
		WHERE id=$8`,
		item.Quantity, item.UnitPrice, item.CustomizationDetails, item.Status, item.ProductionStartDate, item.ProductionEndDate, item.ProductionDaysEstimated, item.ID)
	if err != nil {
		return fmt.Errorf("orders: save item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddItem appends a line to an existing order.
func (r *Repo) AddItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total, customization_details, status, production_days_estimated)
		VALUES ($1,$2,$3,$4,$3*$4,NULLIF($5,''),$6,$7) RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.CustomizationDetails, item.Status, item.ProductionDaysEstimated).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: add item: %w", err)
	}
	return id, nil
}

// DeleteItem removes one order line.
func (r *Repo) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("orders: delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemsByOrder returns an order's items in creation order.
func (r *Repo) ItemsByOrder(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM order_items i LEFT JOIN products p ON p.id = i.product_id WHERE i.order_id=$1 ORDER BY i.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
