package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-erp/atelier-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const recordColumns = `id, item_kind, item_id, current_stock, available_stock, reserved_stock, incoming_stock, average_cost, last_movement_at, COALESCE(location,''), COALESCE(notes,''), created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Item.Kind, &rec.Item.ID, &rec.CurrentStock, &rec.AvailableStock, &rec.ReservedStock, &rec.IncomingStock, &rec.AverageCost, &rec.LastMovementAt, &rec.Location, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns the ledger row for one item.
func (r *Repository) Get(ctx context.Context, item ItemRef) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM stock_records WHERE item_kind=$1 AND item_id=$2`, item.Kind, item.ID)
	return scanRecord(row)
}

// List returns ledger rows matching the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM stock_records WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Kind != nil {
		argCount++
		query += ` AND item_kind = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Kind)
	}
	if filter.Location != "" {
		argCount++
		query += ` AND location = $` + strconv.Itoa(argCount)
		args = append(args, filter.Location)
	}
	query += ` ORDER BY item_kind, item_id`
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
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

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Movements returns recent movement rows for one item, newest first.
func (r *Repository) Movements(ctx context.Context, item ItemRef, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, record_id, item_kind, item_id, movement_type, quantity, old_stock, new_stock, unit_cost, COALESCE(notes,''), COALESCE(actor,''), ref_id, occurred_at
		FROM stock_movements WHERE item_kind=$1 AND item_id=$2 ORDER BY occurred_at DESC, id DESC LIMIT $3`, item.Kind, item.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.RecordID, &mv.Item.Kind, &mv.Item.ID, &mv.Type, &mv.Quantity, &mv.OldStock, &mv.NewStock, &mv.UnitCost, &mv.Notes, &mv.Actor, &mv.RefID, &mv.OccurredAt); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// Valuation aggregates stock quantity and value per item kind.
func (r *Repository) Valuation(ctx context.Context) ([]KindValuation, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_kind, COALESCE(SUM(current_stock),0), COALESCE(SUM(current_stock*average_cost),0)
		FROM stock_records GROUP BY item_kind ORDER BY item_kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KindValuation
	for rows.Next() {
		var v KindValuation
		if err := rows.Scan(&v.Kind, &v.TotalQuantity, &v.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertMovement appends a movement row outside the mutating transaction.
func (r *Repository) InsertMovement(ctx context.Context, mv Movement) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO stock_movements (record_id, item_kind, item_id, movement_type, quantity, old_stock, new_stock, unit_cost, notes, actor, ref_id, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		mv.RecordID, mv.Item.Kind, mv.Item.ID, mv.Type, mv.Quantity, mv.OldStock, mv.NewStock, mv.UnitCost, mv.Notes, mv.Actor, mv.RefID, mv.OccurredAt)
	if err != nil {
		return fmt.Errorf("stock: insert movement: %w", err)
	}
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, item ItemRef) (Record, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM stock_records WHERE item_kind=$1 AND item_id=$2 FOR UPDATE`, item.Kind, item.ID)
	return scanRecord(row)
}

func (t *txRepo) Create(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_records (item_kind, item_id, current_stock, available_stock, reserved_stock, incoming_stock, average_cost, location, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,'')) RETURNING id`,
		rec.Item.Kind, rec.Item.ID, rec.CurrentStock, rec.AvailableStock, rec.ReservedStock, rec.IncomingStock, rec.AverageCost, rec.Location, rec.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("stock: create record: %w", err)
	}
	return id, nil
}

func (t *txRepo) Save(ctx context.Context, rec Record) error {
	tag, err := t.tx.Exec(ctx, `UPDATE stock_records SET current_stock=$1, available_stock=$2, reserved_stock=$3, incoming_stock=$4, average_cost=$5, last_movement_at=$6, location=NULLIF($7,''), notes=NULLIF($8,''), updated_at=NOW()
		WHERE item_kind=$9 AND item_id=$10`,
		rec.CurrentStock, rec.AvailableStock, rec.ReservedStock, rec.IncomingStock, rec.AverageCost, rec.LastMovementAt, rec.Location, rec.Notes, rec.Item.Kind, rec.Item.ID)
	if err != nil {
		return fmt.Errorf("stock: save record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *txRepo) AddIncoming(ctx context.Context, item ItemRef, qty float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE stock_records SET incoming_stock = incoming_stock + $1, updated_at=NOW() WHERE item_kind=$2 AND item_id=$3`, qty, item.Kind, item.ID)
	if err != nil {
		return fmt.Errorf("stock: add incoming: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
