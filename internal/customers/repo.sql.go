package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides PostgreSQL backed persistence for customers.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const customerColumns = `id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(company_name,''), COALESCE(tax_id,''), COALESCE(address,''), COALESCE(city,''), COALESCE(country,''), COALESCE(contact_person,''), credit_limit, COALESCE(payment_terms,''), active, COALESCE(notes,''), created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CompanyName, &c.TaxID, &c.Address, &c.City, &c.Country, &c.ContactPerson, &c.CreditLimit, &c.PaymentTerms, &c.Active, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Create inserts a customer row.
func (r *Repo) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, company_name, tax_id, address, city, country, contact_person, credit_limit, payment_terms, active, notes)
		VALUES ($1,NULLIF($2,''),NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),$10,NULLIF($11,''),$12,NULLIF($13,'')) RETURNING id`,
		c.Name, c.Email, c.Phone, c.CompanyName, c.TaxID, c.Address, c.City, c.Country, c.ContactPerson, c.CreditLimit, c.PaymentTerms, c.Active, c.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("customers: create: %w", err)
	}
	return id, nil
}

// Get returns one customer by id.
func (r *Repo) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
	return scanCustomer(row)
}

// Save persists all mutable customer fields.
func (r *Repo) Save(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET name=$1, email=NULLIF($2,''), phone=NULLIF($3,''), company_name=NULLIF($4,''), tax_id=NULLIF($5,''), address=NULLIF($6,''), city=NULLIF($7,''), country=NULLIF($8,''), contact_person=NULLIF($9,''), credit_limit=$10, payment_terms=NULLIF($11,''), notes=NULLIF($12,''), updated_at=NOW()
		WHERE id=$13`,
		c.Name, c.Email, c.Phone, c.CompanyName, c.TaxID, c.Address, c.City, c.Country, c.ContactPerson, c.CreditLimit, c.PaymentTerms, c.Notes, c.ID)
	if err != nil {
		return fmt.Errorf("customers: save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns customers matching the filter plus a total count.
func (r *Repo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR company_name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.City != "" {
		argCount++
		where += ` AND city = $` + strconv.Itoa(argCount)
		args = append(args, filter.City)
	}
	if filter.OnlyActive {
		where += ` AND active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY name`
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

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// SetActive toggles the soft-disable flag.
func (r *Repo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return fmt.Errorf("customers: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
