package shared

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counter hands out gapless per-scope sequence numbers from the doc_counters
// table. The upsert takes a row lock, so concurrent callers in the same scope
// serialize instead of racing a scan-max read.
type Counter struct {
	pool *pgxpool.Pool
}

// NewCounter constructs Counter.
func NewCounter(pool *pgxpool.Pool) *Counter {
	return &Counter{pool: pool}
}

// Next returns the next sequence number for scope, starting at 1.
func (c *Counter) Next(ctx context.Context, scope string) (int, error) {
	var seq int
	err := c.pool.QueryRow(ctx, `INSERT INTO doc_counters (scope, value) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = doc_counters.value + 1
		RETURNING value`, scope).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("shared: next sequence for %s: %w", scope, err)
	}
	return seq, nil
}
