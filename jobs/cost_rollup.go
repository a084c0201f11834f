package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
)

// CostRollupPort is the slice of the catalog service the rollup needs.
type CostRollupPort interface {
	ListProducts(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error)
	RecomputeCostPrice(ctx context.Context, productID int64) (float64, error)
}

// CostRollup refreshes product cost prices from current material costs and
// labor time. Material costs drift as receipts reprice the weighted average,
// so the rollup keeps catalog margins honest between explicit recomputes.
type CostRollup struct {
	catalog CostRollupPort
	logger  *slog.Logger
}

// NewCostRollup constructs the rollup handler.
func NewCostRollup(cat CostRollupPort, logger *slog.Logger) *CostRollup {
	return &CostRollup{catalog: cat, logger: logger}
}

// Handle processes a TaskCostRollup task.
func (c *CostRollup) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CostRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	if payload.ProductID > 0 {
		cost, err := c.catalog.RecomputeCostPrice(ctx, payload.ProductID)
		if err != nil {
			return err
		}
		c.logger.Info("cost price recomputed", slog.Int64("product_id", payload.ProductID), slog.Float64("cost_price", cost))
		return nil
	}

	products, _, err := c.catalog.ListProducts(ctx, catalog.ListFilter{Limit: 1000})
	if err != nil {
		return err
	}
	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range products {
		g.Go(func() error {
			if _, err := c.catalog.RecomputeCostPrice(gctx, p.ID); err != nil {
				c.logger.Warn("cost rollup skipped product", slog.Int64("product_id", p.ID), slog.Any("error", err))
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Info("cost rollup finished", slog.Int64("updated", updated.Load()), slog.Int("total", len(products)))
	return nil
}
