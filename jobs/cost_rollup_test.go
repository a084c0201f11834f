package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
)

type fakeCatalog struct {
	mu         sync.Mutex
	products   []catalog.Product
	recomputed []int64
}

func (c *fakeCatalog) ListProducts(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error) {
	return c.products, len(c.products), nil
}

func (c *fakeCatalog) RecomputeCostPrice(ctx context.Context, productID int64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recomputed = append(c.recomputed, productID)
	return 100, nil
}

func TestCostRollupSingleProduct(t *testing.T) {
	cat := &fakeCatalog{}
	rollup := NewCostRollup(cat, discardLogger())

	task, err := NewCostRollupTask(7)
	require.NoError(t, err)
	require.NoError(t, rollup.Handle(context.Background(), task))
	require.Equal(t, []int64{7}, cat.recomputed)
}

func TestCostRollupAllProducts(t *testing.T) {
	cat := &fakeCatalog{products: []catalog.Product{{ID: 1}, {ID: 2}, {ID: 3}}}
	rollup := NewCostRollup(cat, discardLogger())

	task, err := NewCostRollupTask(0)
	require.NoError(t, err)
	require.NoError(t, rollup.Handle(context.Background(), task))
	require.Len(t, cat.recomputed, 3)
}
