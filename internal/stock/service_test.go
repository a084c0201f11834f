package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	records   map[string]Record
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]Record)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, item ItemRef) (Record, error) {
	if rec, ok := r.records[item.String()]; ok {
		return rec, nil
	}
	return Record{}, ErrRecordNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if filter.Kind != nil && rec.Item.Kind != *filter.Kind {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *memoryRepo) Movements(ctx context.Context, item ItemRef, limit int) ([]Movement, error) {
	var out []Movement
	for _, mv := range r.movements {
		if mv.Item == item {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (r *memoryRepo) InsertMovement(ctx context.Context, mv Movement) error {
	r.movements = append(r.movements, mv)
	return nil
}

func (r *memoryRepo) Valuation(ctx context.Context) ([]KindValuation, error) {
	byKind := make(map[ItemKind]*KindValuation)
	for _, rec := range r.records {
		v, ok := byKind[rec.Item.Kind]
		if !ok {
			v = &KindValuation{Kind: rec.Item.Kind}
			byKind[rec.Item.Kind] = v
		}
		v.TotalQuantity += rec.CurrentStock
		v.TotalValue += rec.CurrentStock * rec.AverageCost
	}
	var out []KindValuation
	for _, v := range byKind {
		out = append(out, *v)
	}
	return out, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, item ItemRef) (Record, error) {
	return tx.repo.Get(ctx, item)
}

func (tx *memoryTx) Create(ctx context.Context, rec Record) (int64, error) {
	tx.repo.nextID++
	rec.ID = tx.repo.nextID
	tx.repo.records[rec.Item.String()] = rec
	return rec.ID, nil
}

func (tx *memoryTx) Save(ctx context.Context, rec Record) error {
	if _, ok := tx.repo.records[rec.Item.String()]; !ok {
		return ErrRecordNotFound
	}
	tx.repo.records[rec.Item.String()] = rec
	return nil
}

func (tx *memoryTx) AddIncoming(ctx context.Context, item ItemRef, qty float64) error {
	rec, ok := tx.repo.records[item.String()]
	if !ok {
		return ErrRecordNotFound
	}
	rec.IncomingStock += qty
	tx.repo.records[item.String()] = rec
	return nil
}

type fixedThresholds struct {
	t Thresholds
}

func (f fixedThresholds) Thresholds(ctx context.Context, item ItemRef) (Thresholds, error) {
	return f.t, nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, nil, nil)
	return svc.WithClock(func() time.Time { return time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC) })
}

func seed(t *testing.T, svc *Service, item ItemRef, current float64) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.EnsureRecord(ctx, item, "main")
	require.NoError(t, err)
	if current != 0 {
		cost := 10.0
		_, err = svc.Adjust(ctx, AdjustInput{Item: item, Delta: current, Type: MovementReceipt, UnitCost: &cost})
		require.NoError(t, err)
	}
}

func material(id int64) ItemRef {
	return ItemRef{Kind: ItemKindRawMaterial, ID: id}
}

func TestReserveRelease(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(1)
	seed(t, svc, item, 100)

	rec, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 40})
	require.NoError(t, err)
	require.InDelta(t, 100, rec.CurrentStock, 1e-9)
	require.InDelta(t, 40, rec.ReservedStock, 1e-9)
	require.InDelta(t, 60, rec.AvailableStock, 1e-9)

	rec, err = svc.Release(ctx, ReserveInput{Item: item, Qty: 15})
	require.NoError(t, err)
	require.InDelta(t, 25, rec.ReservedStock, 1e-9)
	require.InDelta(t, 75, rec.AvailableStock, 1e-9)

	// Round trip restores the pre-reservation state.
	rec, err = svc.Release(ctx, ReserveInput{Item: item, Qty: 25})
	require.NoError(t, err)
	require.InDelta(t, 0, rec.ReservedStock, 1e-9)
	require.InDelta(t, 100, rec.AvailableStock, 1e-9)
}

func TestReserveInsufficient(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(1)
	seed(t, svc, item, 10)

	_, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 11})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Never partially reserves.
	rec, err := svc.Get(ctx, item)
	require.NoError(t, err)
	require.InDelta(t, 0, rec.ReservedStock, 1e-9)
	require.InDelta(t, 10, rec.AvailableStock, 1e-9)
}

func TestFulfillLeavesAvailabilityUnchanged(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(2)
	seed(t, svc, item, 50)

	rec, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 20})
	require.NoError(t, err)
	availableAfterReserve := rec.AvailableStock

	rec, err = svc.Fulfill(ctx, ReserveInput{Item: item, Qty: 20})
	require.NoError(t, err)
	require.InDelta(t, 30, rec.CurrentStock, 1e-9)
	require.InDelta(t, 0, rec.ReservedStock, 1e-9)
	require.InDelta(t, availableAfterReserve, rec.AvailableStock, 1e-9)
}

func TestReleaseBeyondReserved(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(3)
	seed(t, svc, item, 50)

	_, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 5})
	require.NoError(t, err)

	_, err = svc.Release(ctx, ReserveInput{Item: item, Qty: 6})
	require.ErrorIs(t, err, ErrInvalidRelease)

	_, err = svc.Fulfill(ctx, ReserveInput{Item: item, Qty: 6})
	require.ErrorIs(t, err, ErrInvalidRelease)
}

func TestAdjustWeightedAverageCost(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(4)

	_, err := svc.EnsureRecord(ctx, item, "main")
	require.NoError(t, err)

	cost := 100.0
	rec, err := svc.Adjust(ctx, AdjustInput{Item: item, Delta: 10, Type: MovementReceipt, UnitCost: &cost})
	require.NoError(t, err)
	require.InDelta(t, 100, rec.AverageCost, 1e-9)

	cost = 120.0
	rec, err = svc.Adjust(ctx, AdjustInput{Item: item, Delta: 5, Type: MovementReceipt, UnitCost: &cost})
	require.NoError(t, err)
	require.InDelta(t, (10*100.0+5*120.0)/15.0, rec.AverageCost, 1e-9)

	// Negative deltas pass through with no floor check.
	rec, err = svc.Adjust(ctx, AdjustInput{Item: item, Delta: -20, Type: MovementManual})
	require.NoError(t, err)
	require.InDelta(t, -5, rec.CurrentStock, 1e-9)
	require.InDelta(t, 0, rec.AvailableStock, 1e-9)
}

func TestAvailableInvariantAfterEveryMutation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(5)
	seed(t, svc, item, 30)

	check := func() {
		rec, err := svc.Get(ctx, item)
		require.NoError(t, err)
		want := rec.CurrentStock - rec.ReservedStock
		if want < 0 {
			want = 0
		}
		require.InDelta(t, want, rec.AvailableStock, 1e-9)
	}

	_, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 12})
	require.NoError(t, err)
	check()
	_, err = svc.Adjust(ctx, AdjustInput{Item: item, Delta: -25, Type: MovementManual})
	require.NoError(t, err)
	check()
	_, err = svc.Release(ctx, ReserveInput{Item: item, Qty: 12})
	require.NoError(t, err)
	check()
}

func TestReceiveClearsIncoming(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(6)
	seed(t, svc, item, 0)

	require.NoError(t, svc.ExpectIncoming(ctx, item, 25))

	cost := 8.5
	rec, err := svc.Receive(ctx, ReceiveInput{Item: item, Qty: 25, UnitCost: &cost})
	require.NoError(t, err)
	require.InDelta(t, 25, rec.CurrentStock, 1e-9)
	require.InDelta(t, 0, rec.IncomingStock, 1e-9)
	require.InDelta(t, 8.5, rec.AverageCost, 1e-9)

	// Unannounced receipts leave incoming untouched.
	rec, err = svc.Receive(ctx, ReceiveInput{Item: item, Qty: 10, UnitCost: &cost})
	require.NoError(t, err)
	require.InDelta(t, 0, rec.IncomingStock, 1e-9)
}

func TestMovementLogged(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(7)
	seed(t, svc, item, 10)

	_, err := svc.Reserve(ctx, ReserveInput{Item: item, Qty: 3, Actor: "planner"})
	require.NoError(t, err)

	movements, err := svc.Movements(ctx, item, 10)
	require.NoError(t, err)
	require.NotEmpty(t, movements)
	last := movements[len(movements)-1]
	require.Equal(t, MovementReservation, last.Type)
	require.InDelta(t, -3, last.Quantity, 1e-9)
	require.Equal(t, "planner", last.Actor)
	require.NotEmpty(t, last.RefID)
}

func TestThresholdPredicates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, fixedThresholds{Thresholds{MinStockLevel: 20, ReorderPoint: 8}}, nil)
	ctx := context.Background()
	item := material(8)
	seed(t, svc, item, 15)

	low, err := svc.IsLowStock(ctx, item)
	require.NoError(t, err)
	require.True(t, low)

	reorder, err := svc.NeedsReorder(ctx, item)
	require.NoError(t, err)
	require.False(t, reorder)
}

func TestLowStockUsesResolvedThresholds(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, fixedThresholds{Thresholds{MinStockLevel: 20, ReorderPoint: 8}}, nil)
	ctx := context.Background()
	seed(t, svc, material(1), 15)
	seed(t, svc, material(2), 25)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, material(1), low[0].Item)
}

func TestValuation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	seed(t, svc, material(1), 10)
	seed(t, svc, material(2), 5)

	totals, err := svc.Valuation(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.InDelta(t, 15, totals[0].TotalQuantity, 1e-9)
	require.InDelta(t, 150, totals[0].TotalValue, 1e-9)
}

func TestThresholdDefaults(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := material(9)
	seed(t, svc, item, 6)

	low, err := svc.IsLowStock(ctx, item)
	require.NoError(t, err)
	require.True(t, low)

	reorder, err := svc.NeedsReorder(ctx, item)
	require.NoError(t, err)
	require.False(t, reorder)
}
