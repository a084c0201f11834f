package production

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
	"github.com/atelier-erp/atelier-erp/internal/stock"
)

type memoryRepo struct {
	batches   map[int64]Batch
	schedules map[int64]Schedule
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: make(map[int64]Batch), schedules: make(map[int64]Schedule)}
}

func (r *memoryRepo) CreateBatch(ctx context.Context, b Batch) (int64, error) {
	r.nextID++
	b.ID = r.nextID
	r.batches[b.ID] = b
	return b.ID, nil
}

func (r *memoryRepo) GetBatch(ctx context.Context, id int64) (Batch, error) {
	if b, ok := r.batches[id]; ok {
		return b, nil
	}
	return Batch{}, ErrNotFound
}

func (r *memoryRepo) SaveBatch(ctx context.Context, b Batch) error {
	if _, ok := r.batches[b.ID]; !ok {
		return ErrNotFound
	}
	r.batches[b.ID] = b
	return nil
}

func (r *memoryRepo) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	var out []Batch
	for _, b := range r.batches {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) CreateSchedule(ctx context.Context, s Schedule) (int64, error) {
	r.nextID++
	s.ID = r.nextID
	r.schedules[s.ID] = s
	return s.ID, nil
}

func (r *memoryRepo) GetSchedule(ctx context.Context, id int64) (Schedule, error) {
	if s, ok := r.schedules[id]; ok {
		return s, nil
	}
	return Schedule{}, ErrNotFound
}

func (r *memoryRepo) SaveSchedule(ctx context.Context, s Schedule) error {
	if _, ok := r.schedules[s.ID]; !ok {
		return ErrNotFound
	}
	r.schedules[s.ID] = s
	return nil
}

func (r *memoryRepo) ListSchedules(ctx context.Context, batchID int64) ([]Schedule, error) {
	var out []Schedule
	for _, s := range r.schedules {
		if s.BatchID == batchID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	products     map[int64]catalog.Product
	requirements []catalog.MaterialRequirement
	canProduce   bool
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (c *fakeCatalog) RequiredMaterials(ctx context.Context, productID int64, qty float64) ([]catalog.MaterialRequirement, error) {
	out := make([]catalog.MaterialRequirement, len(c.requirements))
	for i, req := range c.requirements {
		out[i] = req
		out[i].RequiredQuantity = req.RequiredQuantity * qty
		out[i].WithWaste = req.WithWaste * qty
	}
	return out, nil
}

func (c *fakeCatalog) CanProduce(ctx context.Context, productID int64, qty float64) (bool, error) {
	return c.canProduce, nil
}

type ledgerCall struct {
	op   string
	item stock.ItemRef
	qty  float64
}

type fakeLedger struct {
	calls       []ledgerCall
	failReserve map[int64]bool
}

func (l *fakeLedger) Reserve(ctx context.Context, input stock.ReserveInput) (stock.Record, error) {
	if l.failReserve[input.Item.ID] {
		return stock.Record{}, stock.ErrInsufficientStock
	}
	l.calls = append(l.calls, ledgerCall{op: "reserve", item: input.Item, qty: input.Qty})
	return stock.Record{Item: input.Item}, nil
}

func (l *fakeLedger) Release(ctx context.Context, input stock.ReserveInput) (stock.Record, error) {
	l.calls = append(l.calls, ledgerCall{op: "release", item: input.Item, qty: input.Qty})
	return stock.Record{Item: input.Item}, nil
}

func (l *fakeLedger) Adjust(ctx context.Context, input stock.AdjustInput) (stock.Record, error) {
	l.calls = append(l.calls, ledgerCall{op: "adjust:" + string(input.Type), item: input.Item, qty: input.Delta})
	return stock.Record{Item: input.Item}, nil
}

func (l *fakeLedger) count(op string) int {
	n := 0
	for _, c := range l.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

type fakeOrders struct {
	quantities map[int64]float64
	completed  []int64
}

func (o *fakeOrders) ItemQuantity(ctx context.Context, itemID int64) (float64, error) {
	if qty, ok := o.quantities[itemID]; ok {
		return qty, nil
	}
	return 0, errors.New("orders: item not found")
}

func (o *fakeOrders) CompleteItemProduction(ctx context.Context, itemID int64, actor string) error {
	o.completed = append(o.completed, itemID)
	return nil
}

type fakeSeq struct {
	counts map[string]int
}

func (s *fakeSeq) Next(ctx context.Context, scope string) (int, error) {
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.counts[scope]++
	return s.counts[scope], nil
}

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memoryRepo, *fakeCatalog, *fakeLedger, *fakeOrders) {
	t.Helper()
	repo := newMemoryRepo()
	cat := &fakeCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, SKU: "CHAIR-01", Name: "Oak Chair"},
		},
		requirements: []catalog.MaterialRequirement{
			{MaterialID: 10, MaterialName: "oak", RequiredQuantity: 8, WithWaste: 8.8, Unit: "board_feet"},
			{MaterialID: 11, MaterialName: "glue", RequiredQuantity: 0.5, WithWaste: 0.5, Unit: "liters"},
		},
		canProduce: true,
	}
	ledger := &fakeLedger{failReserve: make(map[int64]bool)}
	orders := &fakeOrders{quantities: make(map[int64]float64)}
	svc := NewService(repo, cat, ledger, &fakeSeq{}, nil, nil).
		WithClock(func() time.Time { return testNow }).
		WithOrderCascade(orders)
	return svc, repo, cat, ledger, orders
}

func createBatch(t *testing.T, svc *Service, qty float64) Batch {
	t.Helper()
	b, err := svc.CreateBatch(context.Background(), CreateBatchInput{ProductID: 1, PlannedQuantity: qty, EstimatedHours: 10})
	require.NoError(t, err)
	return b
}

func TestCreateBatchNumber(t *testing.T) {
	svc, _, _, _, _ := setup(t)

	b1 := createBatch(t, svc, 20)
	b2 := createBatch(t, svc, 5)
	require.Equal(t, "BATCH-CHAIR-01-20250801-001", b1.BatchNumber)
	require.Equal(t, "BATCH-CHAIR-01-20250801-002", b2.BatchNumber)
	require.Equal(t, BatchPlanned, b1.Status)
}

func TestStartBatchReservesMaterials(t *testing.T) {
	svc, _, _, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)

	started, err := svc.StartBatch(ctx, b.ID, "foreman")
	require.NoError(t, err)
	require.Equal(t, BatchInProgress, started.Status)
	require.NotNil(t, started.ActualStartDate)
	require.Len(t, started.MaterialUsage, 2)
	require.InDelta(t, 17.6, started.MaterialUsage[0].ReservedQuantity, 1e-9)
	require.Equal(t, 2, ledger.count("reserve"))
}

func TestStartBatchInsufficientMaterials(t *testing.T) {
	svc, _, cat, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)
	cat.canProduce = false

	_, err := svc.StartBatch(ctx, b.ID, "")
	require.ErrorIs(t, err, ErrInsufficientMaterials)
	require.Zero(t, ledger.count("reserve"))

	got, err := svc.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, BatchPlanned, got.Status)
}

func TestStartBatchRollsBackPartialReservation(t *testing.T) {
	svc, _, _, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)
	// The second line fails after the first reserved.
	ledger.failReserve[11] = true

	_, err := svc.StartBatch(ctx, b.ID, "")
	require.ErrorIs(t, err, ErrInsufficientMaterials)
	require.Equal(t, 1, ledger.count("reserve"))
	require.Equal(t, 1, ledger.count("release"))
}

func TestStartBatchWrongState(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)

	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = svc.StartBatch(ctx, b.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRecordProductionAccumulates(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)

	got, err := svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 12, RejectedQty: 1})
	require.NoError(t, err)
	require.InDelta(t, 12, got.CompletedQuantity, 1e-9)
	require.InDelta(t, 13, got.ActualQuantity, 1e-9)
	require.Equal(t, BatchInProgress, got.Status)

	got, err = svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 8})
	require.NoError(t, err)
	require.InDelta(t, 20, got.CompletedQuantity, 1e-9)
	require.InDelta(t, 1, got.RejectedQuantity, 1e-9)
	require.InDelta(t, 21, got.ActualQuantity, 1e-9)
	require.Equal(t, BatchQualityCheck, got.Status)
}

func TestRecordProductionWrongState(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)

	_, err := svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 5})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteBatchEfficiencyAndCredit(t *testing.T) {
	svc, _, _, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 18})
	require.NoError(t, err)

	hours := 12.5
	got, err := svc.CompleteBatch(ctx, b.ID, CompleteInput{ActualHours: &hours})
	require.NoError(t, err)
	require.Equal(t, BatchCompleted, got.Status)
	require.NotNil(t, got.ActualEndDate)
	// (10/12.5*100 + 18/20*100) / 2
	require.InDelta(t, (80.0+90.0)/2, got.EfficiencyPercentage, 1e-9)
	require.Equal(t, 1, ledger.count("adjust:production"))
}

func TestCompleteBatchCascadesToOrderItem(t *testing.T) {
	svc, _, _, _, orders := setup(t)
	ctx := context.Background()
	itemID := int64(77)
	orders.quantities[itemID] = 15
	b, err := svc.CreateBatch(ctx, CreateBatchInput{ProductID: 1, OrderItemID: &itemID, PlannedQuantity: 20})
	require.NoError(t, err)
	_, err = svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 20})
	require.NoError(t, err)

	_, err = svc.CompleteBatch(ctx, b.ID, CompleteInput{})
	require.NoError(t, err)
	require.Equal(t, []int64{itemID}, orders.completed)
}

func TestCompleteBatchNoCascadeBelowItemQuantity(t *testing.T) {
	svc, _, _, _, orders := setup(t)
	ctx := context.Background()
	itemID := int64(77)
	orders.quantities[itemID] = 25
	b, err := svc.CreateBatch(ctx, CreateBatchInput{ProductID: 1, OrderItemID: &itemID, PlannedQuantity: 20})
	require.NoError(t, err)
	_, err = svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = svc.RecordProduction(ctx, b.ID, RecordInput{CompletedQty: 20})
	require.NoError(t, err)

	_, err = svc.CompleteBatch(ctx, b.ID, CompleteInput{})
	require.NoError(t, err)
	require.Empty(t, orders.completed)
}

func TestCompleteBatchWrongState(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)

	_, err := svc.CompleteBatch(ctx, b.ID, CompleteInput{})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPauseResume(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)

	got, err := svc.PauseBatch(ctx, b.ID, "saw blade change", "foreman")
	require.NoError(t, err)
	require.Equal(t, BatchPaused, got.Status)
	require.Contains(t, got.Notes, "saw blade change")

	_, err = svc.PauseBatch(ctx, b.ID, "", "")
	require.ErrorIs(t, err, ErrInvalidState)

	got, err = svc.ResumeBatch(ctx, b.ID, "foreman")
	require.NoError(t, err)
	require.Equal(t, BatchInProgress, got.Status)
}

func TestCancelReleasesReservations(t *testing.T) {
	svc, _, _, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)
	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)

	got, err := svc.CancelBatch(ctx, b.ID, "order withdrawn", "")
	require.NoError(t, err)
	require.Equal(t, BatchCancelled, got.Status)
	require.Equal(t, 2, ledger.count("release"))

	_, err = svc.CancelBatch(ctx, b.ID, "", "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelPlannedReleasesNothing(t *testing.T) {
	svc, _, _, ledger, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 2)

	_, err := svc.CancelBatch(ctx, b.ID, "", "")
	require.NoError(t, err)
	require.Zero(t, ledger.count("release"))
}

func TestCreateScheduleSnapshotsMaterials(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)

	sched, err := svc.CreateSchedule(ctx, b.ID, CreateScheduleInput{
		ScheduledDate:   testNow,
		PlannedQuantity: 4,
	})
	require.NoError(t, err)
	require.Equal(t, ScheduleScheduled, sched.Status)
	require.Equal(t, b.BatchNumber+" - 2025-08-01", sched.Name)
	require.Len(t, sched.RequiredMaterials, 2)
	require.InDelta(t, 35.2, sched.RequiredMaterials[0].Quantity, 1e-9)
}

func TestStartScheduleRejectsFutureDate(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)

	sched, err := svc.CreateSchedule(ctx, b.ID, CreateScheduleInput{
		ScheduledDate:   testNow.AddDate(0, 0, 3),
		PlannedQuantity: 4,
	})
	require.NoError(t, err)

	_, err = svc.StartSchedule(ctx, sched.ID, "worker")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestProgressClampAndAutoComplete(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	sched, err := svc.CreateSchedule(ctx, b.ID, CreateScheduleInput{ScheduledDate: testNow, PlannedQuantity: 4})
	require.NoError(t, err)
	_, err = svc.StartSchedule(ctx, sched.ID, "worker")
	require.NoError(t, err)

	got, err := svc.UpdateProgress(ctx, sched.ID, ProgressInput{Percentage: 60, Worker: "worker"})
	require.NoError(t, err)
	require.InDelta(t, 60, got.CompletionPercentage, 1e-9)
	require.Equal(t, ScheduleInProgress, got.Status)

	got, err = svc.UpdateProgress(ctx, sched.ID, ProgressInput{Percentage: 150})
	require.NoError(t, err)
	require.InDelta(t, 100, got.CompletionPercentage, 1e-9)
	require.Equal(t, ScheduleCompleted, got.Status)
	// start + two progress entries, append-only
	require.Len(t, got.CompletionLog, 3)
}

func TestCompleteScheduleRecordsIntoBatch(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	_, err := svc.StartBatch(ctx, b.ID, "")
	require.NoError(t, err)
	sched, err := svc.CreateSchedule(ctx, b.ID, CreateScheduleInput{ScheduledDate: testNow, PlannedQuantity: 4})
	require.NoError(t, err)
	_, err = svc.StartSchedule(ctx, sched.ID, "worker")
	require.NoError(t, err)

	qty := 4.0
	got, err := svc.CompleteSchedule(ctx, sched.ID, CompleteScheduleInput{ActualQuantity: &qty, Worker: "worker"})
	require.NoError(t, err)
	require.Equal(t, ScheduleCompleted, got.Status)

	batch, err := svc.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	require.InDelta(t, 4, batch.CompletedQuantity, 1e-9)
}

func TestDelaySchedule(t *testing.T) {
	svc, _, _, _, _ := setup(t)
	ctx := context.Background()
	b := createBatch(t, svc, 20)
	sched, err := svc.CreateSchedule(ctx, b.ID, CreateScheduleInput{ScheduledDate: testNow, PlannedQuantity: 4})
	require.NoError(t, err)

	newDate := testNow.AddDate(0, 0, 2)
	got, err := svc.DelaySchedule(ctx, sched.ID, newDate, "waiting on hardware", "planner")
	require.NoError(t, err)
	require.Equal(t, ScheduleDelayed, got.Status)
	require.Equal(t, newDate, got.ScheduledDate)
	require.NotEmpty(t, got.CompletionLog)
}

func TestEfficiencyWithoutHours(t *testing.T) {
	b := Batch{PlannedQuantity: 20, CompletedQuantity: 15}
	require.InDelta(t, 75, b.Efficiency(), 1e-9)

	empty := Batch{}
	require.Zero(t, empty.Efficiency())
}
