package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/stock"
)

type memoryRepo struct {
	orders map[int64]PurchaseOrder
	lines  map[int64]POLine
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]PurchaseOrder), lines: make(map[int64]POLine)}
}

func (r *memoryRepo) Create(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	r.nextID++
	po.ID = r.nextID
	for i := range po.Lines {
		r.nextID++
		po.Lines[i].ID = r.nextID
		po.Lines[i].PurchaseOrderID = po.ID
		r.lines[po.Lines[i].ID] = po.Lines[i]
	}
	stored := po
	stored.Lines = nil
	r.orders[po.ID] = stored
	return po, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	for _, line := range r.lines {
		if line.PurchaseOrderID == id {
			po.Lines = append(po.Lines, line)
		}
	}
	return po, nil
}

func (r *memoryRepo) Save(ctx context.Context, po PurchaseOrder) error {
	if _, ok := r.orders[po.ID]; !ok {
		return ErrNotFound
	}
	stored := po
	stored.Lines = nil
	r.orders[po.ID] = stored
	return nil
}

func (r *memoryRepo) SaveLine(ctx context.Context, line POLine) error {
	if _, ok := r.lines[line.ID]; !ok {
		return ErrNotFound
	}
	r.lines[line.ID] = line
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range r.orders {
		out = append(out, po)
	}
	return out, nil
}

type ledgerCall struct {
	op   string
	item stock.ItemRef
	qty  float64
	cost *float64
}

type fakeLedger struct {
	calls []ledgerCall
}

func (l *fakeLedger) ExpectIncoming(ctx context.Context, item stock.ItemRef, qty float64) error {
	l.calls = append(l.calls, ledgerCall{op: "expect", item: item, qty: qty})
	return nil
}

func (l *fakeLedger) Receive(ctx context.Context, input stock.ReceiveInput) (stock.Record, error) {
	l.calls = append(l.calls, ledgerCall{op: "receive", item: input.Item, qty: input.Qty, cost: input.UnitCost})
	return stock.Record{Item: input.Item}, nil
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

func setup(t *testing.T) (*Service, *fakeLedger) {
	t.Helper()
	ledger := &fakeLedger{}
	svc := NewService(newMemoryRepo(), ledger, &fakeSeq{}, nil).
		WithClock(func() time.Time { return testNow })
	return svc, ledger
}

func createPO(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	po, err := svc.Create(context.Background(), CreateInput{
		SupplierName: "Harborview Timber",
		Lines: []LineInput{
			{RawMaterialID: 10, Quantity: 100, UnitCost: 12},
			{RawMaterialID: 11, Quantity: 20, UnitCost: 3},
		},
	})
	require.NoError(t, err)
	return po
}

func TestCreateAnnouncesIncoming(t *testing.T) {
	svc, ledger := setup(t)

	po := createPO(t, svc)
	require.Equal(t, "PO-2025080001", po.PONumber)
	require.Equal(t, POOpen, po.Status)
	require.Len(t, ledger.calls, 2)
	require.Equal(t, "expect", ledger.calls[0].op)
	require.InDelta(t, 100, ledger.calls[0].qty, 1e-9)
}

func TestReceiveLineBooksStockAtLineCost(t *testing.T) {
	svc, ledger := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)

	got, err := svc.ReceiveLine(ctx, po.ID, ReceiveInput{LineID: po.Lines[0].ID, Quantity: 40})
	require.NoError(t, err)
	require.Equal(t, POPartial, got.Status)

	last := ledger.calls[len(ledger.calls)-1]
	require.Equal(t, "receive", last.op)
	require.InDelta(t, 40, last.qty, 1e-9)
	require.NotNil(t, last.cost)
	require.InDelta(t, 12, *last.cost, 1e-9)
}

func TestReceiveAllLinesClosesOrder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)

	_, err := svc.ReceiveLine(ctx, po.ID, ReceiveInput{LineID: po.Lines[0].ID, Quantity: 100})
	require.NoError(t, err)
	got, err := svc.ReceiveLine(ctx, po.ID, ReceiveInput{LineID: po.Lines[1].ID, Quantity: 20})
	require.NoError(t, err)
	require.Equal(t, POReceived, got.Status)
	require.NotNil(t, got.ReceivedDate)

	_, err = svc.ReceiveLine(ctx, po.ID, ReceiveInput{LineID: po.Lines[0].ID, Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestReceiveBeyondOutstanding(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)

	_, err := svc.ReceiveLine(ctx, po.ID, ReceiveInput{LineID: po.Lines[1].ID, Quantity: 25})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCancel(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)

	got, err := svc.Cancel(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, POCancelled, got.Status)

	_, err = svc.Cancel(ctx, po.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}
