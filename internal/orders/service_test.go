package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
)

type memoryRepo struct {
	orders map[int64]Order
	items  map[int64]Item
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]Order), items: make(map[int64]Item)}
}

func (r *memoryRepo) CreateOrder(ctx context.Context, o Order) (Order, error) {
	r.nextID++
	o.ID = r.nextID
	for i := range o.Items {
		r.nextID++
		o.Items[i].ID = r.nextID
		o.Items[i].OrderID = o.ID
		r.items[o.Items[i].ID] = o.Items[i]
	}
	stored := o
	stored.Items = nil
	r.orders[o.ID] = stored
	return o, nil
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Items, _ = r.ItemsByOrder(ctx, id)
	return o, nil
}

func (r *memoryRepo) SaveOrder(ctx context.Context, o Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return ErrNotFound
	}
	stored := o
	stored.Items = nil
	r.orders[o.ID] = stored
	return nil
}

func (r *memoryRepo) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return Item{}, ErrNotFound
}

func (r *memoryRepo) SaveItem(ctx context.Context, item Item) error {
	if _, ok := r.items[item.ID]; !ok {
		return ErrNotFound
	}
	item.LineTotal = item.Quantity * item.UnitPrice
	r.items[item.ID] = item
	return nil
}

func (r *memoryRepo) AddItem(ctx context.Context, item Item) (int64, error) {
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item.ID, nil
}

func (r *memoryRepo) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) ItemsByOrder(ctx context.Context, orderID int64) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	products   map[int64]catalog.Product
	canProduce bool
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (c *fakeCatalog) CanProduce(ctx context.Context, productID int64, qty float64) (bool, error) {
	return c.canProduce, nil
}

type fakeCustomers struct {
	known map[int64]bool
}

func (c *fakeCustomers) Exists(ctx context.Context, id int64) (bool, error) {
	return c.known[id], nil
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

func setup(t *testing.T) (*Service, *memoryRepo, *fakeCatalog) {
	t.Helper()
	repo := newMemoryRepo()
	cat := &fakeCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, Name: "Oak Chair", SellingPrice: 450},
			2: {ID: 2, Name: "Oak Table", SellingPrice: 1200},
		},
		canProduce: true,
	}
	customers := &fakeCustomers{known: map[int64]bool{5: true}}
	svc := NewService(repo, cat, customers, &fakeSeq{}, nil, nil).
		WithClock(func() time.Time { return testNow })
	return svc, repo, cat
}

func placeOrder(t *testing.T, svc *Service, items ...ItemInput) Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:   5,
		TaxAmount:    50,
		ShippingCost: 25,
		Items:        items,
	})
	require.NoError(t, err)
	return o
}

func TestCreateOrderTotals(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	custom := 400.0
	o, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:     5,
		TaxAmount:      100,
		ShippingCost:   60,
		DiscountAmount: 50,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2, UnitPrice: &custom},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "ORD-2025080001", o.OrderNumber)
	require.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Items, 2)
	require.InDelta(t, 800, o.Items[0].LineTotal, 1e-9)
	require.InDelta(t, 1200, o.Items[1].LineTotal, 1e-9)
	// subtotal = 2000 - 50 discount; total adds tax and shipping
	require.InDelta(t, 1950, o.Subtotal, 1e-9)
	require.InDelta(t, 2110, o.TotalAmount, 1e-9)
}

func TestCreateOrderSequencePerMonth(t *testing.T) {
	svc, _, _ := setup(t)

	o1 := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})
	o2 := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})
	require.Equal(t, "ORD-2025080001", o1.OrderNumber)
	require.Equal(t, "ORD-2025080002", o2.OrderNumber)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 99,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderNoItems(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{CustomerID: 5})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatusIsPermissive(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})

	// No guard: jumping straight from pending to delivered is allowed.
	got, err := svc.UpdateStatus(ctx, o.ID, StatusDelivered, "", "")
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredDate)

	got, err = svc.UpdateStatus(ctx, o.ID, StatusPending, "", "")
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestUpdateStatusStampsShippedDate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})

	got, err := svc.UpdateStatus(ctx, o.ID, StatusShipped, "TRK-123", "")
	require.NoError(t, err)
	require.NotNil(t, got.ShippedDate)
	require.Equal(t, testNow, *got.ShippedDate)
	require.Equal(t, "TRK-123", got.TrackingNumber)
	require.Nil(t, got.DeliveredDate)
}

func TestUpdateStatusUnknown(t *testing.T) {
	svc, _, _ := setup(t)
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})

	_, err := svc.UpdateStatus(context.Background(), o.ID, "misplaced", "", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestStartItemProductionGatesOnMaterials(t *testing.T) {
	svc, _, cat := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 3})
	itemID := o.Items[0].ID

	cat.canProduce = false
	_, err := svc.StartItemProduction(ctx, itemID, "planner")
	require.ErrorIs(t, err, ErrInsufficientMaterials)

	item, err := svc.GetItem(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, ItemPending, item.Status)

	cat.canProduce = true
	item, err = svc.StartItemProduction(ctx, itemID, "planner")
	require.NoError(t, err)
	require.Equal(t, ItemInProduction, item.Status)
	require.NotNil(t, item.ProductionStartDate)

	// Only pending items may start.
	_, err = svc.StartItemProduction(ctx, itemID, "planner")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteLastItemCascadesToOrder(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc,
		ItemInput{ProductID: 1, Quantity: 2},
		ItemInput{ProductID: 2, Quantity: 1},
	)
	_, err := svc.UpdateStatus(ctx, o.ID, StatusInProduction, "", "")
	require.NoError(t, err)
	for _, item := range o.Items {
		_, err = svc.StartItemProduction(ctx, item.ID, "")
		require.NoError(t, err)
	}

	require.NoError(t, svc.CompleteItemProduction(ctx, o.Items[0].ID, ""))
	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProduction, got.Status)

	require.NoError(t, svc.CompleteItemProduction(ctx, o.Items[1].ID, ""))
	got, err = svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReady, got.Status)
}

func TestCompleteItemNoCascadeWhenOrderNotInProduction(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})
	_, err := svc.StartItemProduction(ctx, o.Items[0].ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.CompleteItemProduction(ctx, o.Items[0].ID, ""))
	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestAddAndRemoveItemRecalculatesTotals(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})
	require.InDelta(t, 450, o.Subtotal, 1e-9)

	got, err := svc.AddItem(ctx, o.ID, ItemInput{ProductID: 2, Quantity: 2}, "")
	require.NoError(t, err)
	require.InDelta(t, 450+2400, got.Subtotal, 1e-9)
	require.InDelta(t, 450+2400+50+25, got.TotalAmount, 1e-9)

	var tableItem Item
	for _, item := range got.Items {
		if item.ProductID == 2 {
			tableItem = item
		}
	}
	got, err = svc.RemoveItem(ctx, o.ID, tableItem.ID, "")
	require.NoError(t, err)
	require.InDelta(t, 450, got.Subtotal, 1e-9)
}

func TestRemoveNonPendingItem(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, ItemInput{ProductID: 1, Quantity: 1})
	_, err := svc.StartItemProduction(ctx, o.Items[0].ID, "")
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, o.ID, o.Items[0].ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestOrderPredicates(t *testing.T) {
	cases := []struct {
		name      string
		order     Order
		cancelled bool
		shipped   bool
		delivered bool
	}{
		{"pending", Order{Status: StatusPending}, true, false, false},
		{"on hold", Order{Status: StatusOnHold}, true, false, false},
		{"ready", Order{Status: StatusReady}, false, true, false},
		{"shipped no tracking", Order{Status: StatusShipped}, false, false, false},
		{"shipped tracked", Order{Status: StatusShipped, TrackingNumber: "TRK-1"}, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.cancelled, tc.order.CanBeCancelled())
			require.Equal(t, tc.shipped, tc.order.CanBeShipped())
			require.Equal(t, tc.delivered, tc.order.CanBeDelivered())
		})
	}
}
