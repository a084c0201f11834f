package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer)}
}

func (r *memoryRepo) Create(ctx context.Context, c Customer) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	if c, ok := r.customers[id]; ok {
		return c, nil
	}
	return Customer{}, ErrNotFound
}

func (r *memoryRepo) Save(ctx context.Context, c Customer) error {
	if _, ok := r.customers[c.ID]; !ok {
		return ErrNotFound
	}
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		if filter.OnlyActive && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	c, ok := r.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	r.customers[id] = c
	return nil
}

func TestCreateActivatesByDefault(t *testing.T) {
	svc := NewService(newMemoryRepo())
	c, err := svc.Create(context.Background(), Customer{Name: "Nordisk Interiors"})
	require.NoError(t, err)
	require.True(t, c.Active)
	require.NotZero(t, c.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Customer{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), Customer{Name: "x", CreditLimit: -1})
	require.ErrorIs(t, err, ErrValidation)
}

func TestExistsRespectsDeactivation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	c, err := svc.Create(ctx, Customer{Name: "Nordisk Interiors"})
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Deactivate(ctx, c.ID))
	ok, err = svc.Exists(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.Exists(ctx, 999)
	require.NoError(t, err)
	require.False(t, ok)
}
