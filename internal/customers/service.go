package customers

import (
	"context"
	"errors"
	"fmt"
)

// Repository abstracts customer persistence.
type Repository interface {
	Create(ctx context.Context, c Customer) (int64, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Save(ctx context.Context, c Customer) error
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service owns customer master data.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new active customer.
func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	if c.Name == "" {
		return Customer{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if c.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("%w: credit limit must not be negative", ErrValidation)
	}
	c.Active = true
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	c.ID = id
	return c, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Update persists customer field changes.
func (s *Service) Update(ctx context.Context, c Customer) error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: customer id required", ErrValidation)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.Save(ctx, c)
}

// List returns customers matching the filter with a total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate soft-disables a customer; existing orders keep referencing it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a customer.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// Exists reports whether an active customer with the id is on record.
// Orders call this before accepting a new order.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.Active, nil
}
