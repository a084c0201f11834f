package customers

import (
	"errors"
	"time"
)

// Customer is a buyer on record.
type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	CompanyName   string    `json:"company_name,omitempty"`
	TaxID         string    `json:"tax_id,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	Country       string    `json:"country,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	CreditLimit   float64   `json:"credit_limit"`
	PaymentTerms  string    `json:"payment_terms,omitempty"`
	Active        bool      `json:"active"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilter filters customer listings.
type ListFilter struct {
	Search     string
	City       string
	OnlyActive bool
	Limit      int
	Offset     int
}

var (
	// ErrNotFound indicates a missing customer.
	ErrNotFound = errors.New("customers: not found")
	// ErrValidation indicates malformed input to a customer operation.
	ErrValidation = errors.New("customers: validation failed")
)
