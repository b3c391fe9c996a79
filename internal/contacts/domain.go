// Package contacts manages clients and suppliers.
package contacts

import "time"

// Kind selects the contact table.
type Kind string

const (
	KindClient   Kind = "clients"
	KindSupplier Kind = "suppliers"
)

// Contact is the shared shape of clients and suppliers.
type Contact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	TaxID     string     `json:"tax_id"`
	Notes     string     `json:"notes"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// UpsertContactRequest carries contact fields for create and update.
type UpsertContactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	TaxID   string `json:"tax_id" validate:"max=50"`
	Notes   string `json:"notes"`
	Status  string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}
