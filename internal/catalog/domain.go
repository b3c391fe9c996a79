// Package catalog manages products and categories.
package catalog

import (
	"errors"
	"time"
)

// Status enumerates record activity states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Product is a sellable or purchasable article. CurrentStock is maintained
// exclusively by stock movements; user edits never write it.
type Product struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	CategoryName  string     `json:"category_name"`
	PurchasePrice float64    `json:"purchase_price"`
	SalePrice     float64    `json:"sale_price"`
	CurrentStock  int        `json:"current_stock"`
	MinStock      int        `json:"min_stock"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// LowOnStock reports whether the product is at or below its reorder threshold.
func (p Product) LowOnStock() bool {
	return p.MinStock > 0 && p.CurrentStock < p.MinStock
}

// Category groups products by name.
type Category struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	ProductCount int        `json:"product_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// StockAdjustment is one signed stock change for a product. Positive deltas
// add stock, negative deltas subtract with the result clamped at zero.
type StockAdjustment struct {
	ProductID string
	Delta     int
}

var (
	// ErrDuplicateCode indicates a product code collision.
	ErrDuplicateCode = errors.New("catalog: product code already in use")
)
