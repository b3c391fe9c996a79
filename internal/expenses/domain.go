// Package expenses records expense documents. Expenses carry free-text item
// lines and never touch product stock.
package expenses

import (
	"errors"
	"time"

	"github.com/comercio-app/comercio/internal/stock"
)

// Expense is a cost document tied to a supplier.
type Expense struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	SupplierID   string     `json:"supplier_id"`
	SupplierName string     `json:"supplier_name"`
	Date         time.Time  `json:"date"`
	Notes        string     `json:"notes"`
	Discount     float64    `json:"discount"`
	Items        []Item     `json:"items"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Item is one expense line. ProductName is free text, not a catalog link.
type Item struct {
	ID              string  `json:"id"`
	ProductName     string  `json:"product_name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Total sums expense line totals and applies the document discount.
func (e Expense) Total() float64 {
	var total float64
	for _, item := range e.Items {
		total += stock.LineTotal(item.Quantity, item.UnitPrice, item.DiscountPercent)
	}
	return total * (1 - e.Discount/100)
}

var (
	// ErrNoItems indicates an expense without line items.
	ErrNoItems = errors.New("expenses: expense requires at least one item")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("expenses: item quantity must be positive")
)
