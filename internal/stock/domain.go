// Package stock records inventory movements: entries add product stock,
// exits subtract it with the result clamped at zero.
package stock

import (
	"errors"
	"time"
)

// Entry is an inbound stock document from a supplier.
type Entry struct {
	ID            string      `json:"id"`
	Number        string      `json:"number"`
	SupplierID    string      `json:"supplier_id"`
	SupplierName  string      `json:"supplier_name"`
	Date          time.Time   `json:"date"`
	InvoiceNumber string      `json:"invoice_number"`
	Notes         string      `json:"notes"`
	Items         []EntryItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
}

// EntryItem is one received product line.
type EntryItem struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
}

// Exit is an outbound stock document to a client. FromOrderID links exits
// materialized from an order conversion back to their source.
type Exit struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	ClientID        string     `json:"client_id"`
	ClientName      string     `json:"client_name"`
	Date            time.Time  `json:"date"`
	InvoiceNumber   string     `json:"invoice_number"`
	Notes           string     `json:"notes"`
	Discount        float64    `json:"discount"`
	FromOrderID     string     `json:"from_order_id,omitempty"`
	FromOrderNumber string     `json:"from_order_number,omitempty"`
	Items           []ExitItem `json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// ExitItem is one shipped product line.
type ExitItem struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Quantity        int     `json:"quantity"`
	SalePrice       float64 `json:"sale_price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// LineTotal computes quantity x price net of the line discount.
func LineTotal(quantity int, price, discountPercent float64) float64 {
	return float64(quantity) * price * (1 - discountPercent/100)
}

// Total sums entry line totals.
func (e Entry) Total() float64 {
	var total float64
	for _, item := range e.Items {
		total += LineTotal(item.Quantity, item.PurchasePrice, 0)
	}
	return total
}

// Total sums exit line totals and applies the document discount.
func (e Exit) Total() float64 {
	var total float64
	for _, item := range e.Items {
		total += LineTotal(item.Quantity, item.SalePrice, item.DiscountPercent)
	}
	return total * (1 - e.Discount/100)
}

var (
	// ErrNoItems indicates a document without line items.
	ErrNoItems = errors.New("stock: document requires at least one item")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("stock: item quantity must be positive")
)
