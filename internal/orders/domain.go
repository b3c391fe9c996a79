// Package orders manages customer orders. An order reserves nothing: stock
// only moves when a pending order is converted into a stock exit, and a
// converted order becomes immutable.
package orders

import (
	"errors"
	"time"

	"github.com/comercio-app/comercio/internal/stock"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusConverted Status = "converted"
)

// Order is a customer order document.
type Order struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	ClientID   string     `json:"client_id"`
	ClientName string     `json:"client_name"`
	Date       time.Time  `json:"date"`
	Notes      string     `json:"notes"`
	Status     Status     `json:"status"`
	Discount   float64    `json:"discount"`
	ExitID     string     `json:"exit_id,omitempty"`
	ExitNumber string     `json:"exit_number,omitempty"`
	Items      []Item     `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Item is one ordered product line.
type Item struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Quantity        int     `json:"quantity"`
	SalePrice       float64 `json:"sale_price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Total sums order line totals and applies the document discount.
func (o Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += stock.LineTotal(item.Quantity, item.SalePrice, item.DiscountPercent)
	}
	return total * (1 - o.Discount/100)
}

var (
	// ErrNoItems indicates an order without line items.
	ErrNoItems = errors.New("orders: order requires at least one item")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("orders: item quantity must be positive")
	// ErrNotPending indicates a write against a cancelled or converted order.
	ErrNotPending = errors.New("orders: only pending orders can be modified")
	// ErrAlreadyConverted indicates a second conversion attempt.
	ErrAlreadyConverted = errors.New("orders: order already converted to a stock exit")
)
