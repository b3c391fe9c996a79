package orders

import "time"

type ItemRequest struct {
	ProductID       string  `json:"product_id" validate:"required"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	SalePrice       float64 `json:"sale_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type CreateOrderRequest struct {
	ClientID string        `json:"client_id" validate:"required"`
	Date     time.Time     `json:"date" validate:"required"`
	Notes    string        `json:"notes"`
	Discount float64       `json:"discount" validate:"gte=0,lte=100"`
	Items    []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	Date     *time.Time     `json:"date,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
	Discount *float64       `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	Items    *[]ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ConvertRequest carries the exit date for an order conversion. A zero date
// defaults to the conversion time.
type ConvertRequest struct {
	Date          time.Time `json:"date"`
	InvoiceNumber string    `json:"invoice_number" validate:"max=100"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search  string
	Status  Status
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}
