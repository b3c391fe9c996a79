package stock

import "time"

type EntryItemRequest struct {
	ProductID     string  `json:"product_id" validate:"required"`
	Quantity      int     `json:"quantity" validate:"required,gt=0"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
}

type CreateEntryRequest struct {
	SupplierID    string             `json:"supplier_id" validate:"required"`
	Date          time.Time          `json:"date" validate:"required"`
	InvoiceNumber string             `json:"invoice_number" validate:"max=100"`
	Notes         string             `json:"notes"`
	Items         []EntryItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateEntryRequest struct {
	Date          *time.Time          `json:"date,omitempty"`
	InvoiceNumber *string             `json:"invoice_number,omitempty" validate:"omitempty,max=100"`
	Notes         *string             `json:"notes,omitempty"`
	Items         *[]EntryItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type ExitItemRequest struct {
	ProductID       string  `json:"product_id" validate:"required"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	SalePrice       float64 `json:"sale_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type CreateExitRequest struct {
	ClientID      string            `json:"client_id" validate:"required"`
	Date          time.Time         `json:"date" validate:"required"`
	InvoiceNumber string            `json:"invoice_number" validate:"max=100"`
	Notes         string            `json:"notes"`
	Discount      float64           `json:"discount" validate:"gte=0,lte=100"`
	Items         []ExitItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateExitRequest struct {
	Date          *time.Time         `json:"date,omitempty"`
	InvoiceNumber *string            `json:"invoice_number,omitempty" validate:"omitempty,max=100"`
	Notes         *string            `json:"notes,omitempty"`
	Discount      *float64           `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	Items         *[]ExitItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}
