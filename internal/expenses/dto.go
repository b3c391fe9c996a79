package expenses

import "time"

type ItemRequest struct {
	ProductName     string  `json:"product_name" validate:"required"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type CreateExpenseRequest struct {
	SupplierID string        `json:"supplier_id" validate:"required"`
	Date       time.Time     `json:"date" validate:"required"`
	Notes      string        `json:"notes"`
	Discount   float64       `json:"discount" validate:"gte=0,lte=100"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateExpenseRequest struct {
	Date     *time.Time     `json:"date,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
	Discount *float64       `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	Items    *[]ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}
