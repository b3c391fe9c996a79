package catalog

// CreateProductRequest carries fields for a new product. OpeningStock seeds
// current_stock once at creation; later edits cannot touch stock.
type CreateProductRequest struct {
	Code          string  `json:"code" validate:"required,max=50"`
	Name          string  `json:"name" validate:"required,max=200"`
	Description   string  `json:"description"`
	CategoryName  string  `json:"category_name" validate:"max=200"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
	SalePrice     float64 `json:"sale_price" validate:"gte=0"`
	OpeningStock  int     `json:"opening_stock" validate:"gte=0"`
	MinStock      int     `json:"min_stock" validate:"gte=0"`
	Status        Status  `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateProductRequest carries editable product fields.
type UpdateProductRequest struct {
	Code          *string  `json:"code,omitempty" validate:"omitempty,max=50"`
	Name          *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string  `json:"description,omitempty"`
	CategoryName  *string  `json:"category_name,omitempty" validate:"omitempty,max=200"`
	PurchasePrice *float64 `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	SalePrice     *float64 `json:"sale_price,omitempty" validate:"omitempty,gte=0"`
	MinStock      *int     `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	Status        *Status  `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// CreateCategoryRequest carries fields for a new category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateCategoryRequest carries editable category fields.
type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search  string
	Status  Status
	Page    int
	PerPage int
}
