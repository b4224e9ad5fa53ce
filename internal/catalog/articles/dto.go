package articles

type CreateArticleRequest struct {
	Number        string  `json:"number" validate:"required,max=50"`
	Designation   string  `json:"designation" validate:"required,max=200"`
	Technology    string  `json:"technology" validate:"required,max=100"`
	ProductFamily string  `json:"product_family,omitempty"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	Unit          string  `json:"unit,omitempty"`
	StockOnHand   int     `json:"stock_on_hand" validate:"gte=0"`
}

// UpdateArticleRequest carries optional edits. The article number is
// immutable and deliberately absent.
type UpdateArticleRequest struct {
	Designation   *string  `json:"designation,omitempty" validate:"omitempty,max=200"`
	Technology    *string  `json:"technology,omitempty" validate:"omitempty,max=100"`
	ProductFamily *string  `json:"product_family,omitempty"`
	UnitPrice     *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Unit          *string  `json:"unit,omitempty"`
	StockOnHand   *int     `json:"stock_on_hand,omitempty" validate:"omitempty,gte=0"`
	IsActive      *bool    `json:"is_active,omitempty"`
}

type ListArticlesRequest struct {
	Search          *string `json:"search,omitempty"`
	IncludeInactive bool    `json:"include_inactive"`
	Limit           int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset          int     `json:"offset" validate:"gte=0"`
}
