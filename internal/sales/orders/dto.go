package orders

import "time"

type OrderLineInput struct {
	ArticleID int64 `json:"article_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	ClientID              int64            `json:"client_id" validate:"required,gt=0"`
	OrderType             string           `json:"order_type,omitempty" validate:"omitempty,oneof=ZIG STD"`
	RequestedDeliveryDate *time.Time       `json:"requested_delivery_date,omitempty"`
	Notes                 *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TaxRate               *float64         `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Lines                 []OrderLineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateOrderRequest replaces header fields and, when Lines is present, the
// whole line set. Partial line edits are not supported.
type UpdateOrderRequest struct {
	OrderType             *string          `json:"order_type,omitempty" validate:"omitempty,oneof=ZIG STD"`
	RequestedDeliveryDate *time.Time       `json:"requested_delivery_date,omitempty"`
	Notes                 *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TaxRate               *float64         `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Lines                 []OrderLineInput `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ListOrdersRequest struct {
	Search *string `json:"search,omitempty"`
	Status *string `json:"status,omitempty"`
	Limit  int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset int     `json:"offset" validate:"gte=0"`
}
