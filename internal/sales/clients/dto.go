package clients

type AddressInput struct {
	Street     string `json:"street" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

type CreateClientRequest struct {
	Name                string       `json:"name" validate:"required,max=200"`
	Company             *string      `json:"company,omitempty" validate:"omitempty,max=200"`
	Email               string       `json:"email" validate:"required,email"`
	Phone               *string      `json:"phone,omitempty" validate:"omitempty,max=50"`
	Fax                 *string      `json:"fax,omitempty" validate:"omitempty,max=50"`
	BillingAddress      AddressInput `json:"billing_address"`
	DeliveryAddress     AddressInput `json:"delivery_address"`
	SameDeliveryAddress *bool        `json:"same_delivery_address,omitempty"`
}

type UpdateClientRequest struct {
	Name                *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Company             *string       `json:"company,omitempty" validate:"omitempty,max=200"`
	Email               *string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone               *string       `json:"phone,omitempty" validate:"omitempty,max=50"`
	Fax                 *string       `json:"fax,omitempty" validate:"omitempty,max=50"`
	BillingAddress      *AddressInput `json:"billing_address,omitempty"`
	DeliveryAddress     *AddressInput `json:"delivery_address,omitempty"`
	SameDeliveryAddress *bool         `json:"same_delivery_address,omitempty"`
	IsActive            *bool         `json:"is_active,omitempty"`
}

type ListClientsRequest struct {
	Search          *string `json:"search,omitempty"`
	IncludeInactive bool    `json:"include_inactive"`
	Limit           int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset          int     `json:"offset" validate:"gte=0"`
}
