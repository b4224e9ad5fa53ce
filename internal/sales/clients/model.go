package clients

import "time"

// Address is a postal address embedded twice on every client (billing and
// delivery). It is a value, not a reference: order snapshots must not drift
// when the client record is edited later.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Client is a billing/shipping party. The number (CLI-<year>-<seq>) is
// assigned once at creation and immutable; clients are soft-deleted.
type Client struct {
	ID                  int64     `json:"id" db:"id"`
	Number              string    `json:"number" db:"client_no"`
	Name                string    `json:"name" db:"name"`
	Company             *string   `json:"company,omitempty" db:"company"`
	Email               string    `json:"email" db:"email"`
	Phone               *string   `json:"phone,omitempty" db:"phone"`
	Fax                 *string   `json:"fax,omitempty" db:"fax"`
	BillingAddress      Address   `json:"billing_address"`
	DeliveryAddress     Address   `json:"delivery_address"`
	SameDeliveryAddress bool      `json:"same_delivery_address" db:"same_delivery_address"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// EffectiveDeliveryAddress resolves where goods ship to. The copy-on-write at
// save time keeps both addresses equal while the flag is set, so this is a
// convenience for readers, not a data dependency.
func (c Client) EffectiveDeliveryAddress() Address {
	if c.SameDeliveryAddress {
		return c.BillingAddress
	}
	return c.DeliveryAddress
}
