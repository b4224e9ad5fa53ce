package orders

import "time"

// OrderStatus is the lifecycle stage of an order. Only draft orders are
// editable; later stages are driven by the warehouse and carry no internal
// transition guard.
type OrderStatus string

const (
	StatusDraft         OrderStatus = "draft"
	StatusConfirmed     OrderStatus = "confirmed"
	StatusInPreparation OrderStatus = "in_preparation"
	StatusShipped       OrderStatus = "shipped"
	StatusDelivered     OrderStatus = "delivered"
)

var knownStatuses = map[OrderStatus]struct{}{
	StatusDraft:         {},
	StatusConfirmed:     {},
	StatusInPreparation: {},
	StatusShipped:       {},
	StatusDelivered:     {},
}

func KnownStatus(s OrderStatus) bool {
	_, ok := knownStatuses[s]
	return ok
}

// OrderType distinguishes build-to-order (ZIG) from ship-from-stock (STD).
type OrderType string

const (
	TypeBuildToOrder  OrderType = "ZIG"
	TypeShipFromStock OrderType = "STD"
)

func KnownOrderType(t OrderType) bool {
	return t == TypeBuildToOrder || t == TypeShipFromStock
}

// Order is the sales aggregate. Client name and line article fields are
// snapshotted at write time so the document stays stable when master data
// changes afterwards.
type Order struct {
	ID                    int64       `json:"id"`
	Number                string      `json:"number"`
	ClientID              int64       `json:"client_id"`
	ClientName            string      `json:"client_name"`
	Status                OrderStatus `json:"status"`
	OrderType             OrderType   `json:"order_type"`
	RequestedDeliveryDate *time.Time  `json:"requested_delivery_date,omitempty"`
	ConfirmedAt           *time.Time  `json:"confirmed_at,omitempty"`
	Notes                 *string     `json:"notes,omitempty"`
	TaxRate               float64     `json:"tax_rate"`
	PreTaxTotal           float64     `json:"pre_tax_total"`
	TaxAmount             float64     `json:"tax_amount"`
	Total                 float64     `json:"total"`
	Lines                 []OrderLine `json:"lines"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// Editable reports whether the order may still be modified or deleted with
// full reservation rollback.
func (o Order) Editable() bool {
	return o.Status == StatusDraft
}

// OrderLine carries a snapshot of the article at order time plus the
// fulfillment counters the warehouse advances.
type OrderLine struct {
	ID               int64              `json:"id"`
	OrderID          int64              `json:"order_id"`
	ArticleID        int64              `json:"article_id"`
	ArticleNumber    string             `json:"article_number"`
	Designation      string             `json:"designation"`
	Technology       string             `json:"technology"`
	ProductFamily    string             `json:"product_family"`
	Unit             string             `json:"unit"`
	UnitPrice        float64            `json:"unit_price"`
	QtyOrdered       int                `json:"qty_ordered"`
	QtyToShip        int                `json:"qty_to_ship"`
	QtyShipped       int                `json:"qty_shipped"`
	QtyInPreparation int                `json:"qty_in_preparation"`
	Confirmations    []LineConfirmation `json:"confirmations"`
}

// ConfirmedQuantity sums the append-only confirmation records.
func (l OrderLine) ConfirmedQuantity() int {
	total := 0
	for _, c := range l.Confirmations {
		total += c.Quantity
	}
	return total
}

// UnconfirmedRemainder is how much of the ordered quantity has no
// confirmation record yet. Never negative.
func (l OrderLine) UnconfirmedRemainder() int {
	remainder := l.QtyOrdered - l.ConfirmedQuantity()
	if remainder < 0 {
		return 0
	}
	return remainder
}

// LineConfirmation records a confirmed quantity on a line. Records are
// append-only; the sum per line never exceeds the ordered quantity.
type LineConfirmation struct {
	ID          int64     `json:"id"`
	LineID      int64     `json:"line_id"`
	Quantity    int       `json:"quantity"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
