package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fournitex/fournitex/internal/catalog/articles"
	"github.com/fournitex/fournitex/internal/sales/clients"
	"github.com/fournitex/fournitex/internal/shared"
)

type memoryOrderRepo struct {
	orders     map[int64]*Order
	nextID     int64
	nextLineID int64
	nextConfID int64
	seq        int64
	failCreate bool
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]*Order)}
}

func cloneOrder(o *Order) *Order {
	clone := *o
	clone.Lines = make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		lc := l
		lc.Confirmations = append([]LineConfirmation(nil), l.Confirmations...)
		clone.Lines[i] = lc
	}
	return &clone
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryOrderRepo) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (r *memoryOrderRepo) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		if req.Status != nil && *req.Status != "" {
			switch *req.Status {
			case "confirmed":
				if o.Status == StatusDraft {
					continue
				}
			case "unconfirmed":
				if o.Status != StatusDraft {
					continue
				}
			default:
				if string(o.Status) != *req.Status {
					continue
				}
			}
		}
		if req.Search != nil && *req.Search != "" {
			s := strings.ToLower(*req.Search)
			match := strings.Contains(strings.ToLower(o.Number), s) ||
				strings.Contains(strings.ToLower(o.ClientName), s)
			for _, l := range o.Lines {
				if strings.Contains(strings.ToLower(l.Technology), s) ||
					strings.Contains(strings.ToLower(l.ProductFamily), s) {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *cloneOrder(o))
	}
	return out, len(out), nil
}

func (r *memoryOrderRepo) Create(ctx context.Context, o Order) (int64, error) {
	if r.failCreate {
		return 0, fmt.Errorf("storage offline")
	}
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Lines {
		r.nextLineID++
		o.Lines[i].ID = r.nextLineID
		o.Lines[i].OrderID = o.ID
	}
	r.orders[o.ID] = &o
	return o.ID, nil
}

func (r *memoryOrderRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	for col, v := range updates {
		switch col {
		case "order_type":
			o.OrderType = OrderType(v.(string))
		case "requested_delivery_date":
			t := v.(time.Time)
			o.RequestedDeliveryDate = &t
		case "notes":
			s := v.(string)
			o.Notes = &s
		case "tax_rate":
			o.TaxRate = v.(float64)
		case "pre_tax_total":
			o.PreTaxTotal = v.(float64)
		case "tax_amount":
			o.TaxAmount = v.(float64)
		case "total":
			o.Total = v.(float64)
		}
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (r *memoryOrderRepo) ReplaceLines(ctx context.Context, orderID int64, lines []OrderLine) error {
	o, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	o.Lines = nil
	for _, l := range lines {
		r.nextLineID++
		l.ID = r.nextLineID
		l.OrderID = orderID
		o.Lines = append(o.Lines, l)
	}
	return nil
}

func (r *memoryOrderRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, id int64, status OrderStatus, confirmedAt *time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	o.Status = status
	if confirmedAt != nil {
		o.ConfirmedAt = confirmedAt
	}
	return nil
}

func (r *memoryOrderRepo) InsertConfirmation(ctx context.Context, lineID int64, quantity int, at time.Time) error {
	for _, o := range r.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				r.nextConfID++
				o.Lines[i].Confirmations = append(o.Lines[i].Confirmations, LineConfirmation{
					ID:          r.nextConfID,
					LineID:      lineID,
					Quantity:    quantity,
					ConfirmedAt: at,
				})
				return nil
			}
		}
	}
	return fmt.Errorf("line %d: %w", lineID, shared.ErrNotFound)
}

func (r *memoryOrderRepo) GenerateNumber(ctx context.Context) (string, error) {
	r.seq++
	return fmt.Sprintf("CMD-%d-%04d", time.Now().Year(), r.seq), nil
}

type fakeCatalog struct {
	items map[int64]*articles.Article
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{items: make(map[int64]*articles.Article)}
}

func (c *fakeCatalog) add(id int64, number string, price float64, stock int) {
	c.items[id] = &articles.Article{
		ID:            id,
		Number:        number,
		Designation:   "Article " + number,
		Technology:    "Laser",
		ProductFamily: articles.FamilyBulk,
		UnitPrice:     price,
		Unit:          articles.UnitPiece,
		StockOnHand:   stock,
		IsActive:      true,
	}
}

func (c *fakeCatalog) Get(ctx context.Context, id int64) (*articles.Article, error) {
	a, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	clone := *a
	return &clone, nil
}

func (c *fakeCatalog) Reserve(ctx context.Context, id int64, quantity int) error {
	a, ok := c.items[id]
	if !ok {
		return fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	if a.StockOnHand-a.StockReserved < quantity {
		return fmt.Errorf("article %d: %w", id, shared.ErrInsufficientStock)
	}
	a.StockReserved += quantity
	return nil
}

func (c *fakeCatalog) Release(ctx context.Context, id int64, quantity int) error {
	a, ok := c.items[id]
	if !ok {
		return nil
	}
	a.StockReserved -= quantity
	if a.StockReserved < 0 {
		a.StockReserved = 0
	}
	return nil
}

func (c *fakeCatalog) reserved(id int64) int {
	return c.items[id].StockReserved
}

type fakeDirectory struct {
	items map[int64]*clients.Client
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{items: make(map[int64]*clients.Client)}
	d.items[1] = &clients.Client{ID: 1, Number: "CLI-2026-001", Name: "Imprimerie Dupont", Email: "contact@dupont.fr", IsActive: true}
	return d
}

func (d *fakeDirectory) Get(ctx context.Context, id int64) (*clients.Client, error) {
	c, ok := d.items[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, shared.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

type fakeIdempotency struct {
	keys map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]bool)}
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *memoryOrderRepo
	catalog *fakeCatalog
	idem    *fakeIdempotency
}

func newFixture() *fixture {
	repo := newMemoryOrderRepo()
	catalog := newFakeCatalog()
	catalog.add(10, "ART-010", 10, 100)
	catalog.add(20, "ART-020", 5, 8)
	idem := newFakeIdempotency()
	svc := NewService(repo, catalog, newFakeDirectory(), idem, nil)
	return &fixture{svc: svc, repo: repo, catalog: catalog, idem: idem}
}

func TestCreateOrderReservesAndSnapshots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines: []OrderLineInput{
			{ArticleID: 10, Quantity: 4},
			{ArticleID: 20, Quantity: 2},
		},
	}, "")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(order.Number, "CMD-"))
	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, TypeShipFromStock, order.OrderType)
	require.Equal(t, "Imprimerie Dupont", order.ClientName)
	require.Len(t, order.Lines, 2)
	require.Equal(t, "ART-010", order.Lines[0].ArticleNumber)
	require.Equal(t, 4, order.Lines[0].QtyOrdered)
	require.Equal(t, 4, order.Lines[0].QtyToShip)
	require.Equal(t, 0, order.Lines[0].QtyShipped)

	require.Equal(t, 4, f.catalog.reserved(10))
	require.Equal(t, 2, f.catalog.reserved(20))

	// 4*10 + 2*5 = 50 pre-tax, 20% default rate.
	require.Equal(t, 50.0, order.PreTaxTotal)
	require.Equal(t, 10.0, order.TaxAmount)
	require.Equal(t, 60.0, order.Total)
}

func TestCreateInsufficientStockCompensates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines: []OrderLineInput{
			{ArticleID: 10, Quantity: 4},
			{ArticleID: 20, Quantity: 50},
		},
	}, "")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.Equal(t, 0, f.catalog.reserved(10))
	require.Equal(t, 0, f.catalog.reserved(20))
	require.Empty(t, f.repo.orders)
}

func TestCreateUnknownClient(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		ClientID: 99,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, 0, f.catalog.reserved(10))
}

func TestCreatePersistFailureReleasesStock(t *testing.T) {
	f := newFixture()
	f.repo.failCreate = true

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 3}},
	}, "")
	require.Error(t, err)
	require.Equal(t, 0, f.catalog.reserved(10))
}

func TestCreateIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	key := "2f9e9a36-7d61-4f6e-9f1a-0c6f3f1c2b4d"

	_, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, key)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, key)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "not-a-uuid")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateFailureFreesIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	key := "4b826d12-9f03-41c7-8a6e-2f4b3f9d1e5c"

	_, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 20, Quantity: 999}},
	}, key)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// The key must be reusable after a failed creation.
	_, err = f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 20, Quantity: 2}},
	}, key)
	require.NoError(t, err)
}

func TestConfirmAppendsRemainders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines: []OrderLineInput{
			{ArticleID: 10, Quantity: 4},
			{ArticleID: 20, Quantity: 2},
		},
	}, "")
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.Equal(t, 4, confirmed.Lines[0].ConfirmedQuantity())
	require.Equal(t, 2, confirmed.Lines[1].ConfirmedQuantity())
	require.Equal(t, 0, confirmed.Lines[0].UnconfirmedRemainder())
}

func TestConfirmTwiceRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 4}},
	}, "")
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	// Nothing changed on the failed attempt.
	after, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, confirmed.ConfirmedAt.Unix(), after.ConfirmedAt.Unix())
	require.Equal(t, 4, after.Lines[0].ConfirmedQuantity())
}

func TestUpdateNonDraftRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	notes := "too late"
	_, err = f.svc.Update(ctx, order.ID, UpdateOrderRequest{Notes: &notes})
	require.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestUpdateReplacesLinesAndReservations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 4}},
	}, "")
	require.NoError(t, err)
	require.Equal(t, 4, f.catalog.reserved(10))

	updated, err := f.svc.Update(ctx, order.ID, UpdateOrderRequest{
		Lines: []OrderLineInput{{ArticleID: 20, Quantity: 3}},
	})
	require.NoError(t, err)

	require.Equal(t, 0, f.catalog.reserved(10))
	require.Equal(t, 3, f.catalog.reserved(20))
	require.Len(t, updated.Lines, 1)
	require.Equal(t, "ART-020", updated.Lines[0].ArticleNumber)

	// 3*5 = 15 pre-tax at the default 20% rate.
	require.Equal(t, 15.0, updated.PreTaxTotal)
	require.Equal(t, 18.0, updated.Total)
}

func TestUpdateReservationFailureRestoresOldHolds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 4}},
	}, "")
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, order.ID, UpdateOrderRequest{
		Lines: []OrderLineInput{{ArticleID: 20, Quantity: 999}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.Equal(t, 4, f.catalog.reserved(10))
	require.Equal(t, 0, f.catalog.reserved(20))

	after, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "ART-010", after.Lines[0].ArticleNumber)
}

func TestDeleteReleasesReservations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines: []OrderLineInput{
			{ArticleID: 10, Quantity: 4},
			{ArticleID: 20, Quantity: 2},
		},
	}, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, order.ID))

	require.Equal(t, 0, f.catalog.reserved(10))
	require.Equal(t, 0, f.catalog.reserved(20))

	_, err = f.svc.Get(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, f.svc.Delete(ctx, order.ID), shared.ErrNotFound)
}

func TestUpdateStatusEnumOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, "shipped")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, order.ID, "teleported")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListUnconfirmedFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	other, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, other.ID)
	require.NoError(t, err)

	status := "unconfirmed"
	items, total, err := f.svc.List(ctx, ListOrdersRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, draft.ID, items[0].ID)

	status = "confirmed"
	items, total, err = f.svc.List(ctx, ListOrdersRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, other.ID, items[0].ID)
}

func TestGetDetailJoinsClient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	detail, err := f.svc.GetDetail(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Client)
	require.Equal(t, "contact@dupont.fr", detail.Client.Email)
}
