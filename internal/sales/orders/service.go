package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fournitex/fournitex/internal/catalog/articles"
	"github.com/fournitex/fournitex/internal/sales/clients"
	"github.com/fournitex/fournitex/internal/shared"
)

// Catalog is the slice of the article service orders depend on: snapshot
// resolution plus the reservation pair.
type Catalog interface {
	Get(ctx context.Context, id int64) (*articles.Article, error)
	Reserve(ctx context.Context, id int64, quantity int) error
	Release(ctx context.Context, id int64, quantity int) error
}

// ClientDirectory resolves clients for snapshotting and read-time joins.
type ClientDirectory interface {
	Get(ctx context.Context, id int64) (*clients.Client, error)
}

// AuditPort abstracts the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort dedupes retried order creations.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "orders"

// Service owns the order lifecycle. Stock is reserved when an order is
// created and released when it is deleted or its lines are replaced; every
// multi-article operation compensates on partial failure since reservations
// are per-article, not cross-article atomic.
type Service struct {
	repo        Repository
	catalog     Catalog
	clients     ClientDirectory
	idempotency IdempotencyPort
	audit       AuditPort
}

func NewService(repo Repository, catalog Catalog, dir ClientDirectory, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, clients: dir, idempotency: idem, audit: audit}
}

// OrderDetail is an order with its client joined at read time. The client may
// be nil when it was hard-removed; the snapshotted name on the order remains.
type OrderDetail struct {
	Order
	Client *clients.Client `json:"client,omitempty"`
}

type reservation struct {
	articleID int64
	quantity  int
}

// Create builds the order aggregate: resolves the client, snapshots each
// article into a line, reserves stock per line with compensating release on
// any later failure, allocates the CMD number and persists header plus lines
// in one transaction. An optional idempotency key (UUID) rejects retries of
// the same creation.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*Order, error) {
	if idempotencyKey != "" {
		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return nil, fmt.Errorf("field Idempotency-Key: %w", shared.ErrValidation)
		}
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("idempotency key %s: %w", idempotencyKey, shared.ErrDuplicate)
			}
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
	}
	releaseKey := func() {
		if idempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
	}

	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		releaseKey()
		return nil, fmt.Errorf("get client: %w", err)
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		releaseKey()
		return nil, err
	}

	order := Order{
		ClientID:              client.ID,
		ClientName:            client.Name,
		Status:                StatusDraft,
		OrderType:             TypeShipFromStock,
		RequestedDeliveryDate: req.RequestedDeliveryDate,
		Notes:                 req.Notes,
		TaxRate:               20,
		Lines:                 lines,
	}
	if req.OrderType != "" {
		order.OrderType = OrderType(req.OrderType)
	}
	if req.TaxRate != nil {
		order.TaxRate = *req.TaxRate
	}
	totals := ComputeTotals(lines, order.TaxRate)
	order.PreTaxTotal, order.TaxAmount, order.Total = totals.PreTax, totals.Tax, totals.Total

	reserved, err := s.reserveLines(ctx, lines)
	if err != nil {
		releaseKey()
		return nil, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.GenerateNumber(ctx)
		if err != nil {
			return err
		}
		order.Number = number
		id, err = repo.Create(ctx, order)
		return err
	})
	if err != nil {
		s.releaseAll(ctx, reserved)
		releaseKey()
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "order:create",
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": order.Number, "client_id": client.ID, "lines": len(lines)},
		})
	}
	return s.repo.Get(ctx, id)
}

// Update edits a draft order. When lines are supplied the old set is released
// and the new set reserved; on reservation failure the new holds are undone
// and the old ones restored best-effort before the error is returned.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Editable() {
		return nil, fmt.Errorf("order %s is %s, only drafts can change: %w",
			existing.Number, existing.Status, shared.ErrStateConflict)
	}

	updates := make(map[string]interface{})
	if req.OrderType != nil {
		updates["order_type"] = *req.OrderType
	}
	if req.RequestedDeliveryDate != nil {
		updates["requested_delivery_date"] = *req.RequestedDeliveryDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	taxRate := existing.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
		updates["tax_rate"] = taxRate
	}

	lines := existing.Lines
	if req.Lines != nil {
		newLines, err := s.buildLines(ctx, req.Lines)
		if err != nil {
			return nil, err
		}

		oldHolds := lineReservations(existing.Lines)
		s.releaseAll(ctx, oldHolds)

		reserved, err := s.reserveLines(ctx, newLines)
		if err != nil {
			s.restoreAll(ctx, oldHolds)
			return nil, err
		}

		lines = newLines
		err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			return repo.ReplaceLines(ctx, id, lines)
		})
		if err != nil {
			s.releaseAll(ctx, reserved)
			s.restoreAll(ctx, oldHolds)
			return nil, fmt.Errorf("replace order lines: %w", err)
		}
	}

	totals := ComputeTotals(lines, taxRate)
	updates["pre_tax_total"] = totals.PreTax
	updates["tax_amount"] = totals.Tax
	updates["total"] = totals.Total

	if err := s.repo.UpdateHeader(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Confirm moves a draft to confirmed, stamps confirmed-at once and appends a
// confirmation record for every line's unconfirmed remainder. Confirming a
// non-draft order fails without touching anything.
func (s *Service) Confirm(ctx context.Context, id int64) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusDraft {
		return nil, fmt.Errorf("order %s already confirmed: %w", order.Number, shared.ErrStateConflict)
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateStatus(ctx, id, StatusConfirmed, &now); err != nil {
			return err
		}
		for _, line := range order.Lines {
			remainder := line.UnconfirmedRemainder()
			if remainder == 0 {
				continue
			}
			if err := repo.InsertConfirmation(ctx, line.ID, remainder, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "order:confirm",
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": order.Number},
		})
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an order after releasing every line's reservation. Release
// is clamped and tolerant of missing articles, so retrying a half-failed
// delete is safe.
func (s *Service) Delete(ctx context.Context, id int64) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	s.releaseAll(ctx, lineReservations(order.Lines))

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "order:delete",
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": order.Number},
		})
	}
	return nil
}

// UpdateStatus persists an externally driven stage change. Only enum
// membership is checked; the warehouse owns the ordering of later stages.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	st := OrderStatus(status)
	if !KnownStatus(st) {
		return nil, fmt.Errorf("field status: %w", shared.ErrValidation)
	}
	if err := s.repo.UpdateStatus(ctx, id, st, nil); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// GetDetail joins the live client record onto the order. A deactivated or
// missing client degrades to the snapshot instead of failing the read.
func (s *Service) GetDetail(ctx context.Context, id int64) (*OrderDetail, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &OrderDetail{Order: *order}
	if client, err := s.clients.Get(ctx, order.ClientID); err == nil {
		detail.Client = client
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) buildLines(ctx context.Context, inputs []OrderLineInput) ([]OrderLine, error) {
	lines := make([]OrderLine, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("field quantity: %w", shared.ErrValidation)
		}
		article, err := s.catalog.Get(ctx, in.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("get article %d: %w", in.ArticleID, err)
		}
		lines = append(lines, OrderLine{
			ArticleID:     article.ID,
			ArticleNumber: article.Number,
			Designation:   article.Designation,
			Technology:    article.Technology,
			ProductFamily: string(article.ProductFamily),
			Unit:          string(article.Unit),
			UnitPrice:     article.UnitPrice,
			QtyOrdered:    in.Quantity,
			QtyToShip:     in.Quantity,
		})
	}
	return lines, nil
}

// reserveLines places holds sequentially and unwinds the ones already placed
// when a later line fails, so a rejected order leaves no residue.
func (s *Service) reserveLines(ctx context.Context, lines []OrderLine) ([]reservation, error) {
	var reserved []reservation
	for _, line := range lines {
		if err := s.catalog.Reserve(ctx, line.ArticleID, line.QtyOrdered); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, fmt.Errorf("reserve article %s: %w", line.ArticleNumber, err)
		}
		reserved = append(reserved, reservation{articleID: line.ArticleID, quantity: line.QtyOrdered})
	}
	return reserved, nil
}

func (s *Service) releaseAll(ctx context.Context, holds []reservation) {
	for _, h := range holds {
		_ = s.catalog.Release(ctx, h.articleID, h.quantity)
	}
}

// restoreAll re-reserves previously released holds best-effort. Stock may
// have been taken in the meantime, in which case the hold is lost and the
// shortfall surfaces at the next edit.
func (s *Service) restoreAll(ctx context.Context, holds []reservation) {
	for _, h := range holds {
		_ = s.catalog.Reserve(ctx, h.articleID, h.quantity)
	}
}

func lineReservations(lines []OrderLine) []reservation {
	holds := make([]reservation, 0, len(lines))
	for _, l := range lines {
		holds = append(holds, reservation{articleID: l.ArticleID, quantity: l.QtyOrdered})
	}
	return holds
}
