package articles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fournitex/fournitex/internal/shared"
)

// AuditPort abstracts the audit trail written at stock mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the single source of truth for stock counts and pricing. All
// reservation math funnels through it so bookkeeping never diverges.
type Service struct {
	repo  Repository
	cache *Cache
	audit AuditPort
}

func NewService(repo Repository, cache *Cache, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit}
}

type listPayload struct {
	Items []Article `json:"items"`
	Total int       `json:"total"`
}

func (s *Service) Create(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	article := Article{
		Number:        strings.TrimSpace(req.Number),
		Designation:   strings.TrimSpace(req.Designation),
		Technology:    strings.TrimSpace(req.Technology),
		ProductFamily: ProductFamily(req.ProductFamily),
		UnitPrice:     req.UnitPrice,
		Unit:          Unit(req.Unit),
		StockOnHand:   req.StockOnHand,
		IsActive:      true,
	}
	if article.ProductFamily == "" {
		article.ProductFamily = FamilyBulk
	}
	if article.Unit == "" {
		article.Unit = UnitPiece
	}
	if err := s.validate(article); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateArticleRequest) (*Article, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Designation != nil {
		updates["designation"] = strings.TrimSpace(*req.Designation)
	}
	if req.Technology != nil {
		updates["technology"] = strings.TrimSpace(*req.Technology)
	}
	if req.ProductFamily != nil {
		if !KnownFamily(ProductFamily(*req.ProductFamily)) {
			return nil, fmt.Errorf("field product_family: %w", shared.ErrValidation)
		}
		updates["product_family"] = *req.ProductFamily
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, fmt.Errorf("field unit_price: %w", shared.ErrValidation)
		}
		updates["unit_price"] = *req.UnitPrice
	}
	if req.Unit != nil {
		if !KnownUnit(Unit(*req.Unit)) {
			return nil, fmt.Errorf("field unit: %w", shared.ErrValidation)
		}
		updates["unit"] = *req.Unit
	}
	if req.StockOnHand != nil {
		if *req.StockOnHand < existing.StockReserved {
			return nil, fmt.Errorf("field stock_on_hand: below reserved stock: %w", shared.ErrValidation)
		}
		updates["stock_on_hand"] = *req.StockOnHand
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes an article. Stock numbers are untouched so open
// orders keep their reservations.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Update(ctx, id, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate article: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Article, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListArticlesRequest) ([]Article, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}

	search := ""
	if req.Search != nil {
		search = *req.Search
	}
	key, err := s.cache.BuildKey(ctx, "catalog", "articles",
		search, strconv.FormatBool(req.IncludeInactive),
		strconv.Itoa(req.Limit), strconv.Itoa(req.Offset))
	if err != nil {
		return s.repo.List(ctx, req)
	}

	var payload listPayload
	err = s.cache.FetchJSON(ctx, key, &payload, func(ctx context.Context) (interface{}, error) {
		items, total, err := s.repo.List(ctx, req)
		if err != nil {
			return nil, err
		}
		return listPayload{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return payload.Items, payload.Total, nil
}

// Reserve places a provisional hold of quantity units on the article. Fails
// with the insufficient-stock kind when availability is exceeded; no partial
// state is left behind.
func (s *Service) Reserve(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("field quantity: %w", shared.ErrValidation)
	}
	if err := s.repo.Reserve(ctx, id, quantity); err != nil {
		return err
	}
	s.invalidate(ctx)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "stock:reserve",
			Entity:   "article",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"quantity": quantity},
		})
	}
	return nil
}

// Release returns a previously reserved quantity. Idempotent: quantities are
// clamped at zero and missing articles are ignored.
func (s *Service) Release(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	if err := s.repo.Release(ctx, id, quantity); err != nil {
		return err
	}
	s.invalidate(ctx)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "stock:release",
			Entity:   "article",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"quantity": quantity},
		})
	}
	return nil
}

func (s *Service) validate(a Article) error {
	if a.Number == "" {
		return fmt.Errorf("field number: %w", shared.ErrValidation)
	}
	if a.Designation == "" {
		return fmt.Errorf("field designation: %w", shared.ErrValidation)
	}
	if a.Technology == "" {
		return fmt.Errorf("field technology: %w", shared.ErrValidation)
	}
	if !KnownFamily(a.ProductFamily) {
		return fmt.Errorf("field product_family: %w", shared.ErrValidation)
	}
	if !KnownUnit(a.Unit) {
		return fmt.Errorf("field unit: %w", shared.ErrValidation)
	}
	if a.UnitPrice < 0 {
		return fmt.Errorf("field unit_price: %w", shared.ErrValidation)
	}
	if a.StockOnHand < 0 {
		return fmt.Errorf("field stock_on_hand: %w", shared.ErrValidation)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Bump(ctx)
}
