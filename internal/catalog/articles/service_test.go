package articles

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fournitex/fournitex/internal/shared"
)

type memoryRepo struct {
	items  map[int64]*Article
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]*Article)}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Article, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	clone := *a
	return &clone, nil
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (*Article, error) {
	for _, a := range r.items {
		if a.Number == number {
			clone := *a
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("article %s: %w", number, shared.ErrNotFound)
}

func (r *memoryRepo) List(ctx context.Context, req ListArticlesRequest) ([]Article, int, error) {
	var out []Article
	for _, a := range r.items {
		if !req.IncludeInactive && !a.IsActive {
			continue
		}
		if req.Search != nil && *req.Search != "" {
			s := strings.ToLower(*req.Search)
			if !strings.Contains(strings.ToLower(a.Number), s) &&
				!strings.Contains(strings.ToLower(a.Designation), s) &&
				!strings.Contains(strings.ToLower(a.Technology), s) {
				continue
			}
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, a Article) (int64, error) {
	for _, existing := range r.items {
		if existing.Number == a.Number {
			return 0, fmt.Errorf("article number %s: %w", a.Number, shared.ErrDuplicate)
		}
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.items[a.ID] = &a
	return a.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	a, ok := r.items[id]
	if !ok {
		return fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	if v, ok := updates["designation"]; ok {
		a.Designation = v.(string)
	}
	if v, ok := updates["technology"]; ok {
		a.Technology = v.(string)
	}
	if v, ok := updates["product_family"]; ok {
		a.ProductFamily = ProductFamily(v.(string))
	}
	if v, ok := updates["unit_price"]; ok {
		a.UnitPrice = v.(float64)
	}
	if v, ok := updates["unit"]; ok {
		a.Unit = Unit(v.(string))
	}
	if v, ok := updates["stock_on_hand"]; ok {
		a.StockOnHand = v.(int)
	}
	if v, ok := updates["is_active"]; ok {
		a.IsActive = v.(bool)
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) Reserve(ctx context.Context, id int64, quantity int) error {
	a, ok := r.items[id]
	if !ok {
		return fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	if a.StockOnHand-a.StockReserved < quantity {
		return fmt.Errorf("article %d: %w", id, shared.ErrInsufficientStock)
	}
	a.StockReserved += quantity
	return nil
}

func (r *memoryRepo) Release(ctx context.Context, id int64, quantity int) error {
	a, ok := r.items[id]
	if !ok {
		return nil
	}
	a.StockReserved -= quantity
	if a.StockReserved < 0 {
		a.StockReserved = 0
	}
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, NewCache(nil, 0), nil)
}

func seedArticle(t *testing.T, svc *Service, number string, stock int) *Article {
	t.Helper()
	a, err := svc.Create(context.Background(), CreateArticleRequest{
		Number:      number,
		Designation: "Toner cartridge",
		Technology:  "Laser",
		UnitPrice:   12.5,
		StockOnHand: stock,
	})
	require.NoError(t, err)
	return a
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	a := seedArticle(t, svc, "ART-001", 10)
	require.Equal(t, FamilyBulk, a.ProductFamily)
	require.Equal(t, UnitPiece, a.Unit)
	require.True(t, a.IsActive)
	require.Equal(t, 10, a.AvailableStock())
}

func TestCreateRejectsUnknownFamily(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateArticleRequest{
		Number:        "ART-002",
		Designation:   "Label roll",
		Technology:    "Thermal",
		ProductFamily: "Unknown Family",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateNumber(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	seedArticle(t, svc, "ART-003", 5)
	_, err := svc.Create(context.Background(), CreateArticleRequest{
		Number:      "ART-003",
		Designation: "Other",
		Technology:  "Laser",
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestReserveNoOversell(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	a := seedArticle(t, svc, "ART-010", 10)

	require.NoError(t, svc.Reserve(ctx, a.ID, 6))

	err := svc.Reserve(ctx, a.ID, 5)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 6, got.StockReserved)
	require.Equal(t, 4, got.AvailableStock())
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	a := seedArticle(t, svc, "ART-011", 10)

	require.ErrorIs(t, svc.Reserve(context.Background(), a.ID, 0), shared.ErrValidation)
	require.ErrorIs(t, svc.Reserve(context.Background(), a.ID, -3), shared.ErrValidation)
}

func TestReleaseClampsAtZero(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	a := seedArticle(t, svc, "ART-012", 10)
	require.NoError(t, svc.Reserve(ctx, a.ID, 4))

	require.NoError(t, svc.Release(ctx, a.ID, 100))

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.StockReserved)

	// Releasing a missing article is a no-op.
	require.NoError(t, svc.Release(ctx, 9999, 3))
}

func TestUpdateStockBelowReservedRejected(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	a := seedArticle(t, svc, "ART-013", 10)
	require.NoError(t, svc.Reserve(ctx, a.ID, 7))

	lower := 5
	_, err := svc.Update(ctx, a.ID, UpdateArticleRequest{StockOnHand: &lower})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeactivateKeepsStock(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	a := seedArticle(t, svc, "ART-014", 10)
	require.NoError(t, svc.Reserve(ctx, a.ID, 3))
	require.NoError(t, svc.Deactivate(ctx, a.ID))

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.Equal(t, 3, got.StockReserved)

	items, _, err := svc.List(ctx, ListArticlesRequest{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, items)
}
