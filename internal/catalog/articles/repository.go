package articles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fournitex/fournitex/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Article, error)
	GetByNumber(ctx context.Context, number string) (*Article, error)
	List(ctx context.Context, req ListArticlesRequest) ([]Article, int, error)
	Create(ctx context.Context, article Article) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Reserve(ctx context.Context, id int64, quantity int) error
	Release(ctx context.Context, id int64, quantity int) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const articleColumns = `id, article_no, designation, technology, product_family,
	unit_price, unit, stock_on_hand, stock_reserved, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Article, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM articles WHERE id = $1", articleColumns), id)
	return scanArticle(row)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Article, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM articles WHERE article_no = $1", articleColumns), number)
	return scanArticle(row)
}

func (r *repository) List(ctx context.Context, req ListArticlesRequest) ([]Article, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if !req.IncludeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(article_no ILIKE $%d OR designation ILIKE $%d OR technology ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM articles
		%s
		ORDER BY article_no
		LIMIT $%d OFFSET $%d
	`, articleColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Article
	for rows.Next() {
		a, err := scanArticleRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *a)
	}

	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, a Article) (int64, error) {
	var unitPrice pgtype.Numeric
	_ = unitPrice.Scan(fmt.Sprintf("%f", a.UnitPrice))

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO articles (article_no, designation, technology, product_family,
			unit_price, unit, stock_on_hand, stock_reserved, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, a.Number, a.Designation, a.Technology, string(a.ProductFamily),
		unitPrice, string(a.Unit), a.StockOnHand, a.StockReserved, a.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("article number %s: %w", a.Number, shared.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE articles SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"designation", "technology", "product_family", "unit_price", "unit", "stock_on_hand", "is_active"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// Reserve increments the reserved count only when enough stock is available.
// The check and the increment are one statement, so two concurrent calls can
// never both succeed on the last reservable unit.
func (r *repository) Reserve(ctx context.Context, id int64, quantity int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE articles
		SET stock_reserved = stock_reserved + $2, updated_at = NOW()
		WHERE id = $1 AND stock_on_hand - stock_reserved >= $2
	`, id, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("article %d: %w", id, shared.ErrNotFound)
		}
		return fmt.Errorf("article %d: %w", id, shared.ErrInsufficientStock)
	}
	return nil
}

// Release decrements the reserved count, floored at zero so duplicate release
// calls never drive it negative. A missing article is a no-op to keep delete
// flows idempotent.
func (r *repository) Release(ctx context.Context, id int64, quantity int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE articles
		SET stock_reserved = GREATEST(stock_reserved - $2, 0), updated_at = NOW()
		WHERE id = $1
	`, id, quantity)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row pgx.Row) (*Article, error) {
	a, err := scanArticleRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("article: %w", shared.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func scanArticleRow(row rowScanner) (*Article, error) {
	var a Article
	var unitPrice pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&a.ID, &a.Number, &a.Designation, &a.Technology, (*string)(&a.ProductFamily),
		&unitPrice, (*string)(&a.Unit), &a.StockOnHand, &a.StockReserved, &a.IsActive,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if unitPrice.Valid {
		f, _ := unitPrice.Float64Value()
		a.UnitPrice = f.Float64
	}
	if createdAt.Valid {
		a.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		a.UpdatedAt = updatedAt.Time
	}
	return &a, nil
}
