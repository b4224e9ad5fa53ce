package clients

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
	Get(ctx context.Context, id int64) (*Client, error)
	GetByEmail(ctx context.Context, email string) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, client Client) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	GenerateNumber(ctx context.Context) (string, error)
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

const clientColumns = `id, client_no, name, company, email, phone, fax,
	billing_street, billing_city, billing_postal_code, billing_country,
	delivery_street, delivery_city, delivery_postal_code, delivery_country,
	same_delivery_address, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM clients WHERE id = $1", clientColumns), id)
	return scanClient(row)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Client, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM clients WHERE email = $1", clientColumns), email)
	return scanClient(row)
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if !req.IncludeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(client_no ILIKE $%d OR name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d)", argPos, argPos, argPos, argPos))
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

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clients %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM clients
		%s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, clientColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *c)
	}

	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (client_no, name, company, email, phone, fax,
			billing_street, billing_city, billing_postal_code, billing_country,
			delivery_street, delivery_city, delivery_postal_code, delivery_country,
			same_delivery_address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, c.Number, c.Name, c.Company, c.Email, c.Phone, c.Fax,
		c.BillingAddress.Street, c.BillingAddress.City, c.BillingAddress.PostalCode, c.BillingAddress.Country,
		c.DeliveryAddress.Street, c.DeliveryAddress.City, c.DeliveryAddress.PostalCode, c.DeliveryAddress.Country,
		c.SameDeliveryAddress, c.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("client email %s: %w", c.Email, shared.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE clients SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	cols := []string{
		"name", "company", "email", "phone", "fax",
		"billing_street", "billing_city", "billing_postal_code", "billing_country",
		"delivery_street", "delivery_city", "delivery_postal_code", "delivery_country",
		"same_delivery_address", "is_active",
	}
	for _, col := range cols {
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
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("client email: %w", shared.ErrDuplicate)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context) (string, error) {
	return shared.NextDocumentNumber(ctx, r.db, "client", "CLI", 3)
}

func scanClient(row pgx.Row) (*Client, error) {
	c, err := scanClientRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: %w", shared.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClientRow(row rowScanner) (*Client, error) {
	var c Client
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&c.ID, &c.Number, &c.Name, &c.Company, &c.Email, &c.Phone, &c.Fax,
		&c.BillingAddress.Street, &c.BillingAddress.City, &c.BillingAddress.PostalCode, &c.BillingAddress.Country,
		&c.DeliveryAddress.Street, &c.DeliveryAddress.City, &c.DeliveryAddress.PostalCode, &c.DeliveryAddress.Country,
		&c.SameDeliveryAddress, &c.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}
