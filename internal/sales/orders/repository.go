package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fournitex/fournitex/internal/platform/db"
	"github.com/fournitex/fournitex/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	Create(ctx context.Context, order Order) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	ReplaceLines(ctx context.Context, orderID int64, lines []OrderLine) error
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status OrderStatus, confirmedAt *time.Time) error
	InsertConfirmation(ctx context.Context, lineID int64, quantity int, at time.Time) error
	GenerateNumber(ctx context.Context) (string, error)

	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if r.pool == nil {
		// Already inside a transaction; reuse it.
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx})
	})
}

const orderColumns = `id, order_no, client_id, client_name, status, order_type,
	requested_delivery_date, confirmed_at, notes, tax_rate,
	pre_tax_total, tax_amount, total, created_at, updated_at`

const orderColumnsAliased = `o.id, o.order_no, o.client_id, o.client_name, o.status, o.order_type,
	o.requested_delivery_date, o.confirmed_at, o.notes, o.tax_rate,
	o.pre_tax_total, o.tax_amount, o.total, o.created_at, o.updated_at`

const lineColumns = `id, order_id, article_id, article_no, designation, technology,
	product_family, unit, unit_price, qty_ordered, qty_to_ship, qty_shipped, qty_in_preparation`

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns), id)
	order, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) loadLines(ctx context.Context, order *Order) error {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM order_lines WHERE order_id = $1 ORDER BY id
	`, lineColumns), order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	lineIndex := make(map[int64]int)
	for rows.Next() {
		line, err := scanLineRow(rows)
		if err != nil {
			return err
		}
		lineIndex[line.ID] = len(order.Lines)
		order.Lines = append(order.Lines, *line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		order.Lines = []OrderLine{}
		return nil
	}

	confRows, err := r.db.Query(ctx, `
		SELECT c.id, c.line_id, c.quantity, c.confirmed_at
		FROM order_line_confirmations c
		JOIN order_lines l ON l.id = c.line_id
		WHERE l.order_id = $1
		ORDER BY c.id
	`, order.ID)
	if err != nil {
		return err
	}
	defer confRows.Close()

	for confRows.Next() {
		var conf LineConfirmation
		var confirmedAt pgtype.Timestamptz
		if err := confRows.Scan(&conf.ID, &conf.LineID, &conf.Quantity, &confirmedAt); err != nil {
			return err
		}
		if confirmedAt.Valid {
			conf.ConfirmedAt = confirmedAt.Time
		}
		if idx, ok := lineIndex[conf.LineID]; ok {
			order.Lines[idx].Confirmations = append(order.Lines[idx].Confirmations, conf)
		}
	}
	return confRows.Err()
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Search != nil && *req.Search != "" {
		pattern := "%" + *req.Search + "%"
		conditions = append(conditions, fmt.Sprintf(`(
			o.order_no ILIKE $%d OR o.client_name ILIKE $%d
			OR EXISTS (
				SELECT 1 FROM order_lines l
				WHERE l.order_id = o.id
				AND (l.technology ILIKE $%d OR l.product_family ILIKE $%d)
			)
		)`, argPos, argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if req.Status != nil && *req.Status != "" {
		switch *req.Status {
		case "confirmed":
			conditions = append(conditions, "o.status <> 'draft'")
		case "unconfirmed":
			conditions = append(conditions, "o.status = 'draft'")
		default:
			conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
			args = append(args, *req.Status)
			argPos++
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders o %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumnsAliased, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range items {
		if err := r.loadLines(ctx, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repository) Create(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (order_no, client_id, client_name, status, order_type,
			requested_delivery_date, notes, tax_rate, pre_tax_total, tax_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, o.Number, o.ClientID, o.ClientName, string(o.Status), string(o.OrderType),
		o.RequestedDeliveryDate, o.Notes, numeric(o.TaxRate),
		numeric(o.PreTaxTotal), numeric(o.TaxAmount), numeric(o.Total)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("order number %s: %w", o.Number, shared.ErrDuplicate)
		}
		return 0, err
	}

	if err := r.insertLines(ctx, id, o.Lines); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) insertLines(ctx context.Context, orderID int64, lines []OrderLine) error {
	for _, l := range lines {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_lines (order_id, article_id, article_no, designation, technology,
				product_family, unit, unit_price, qty_ordered, qty_to_ship, qty_shipped, qty_in_preparation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, orderID, l.ArticleID, l.ArticleNumber, l.Designation, l.Technology,
			l.ProductFamily, l.Unit, numeric(l.UnitPrice),
			l.QtyOrdered, l.QtyToShip, l.QtyShipped, l.QtyInPreparation)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// ReplaceLines drops the whole line set and writes the new one. Confirmation
// records go with their lines via ON DELETE CASCADE.
func (r *repository) ReplaceLines(ctx context.Context, orderID int64, lines []OrderLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	return r.insertLines(ctx, orderID, lines)
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE orders SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	cols := []string{
		"client_id", "client_name", "order_type", "requested_delivery_date",
		"notes", "tax_rate", "pre_tax_total", "tax_amount", "total",
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
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status OrderStatus, confirmedAt *time.Time) error {
	var tag pgconn.CommandTag
	var err error
	if confirmedAt != nil {
		tag, err = r.db.Exec(ctx, `
			UPDATE orders SET status = $2, confirmed_at = $3, updated_at = NOW() WHERE id = $1
		`, id, string(status), *confirmedAt)
	} else {
		tag, err = r.db.Exec(ctx, `
			UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
		`, id, string(status))
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) InsertConfirmation(ctx context.Context, lineID int64, quantity int, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_line_confirmations (line_id, quantity, confirmed_at)
		VALUES ($1, $2, $3)
	`, lineID, quantity, at)
	return err
}

func (r *repository) GenerateNumber(ctx context.Context) (string, error) {
	return shared.NextDocumentNumber(ctx, r.db, "order", "CMD", 4)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrderRow(row rowScanner) (*Order, error) {
	var o Order
	var taxRate, preTax, taxAmount, total pgtype.Numeric
	var deliveryDate, confirmedAt, createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.ClientName,
		(*string)(&o.Status), (*string)(&o.OrderType),
		&deliveryDate, &confirmedAt, &o.Notes, &taxRate,
		&preTax, &taxAmount, &total, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.TaxRate = numericFloat(taxRate)
	o.PreTaxTotal = numericFloat(preTax)
	o.TaxAmount = numericFloat(taxAmount)
	o.Total = numericFloat(total)
	if deliveryDate.Valid {
		t := deliveryDate.Time
		o.RequestedDeliveryDate = &t
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		o.ConfirmedAt = &t
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return &o, nil
}

func scanLineRow(row rowScanner) (*OrderLine, error) {
	var l OrderLine
	var unitPrice pgtype.Numeric

	err := row.Scan(
		&l.ID, &l.OrderID, &l.ArticleID, &l.ArticleNumber, &l.Designation,
		&l.Technology, &l.ProductFamily, &l.Unit, &unitPrice,
		&l.QtyOrdered, &l.QtyToShip, &l.QtyShipped, &l.QtyInPreparation,
	)
	if err != nil {
		return nil, err
	}
	l.UnitPrice = numericFloat(unitPrice)
	return &l, nil
}

func numeric(v float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%f", v))
	return n
}

func numericFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
