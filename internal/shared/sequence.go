package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgx needed to allocate numbers; both pools and
// transactions satisfy it, so callers can allocate inside their own tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextDocumentNumber allocates the next number for a document type within the
// current year and formats it as <prefix>-<year>-<zero-padded seq>. The
// allocation is a single upsert against doc_sequences, so two concurrent
// creations never observe the same value.
func NextDocumentNumber(ctx context.Context, q Querier, docType, prefix string, width int) (string, error) {
	year := time.Now().Year()
	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO doc_sequences (doc_type, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET last_value = doc_sequences.last_value + 1
		RETURNING last_value
	`, docType, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", docType, err)
	}
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, width, seq), nil
}
