// Package sequence allocates per-tenant document numbers.
package sequence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sequence keys.
const (
	KeyJournal         = "JE"
	KeyPaymentReceived = "RCP"
	KeyPaymentMade     = "PAY"
)

// Queryer is satisfied by pgx.Tx. Next must run inside the caller's
// transaction so a rolled back document also releases the counter row lock.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next increments and returns the tenant counter for key. The upsert takes a
// row lock, so concurrent callers on one tenant serialise while other tenants
// proceed. The increment rolls back with the caller's transaction, so a
// number is only spent once the document that took it commits.
func Next(ctx context.Context, q Queryer, tenantID uuid.UUID, key string) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (tenant_id, key, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, key)
		DO UPDATE SET last_number = document_sequences.last_number + 1, updated_at = NOW()
		RETURNING last_number
	`, tenantID, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("allocate %s number: %w", key, err)
	}
	return n, nil
}

// Format renders n with prefix and five digit zero padding, e.g. JE-00042.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}
