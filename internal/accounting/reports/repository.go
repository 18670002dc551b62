package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

// Range bounds the entry dates included in a report. Nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// Repository reads posted ledger totals.
type Repository interface {
	AccountTotals(ctx context.Context, tenantID, accountID uuid.UUID, r Range) (debit, credit decimal.Decimal, err error)
	Balances(ctx context.Context, tenantID uuid.UUID, r Range) ([]AccountBalance, error)
	Tenants(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *repository) AccountTotals(ctx context.Context, tenantID, accountID uuid.UUID, rng Range) (decimal.Decimal, decimal.Decimal, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE tenant_id=$1 AND id=$2)`, tenantID, accountID).Scan(&exists); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, decimal.Zero, shared.ErrAccountNotFound
	}
	var debit, credit decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.tenant_id=$1 AND l.account_id=$2 AND e.is_posted
  AND ($3::date IS NULL OR e.entry_date >= $3)
  AND ($4::date IS NULL OR e.entry_date <= $4)`, tenantID, accountID, dateArg(rng.From), dateArg(rng.To)).Scan(&debit, &credit)
	return debit, credit, err
}

// Balances returns one row per active account, zero filled, plus archived
// accounts that carry postings in the range.
func (r *repository) Balances(ctx context.Context, tenantID uuid.UUID, rng Range) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT a.id, a.code, a.name, a.account_type, a.is_active,
       COALESCE(t.debit, 0), COALESCE(t.credit, 0)
FROM accounts a
LEFT JOIN (
    SELECT l.account_id, SUM(l.debit) AS debit, SUM(l.credit) AS credit
    FROM journal_lines l
    JOIN journal_entries e ON e.id = l.entry_id
    WHERE l.tenant_id=$1 AND e.is_posted
      AND ($2::date IS NULL OR e.entry_date >= $2)
      AND ($3::date IS NULL OR e.entry_date <= $3)
    GROUP BY l.account_id
) t ON t.account_id = a.id
WHERE a.tenant_id=$1 AND (a.is_active OR t.account_id IS NOT NULL)
ORDER BY a.code`, tenantID, dateArg(rng.From), dateArg(rng.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var (
			b   AccountBalance
			typ string
		)
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &typ, &b.IsActive, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		if b.Type, err = accounts.ParseAccountType(typ); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
