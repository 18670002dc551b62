package banking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/invoicing"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

// ErrPaymentNotFound indicates a missing or cross-tenant payment.
var ErrPaymentNotFound = shared.NotFoundf("payment")

// Repository defines banking data access.
type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (Payment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository adds payments to the document transaction.
type TxRepository interface {
	invoicing.TxRepository
	InsertPayment(ctx context.Context, p Payment) error
	// GetPaymentForUpdate locks the payment row and loads its allocations.
	GetPaymentForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) error
	InsertAllocation(ctx context.Context, a Allocation) error
	// DocumentAllocated sums allocations to the document from payments that
	// are not voided.
	DocumentAllocated(ctx context.Context, tenantID, documentID uuid.UUID) (decimal.Decimal, error)
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{TxRepository: invoicing.NewTxRepository(tx), tx: tx})
	})
}

func (r *pgRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (Payment, error) {
	return getPayment(ctx, r.pool, tenantID, id, "")
}

type pgTxRepository struct {
	invoicing.TxRepository
	tx pgx.Tx
}

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) error {
	var creator *uuid.UUID
	if p.CreatedBy != uuid.Nil {
		creator = &p.CreatedBy
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO payments (id, tenant_id, payment_number, payment_type, contact_id, payment_date,
bank_account_id, currency, exchange_rate, amount, base_amount, payment_method, reference, notes, journal_entry_id,
created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)`,
		p.ID, p.TenantID, p.Number, string(p.Type), p.ContactID, p.Date, p.BankAccountID, p.Currency, p.ExchangeRate,
		p.Amount, p.BaseAmount, p.Method, p.Reference, p.Notes, p.JournalEntryID, creator, p.CreatedAt)
	return db.MapError(err)
}

func (t *pgTxRepository) GetPaymentForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Payment, error) {
	return getPayment(ctx, t.tx, tenantID, id, " FOR UPDATE")
}

func (t *pgTxRepository) UpdatePayment(ctx context.Context, p Payment) error {
	tag, err := t.tx.Exec(ctx, `UPDATE payments
SET is_voided = $3, voided_at = $4, voided_by = $5, notes = $6, journal_entry_id = $7, updated_at = $8
WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.IsVoided, p.VoidedAt, p.VoidedBy, p.Notes, p.JournalEntryID, p.UpdatedAt)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (t *pgTxRepository) InsertAllocation(ctx context.Context, a Allocation) error {
	var creator *uuid.UUID
	if a.CreatedBy != uuid.Nil {
		creator = &a.CreatedBy
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO payment_allocations (id, tenant_id, payment_id, document_id, allocated_amount,
base_allocated_amount, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, a.PaymentID, a.DocumentID, a.Amount, a.BaseAmount, creator, a.CreatedAt)
	return db.MapError(err)
}

func (t *pgTxRepository) DocumentAllocated(ctx context.Context, tenantID, documentID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(a.allocated_amount), 0)
FROM payment_allocations a
JOIN payments p ON p.id = a.payment_id
WHERE a.tenant_id = $1 AND a.document_id = $2 AND NOT p.is_voided`, tenantID, documentID).Scan(&total)
	return total, err
}

const paymentColumns = `id, tenant_id, payment_number, payment_type, contact_id, payment_date, bank_account_id, currency,
exchange_rate, amount, base_amount, payment_method, reference, notes, is_voided, voided_at, voided_by, journal_entry_id,
created_by, created_at, updated_at`

func getPayment(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, suffix string) (Payment, error) {
	var (
		p       Payment
		typ     string
		creator *uuid.UUID
	)
	err := q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tenant_id = $1 AND id = $2`+suffix, tenantID, id).
		Scan(&p.ID, &p.TenantID, &p.Number, &typ, &p.ContactID, &p.Date, &p.BankAccountID, &p.Currency, &p.ExchangeRate,
			&p.Amount, &p.BaseAmount, &p.Method, &p.Reference, &p.Notes, &p.IsVoided, &p.VoidedAt, &p.VoidedBy,
			&p.JournalEntryID, &creator, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	p.Type = PaymentType(typ)
	if creator != nil {
		p.CreatedBy = *creator
	}
	rows, err := q.Query(ctx, `SELECT id, tenant_id, payment_id, document_id, allocated_amount, base_allocated_amount,
created_by, created_at
FROM payment_allocations WHERE payment_id = $1 ORDER BY created_at, id`, p.ID)
	if err != nil {
		return Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		var by *uuid.UUID
		if err := rows.Scan(&a.ID, &a.TenantID, &a.PaymentID, &a.DocumentID, &a.Amount, &a.BaseAmount, &by, &a.CreatedAt); err != nil {
			return Payment{}, err
		}
		if by != nil {
			a.CreatedBy = *by
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}
