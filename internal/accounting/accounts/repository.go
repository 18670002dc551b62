package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (Account, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error)
	FirstByCodePrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (Account, error)
	FirstOfType(ctx context.Context, tenantID uuid.UUID, t AccountType) (Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds the chart changes that commit together with their
// audit record.
type TxRepository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (Account, error)
	// GetForUpdate locks the account row. Postings take it FOR SHARE through
	// GetForShare, so an archive and a posting on the same account serialize.
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Account, error)
	GetForShare(ctx context.Context, tenantID, id uuid.UUID) (Account, error)
	CountActiveChildren(ctx context.Context, tenantID, id uuid.UUID) (int, error)
	Insert(ctx context.Context, a Account) error
	UpdateDetails(ctx context.Context, a Account) error
	SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool, at time.Time) error
	RecordAudit(ctx context.Context, log internalShared.AuditLog) error
}

type queries struct {
	db db.DBTX
}

type repository struct {
	queries
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{queries: queries{db: pool}, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	queries
	tx pgx.Tx
}

// NewTxRepository binds the account operations to tx.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{queries: queries{db: tx}, tx: tx}
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id))
}

func (r *txRepository) GetForShare(ctx context.Context, tenantID, id uuid.UUID) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2 FOR SHARE`, tenantID, id))
}

func (r *txRepository) RecordAudit(ctx context.Context, log internalShared.AuditLog) error {
	return internalShared.WriteAudit(ctx, r.tx, log)
}

const accountColumns = `id, tenant_id, code, name, description, account_type, parent_id, is_system, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var typ string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Description, &typ, &a.ParentID, &a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	t, err := ParseAccountType(typ)
	if err != nil {
		return Account{}, err
	}
	a.Type = t
	return a, nil
}

func (r queries) Get(ctx context.Context, tenantID, id uuid.UUID) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id))
}

func (r queries) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND code=$2`, tenantID, code))
}

func (r queries) FirstByCodePrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE tenant_id=$1 AND is_active AND code LIKE $2 || '%' ORDER BY code LIMIT 1`, tenantID, prefix))
}

func (r queries) FirstOfType(ctx context.Context, tenantID uuid.UUID, t AccountType) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE tenant_id=$1 AND is_active AND account_type=$2 ORDER BY code LIMIT 1`, tenantID, t.String()))
}

func (r queries) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Account, error) {
	var sb strings.Builder
	args := []any{tenantID}
	sb.WriteString(`SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1`)
	if !filter.IncludeArchived {
		sb.WriteString(` AND is_active`)
	}
	if filter.Type.Valid() {
		args = append(args, filter.Type.String())
		sb.WriteString(fmt.Sprintf(` AND account_type=$%d`, len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		sb.WriteString(fmt.Sprintf(` AND (code ILIKE $%[1]d OR name ILIKE $%[1]d)`, len(args)))
	}
	sb.WriteString(` ORDER BY code`)
	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r queries) CountActiveChildren(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE tenant_id=$1 AND parent_id=$2 AND is_active`, tenantID, id).Scan(&n)
	return n, err
}

func (r queries) Insert(ctx context.Context, a Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.TenantID, a.Code, a.Name, a.Description, a.Type.String(), a.ParentID, a.IsSystem, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err, "uq_accounts_tenant_code") {
		return shared.Duplicatef("account with code %q already exists", a.Code)
	}
	return err
}

func (r queries) UpdateDetails(ctx context.Context, a Account) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET name=$3, description=$4, updated_at=$5 WHERE tenant_id=$1 AND id=$2`,
		a.TenantID, a.ID, a.Name, a.Description, a.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r queries) SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$3, updated_at=$4 WHERE tenant_id=$1 AND id=$2`, tenantID, id, active, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
