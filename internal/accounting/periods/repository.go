package periods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

type Repository interface {
	Finder
	ListByYear(ctx context.Context, tenantID, fiscalYearID uuid.UUID) ([]Period, error)
	ListYears(ctx context.Context, tenantID uuid.UUID) ([]FiscalYear, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds the calendar changes that commit together with their
// audit record.
type TxRepository interface {
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Period, error)
	CreateFiscalYear(ctx context.Context, fy FiscalYear, periods []Period) error
	SetOpen(ctx context.Context, tenantID, id uuid.UUID, open bool, at time.Time) (Period, error)
	RecordAudit(ctx context.Context, log internalShared.AuditLog) error
}

// Queryer is satisfied by *pgxpool.Pool and pgx.Tx.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLFinder runs period lookups through q. With lock set, the period row is
// taken FOR SHARE so a concurrent close waits for the posting transaction.
type SQLFinder struct {
	q    Queryer
	lock bool
}

func NewSQLFinder(q Queryer, lock bool) SQLFinder {
	return SQLFinder{q: q, lock: lock}
}

const periodColumns = `id, tenant_id, fiscal_year_id, period_number, label, start_date, end_date, is_open, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	if err := row.Scan(&p.ID, &p.TenantID, &p.FiscalYearID, &p.Number, &p.Label, &p.StartDate, &p.EndDate, &p.Open, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (f SQLFinder) suffix() string {
	if f.lock {
		return ` FOR SHARE`
	}
	return ``
}

// FindByDate returns the period covering the supplied date.
func (f SQLFinder) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (Period, error) {
	return scanPeriod(f.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE tenant_id=$1 AND $2::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`+f.suffix(), tenantID, Day(date)))
}

func (f SQLFinder) Get(ctx context.Context, tenantID, id uuid.UUID) (Period, error) {
	return scanPeriod(f.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND id=$2`+f.suffix(), tenantID, id))
}

type repository struct {
	SQLFinder
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{SQLFinder: NewSQLFinder(pool, false), db: pool}
}

func (r *repository) ListByYear(ctx context.Context, tenantID, fiscalYearID uuid.UUID) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND fiscal_year_id=$2 ORDER BY period_number`, tenantID, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) ListYears(ctx context.Context, tenantID uuid.UUID) ([]FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, label, start_date, end_date, is_closed, created_at FROM fiscal_years WHERE tenant_id=$1 ORDER BY start_date`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.ID, &fy.TenantID, &fy.Label, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fy)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id))
}

// CreateFiscalYear stores the year and its periods. The tenant row is locked
// so overlapping years cannot be created concurrently.
func (r *txRepository) CreateFiscalYear(ctx context.Context, fy FiscalYear, periods []Period) error {
	tx := r.tx
	var tenant uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id=$1 FOR UPDATE`, fy.TenantID).Scan(&tenant); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFoundf("tenant %s", fy.TenantID)
		}
		return err
	}
	var overlapping int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM fiscal_years WHERE tenant_id=$1 AND start_date <= $3 AND end_date >= $2`,
		fy.TenantID, fy.StartDate, fy.EndDate).Scan(&overlapping); err != nil {
		return err
	}
	if overlapping > 0 {
		return shared.Validationf("fiscal year %s overlaps an existing fiscal year", fy.Label)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fiscal_years (id, tenant_id, label, start_date, end_date, is_closed, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		fy.ID, fy.TenantID, fy.Label, fy.StartDate, fy.EndDate, fy.IsClosed, fy.CreatedAt); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, p := range periods {
		batch.Queue(`INSERT INTO fiscal_periods (`+periodColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			p.ID, p.TenantID, p.FiscalYearID, p.Number, p.Label, p.StartDate, p.EndDate, p.Open, p.ClosedAt, p.CreatedAt, p.UpdatedAt)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) SetOpen(ctx context.Context, tenantID, id uuid.UUID, open bool, at time.Time) (Period, error) {
	var closedAt *time.Time
	if !open {
		closedAt = &at
	}
	return scanPeriod(r.tx.QueryRow(ctx, `UPDATE fiscal_periods SET is_open=$3, closed_at=$4, updated_at=$5
WHERE tenant_id=$1 AND id=$2 RETURNING `+periodColumns, tenantID, id, open, closedAt, at))
}

func (r *txRepository) RecordAudit(ctx context.Context, log internalShared.AuditLog) error {
	return internalShared.WriteAudit(ctx, r.tx, log)
}
