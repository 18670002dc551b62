package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/sequence"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (JournalEntry, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a posting
// transaction. Banking and invoicing extend it so their document updates
// commit together with the entries they post.
type TxRepository interface {
	// Periods returns a finder that takes period rows FOR SHARE.
	Periods() periods.Finder
	NextNumber(ctx context.Context, tenantID uuid.UUID) (int64, error)
	GetAccount(ctx context.Context, tenantID, id uuid.UUID) (accounts.Account, error)
	InsertEntry(ctx context.Context, entry JournalEntry) error
	GetEntryForUpdate(ctx context.Context, tenantID, id uuid.UUID) (JournalEntry, error)
	SetReversedBy(ctx context.Context, tenantID, id, reversalID uuid.UUID) error
	RecordAudit(ctx context.Context, log internalShared.AuditLog) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const entryColumns = `id, tenant_id, entry_number, entry_date, entry_type, description, fiscal_period_id, source_document_id,
is_posted, COALESCE(posted_at, created_at), reversed_by, created_by, created_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e       JournalEntry
		typ     string
		creator *uuid.UUID
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.Number, &e.Date, &typ, &e.Description, &e.PeriodID, &e.SourceDocumentID,
		&e.IsPosted, &e.PostedAt, &e.ReversedBy, &creator, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	e.Type = EntryType(typ)
	if creator != nil {
		e.CreatedBy = *creator
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		return JournalEntry{}, err
	}
	if err := attachLines(ctx, r.pool, []*JournalEntry{&entry}); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// List returns entries ordered by date then number, newest first.
func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]JournalEntry, error) {
	var sb strings.Builder
	args := []any{tenantID}
	sb.WriteString(`SELECT ` + entryColumns + ` FROM journal_entries WHERE tenant_id=$1`)
	add := func(clause string, v any) {
		args = append(args, v)
		sb.WriteString(fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != "" {
		add(` AND entry_type=$%d`, string(filter.Type))
	}
	if filter.PeriodID != nil {
		add(` AND fiscal_period_id=$%d`, *filter.PeriodID)
	}
	if filter.From != nil {
		add(` AND entry_date >= $%d`, periods.Day(*filter.From))
	}
	if filter.To != nil {
		add(` AND entry_date <= $%d`, periods.Day(*filter.To))
	}
	if filter.SourceDocumentID != nil {
		add(` AND source_document_id=$%d`, *filter.SourceDocumentID)
	}
	if filter.AccountID != nil {
		add(` AND id IN (SELECT entry_id FROM journal_lines WHERE tenant_id=$1 AND account_id=$%d)`, *filter.AccountID)
	}
	sb.WriteString(` ORDER BY entry_date DESC, entry_number DESC`)
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
	}
	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ptrs := make([]*JournalEntry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}
	if err := attachLines(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	return entries, nil
}

func attachLines(ctx context.Context, q db.DBTX, entries []*JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(entries))
	byID := make(map[uuid.UUID]*JournalEntry, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, tenant_id, line_number, account_id, description, debit, credit
FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_number`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.TenantID, &l.LineNumber, &l.AccountID, &l.Description, &l.Debit, &l.Credit); err != nil {
			return err
		}
		if e, ok := byID[l.EntryID]; ok {
			e.Lines = append(e.Lines, l)
		}
	}
	return rows.Err()
}

type txRepository struct {
	tx       pgx.Tx
	accounts accounts.TxRepository
	finder   periods.SQLFinder
}

// NewTxRepository binds the journal operations to tx.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		tx:       tx,
		accounts: accounts.NewTxRepository(tx),
		finder:   periods.NewSQLFinder(tx, true),
	}
}

func (r *txRepository) Periods() periods.Finder {
	return r.finder
}

func (r *txRepository) NextNumber(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return sequence.Next(ctx, r.tx, tenantID, sequence.KeyJournal)
}

// GetAccount takes the account row FOR SHARE so an archive cannot commit
// underneath the posting.
func (r *txRepository) GetAccount(ctx context.Context, tenantID, id uuid.UUID) (accounts.Account, error) {
	return r.accounts.GetForShare(ctx, tenantID, id)
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) error {
	var creator *uuid.UUID
	if e.CreatedBy != uuid.Nil {
		creator = &e.CreatedBy
	}
	if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, tenant_id, entry_number, entry_date, entry_type, description,
fiscal_period_id, source_document_id, is_posted, posted_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.TenantID, e.Number, e.Date, string(e.Type), e.Description,
		e.PeriodID, e.SourceDocumentID, e.IsPosted, e.PostedAt, creator, e.CreatedAt); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, l := range e.Lines {
		batch.Queue(`INSERT INTO journal_lines (id, entry_id, tenant_id, line_number, account_id, description, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, l.ID, l.EntryID, l.TenantID, l.LineNumber, l.AccountID, l.Description, l.Debit, l.Credit)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, tenantID, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id))
	if err != nil {
		return JournalEntry{}, err
	}
	if err := attachLines(ctx, r.tx, []*JournalEntry{&entry}); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) SetReversedBy(ctx context.Context, tenantID, id, reversalID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET reversed_by=$3 WHERE tenant_id=$1 AND id=$2 AND reversed_by IS NULL`, tenantID, id, reversalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyReversed
	}
	return nil
}

func (r *txRepository) RecordAudit(ctx context.Context, log internalShared.AuditLog) error {
	return internalShared.WriteAudit(ctx, r.tx, log)
}
