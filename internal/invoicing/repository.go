package invoicing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/sequence"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

// ErrDocumentNotFound indicates a missing or cross-tenant document.
var ErrDocumentNotFound = shared.NotFoundf("document")

// Repository defines document data access.
type Repository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (Document, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository extends the journal transaction with document rows so a
// status change commits together with the entry it posts or reverses.
type TxRepository interface {
	journals.TxRepository
	NextDocumentNumber(ctx context.Context, tenantID uuid.UUID, key string) (int64, error)
	InsertDocument(ctx context.Context, doc Document) error
	// GetDocumentForUpdate locks the document row for the rest of the
	// transaction.
	GetDocumentForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Document, error)
	UpdateDocument(ctx context.Context, doc Document) error
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
		return fn(ctx, NewTxRepository(tx))
	})
}

func (r *pgRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (Document, error) {
	return getDocument(ctx, r.pool, tenantID, id, "")
}

type pgTxRepository struct {
	journals.TxRepository
	tx pgx.Tx
}

// NewTxRepository wraps tx. Banking builds on it for allocation status
// updates.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &pgTxRepository{TxRepository: journals.NewTxRepository(tx), tx: tx}
}

func (t *pgTxRepository) NextDocumentNumber(ctx context.Context, tenantID uuid.UUID, key string) (int64, error) {
	return sequence.Next(ctx, t.tx, tenantID, key)
}

func (t *pgTxRepository) GetDocumentForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Document, error) {
	return getDocument(ctx, t.tx, tenantID, id, " FOR UPDATE")
}

func (t *pgTxRepository) InsertDocument(ctx context.Context, doc Document) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO invoice_documents (id, tenant_id, contact_id, document_type, document_number, issue_date, status,
currency, total_excl, total_gst, total_incl, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		doc.ID, doc.TenantID, doc.ContactID, string(doc.Type), doc.Number, doc.IssueDate, string(doc.Status),
		doc.Currency, doc.TotalExcl, doc.TotalGST, doc.TotalIncl, doc.CreatedAt)
	for _, l := range doc.Lines {
		batch.Queue(`INSERT INTO invoice_lines (id, document_id, line_number, description, account_id, net_amount, gst_amount, is_voided)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, l.ID, doc.ID, l.LineNumber, l.Description, l.AccountID, l.Net, l.GST, l.IsVoided)
	}
	return db.MapError(t.tx.SendBatch(ctx, batch).Close())
}

func (t *pgTxRepository) UpdateDocument(ctx context.Context, doc Document) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoice_documents
SET status = $3, journal_entry_id = $4, approved_by = $5, approved_at = $6, voided_by = $7, voided_at = $8,
    void_reason = $9, updated_at = $10
WHERE tenant_id = $1 AND id = $2`,
		doc.TenantID, doc.ID, string(doc.Status), doc.JournalEntryID, doc.ApprovedBy, doc.ApprovedAt,
		doc.VoidedBy, doc.VoidedAt, doc.VoidReason, doc.UpdatedAt)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

const documentColumns = `id, tenant_id, contact_id, document_type, document_number, issue_date, status, currency,
total_excl, total_gst, total_incl, journal_entry_id, approved_by, approved_at, voided_by, voided_at, void_reason,
created_at, updated_at`

func getDocument(ctx context.Context, q db.DBTX, tenantID, id uuid.UUID, suffix string) (Document, error) {
	var (
		d           Document
		typ, status string
	)
	err := q.QueryRow(ctx, `SELECT `+documentColumns+` FROM invoice_documents WHERE tenant_id = $1 AND id = $2`+suffix,
		tenantID, id).Scan(&d.ID, &d.TenantID, &d.ContactID, &typ, &d.Number, &d.IssueDate, &status, &d.Currency,
		&d.TotalExcl, &d.TotalGST, &d.TotalIncl, &d.JournalEntryID, &d.ApprovedBy, &d.ApprovedAt, &d.VoidedBy,
		&d.VoidedAt, &d.VoidReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	d.Type = DocumentType(typ)
	d.Status = Status(status)
	rows, err := q.Query(ctx, `SELECT id, document_id, line_number, description, account_id, net_amount, gst_amount, is_voided
FROM invoice_lines WHERE document_id = $1 ORDER BY line_number`, d.ID)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.LineNumber, &l.Description, &l.AccountID, &l.Net, &l.GST, &l.IsVoided); err != nil {
			return Document{}, err
		}
		d.Lines = append(d.Lines, l)
	}
	return d, rows.Err()
}
