package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/journals"
)

// DocumentType enumerates the source documents that post to the ledger.
type DocumentType string

const (
	TypeSalesInvoice       DocumentType = "SALES_INVOICE"
	TypeSalesCreditNote    DocumentType = "SALES_CREDIT_NOTE"
	TypeSalesDebitNote     DocumentType = "SALES_DEBIT_NOTE"
	TypePurchaseInvoice    DocumentType = "PURCHASE_INVOICE"
	TypePurchaseCreditNote DocumentType = "PURCHASE_CREDIT_NOTE"
	TypePurchaseDebitNote  DocumentType = "PURCHASE_DEBIT_NOTE"
)

var prefixes = map[DocumentType]string{
	TypeSalesInvoice:       "INV",
	TypeSalesCreditNote:    "CN",
	TypeSalesDebitNote:     "DN",
	TypePurchaseInvoice:    "PINV",
	TypePurchaseCreditNote: "PCN",
	TypePurchaseDebitNote:  "PDN",
}

func (t DocumentType) Valid() bool {
	_, ok := prefixes[t]
	return ok
}

// Prefix is the numbering prefix and sequence key of the type.
func (t DocumentType) Prefix() string {
	return prefixes[t]
}

func (t DocumentType) IsCreditNote() bool {
	return t == TypeSalesCreditNote || t == TypePurchaseCreditNote
}

func (t DocumentType) IsPurchase() bool {
	return t == TypePurchaseInvoice || t == TypePurchaseCreditNote || t == TypePurchaseDebitNote
}

// Status enumerates document statuses.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusSent          Status = "SENT"
	StatusApproved      Status = "APPROVED"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusOverdue       Status = "OVERDUE"
	StatusVoid          Status = "VOID"
)

// Approvable reports whether a document in s may be approved.
func (s Status) Approvable() bool {
	return s == StatusDraft || s == StatusSent
}

// Voidable reports whether a document in s may be voided.
func (s Status) Voidable() bool {
	return s == StatusApproved || s == StatusSent || s == StatusPartiallyPaid
}

// Allocatable reports whether payments may still be allocated to a document
// in s.
func (s Status) Allocatable() bool {
	return s == StatusApproved || s == StatusPartiallyPaid
}

// Document is an invoice, credit note or debit note.
type Document struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ContactID      uuid.UUID
	Type           DocumentType
	Number         string
	IssueDate      time.Time
	Status         Status
	Currency       string
	TotalExcl      decimal.Decimal
	TotalGST       decimal.Decimal
	TotalIncl      decimal.Decimal
	JournalEntryID *uuid.UUID
	ApprovedBy     *uuid.UUID
	ApprovedAt     *time.Time
	VoidedBy       *uuid.UUID
	VoidedAt       *time.Time
	VoidReason     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []Line
}

// Line is a document line. Amounts are GST exclusive net and the tax on it.
type Line struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	LineNumber  int
	Description string
	AccountID   uuid.UUID
	Net         decimal.Decimal
	GST         decimal.Decimal
	IsVoided    bool
}

func (d Document) posting(actorID uuid.UUID) journals.InvoicePosting {
	lines := make([]journals.InvoiceLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		if l.IsVoided {
			continue
		}
		lines = append(lines, journals.InvoiceLine{AccountID: l.AccountID, Net: l.Net, GST: l.GST})
	}
	return journals.InvoicePosting{
		TenantID:       d.TenantID,
		DocumentID:     d.ID,
		DocumentType:   string(d.Type),
		DocumentNumber: d.Number,
		IssueDate:      d.IssueDate,
		TotalIncl:      d.TotalIncl,
		CreditNote:     d.Type.IsCreditNote(),
		Purchase:       d.Type.IsPurchase(),
		Lines:          lines,
		ActorID:        actorID,
	}
}

func (d Document) snapshot() map[string]any {
	out := map[string]any{
		"document_number": d.Number,
		"document_type":   string(d.Type),
		"status":          string(d.Status),
		"total_incl":      d.TotalIncl.StringFixed(4),
	}
	if d.JournalEntryID != nil {
		out["journal_entry_id"] = d.JournalEntryID.String()
	}
	return out
}

// LineInput describes a line of a new document. GSTRate is a percentage;
// nil applies the service's standard rate.
type LineInput struct {
	Description string
	AccountID   uuid.UUID `validate:"required"`
	Net         decimal.Decimal
	GSTRate     *decimal.Decimal
}

// CreateInput creates a DRAFT document.
type CreateInput struct {
	TenantID  uuid.UUID    `validate:"required"`
	ContactID uuid.UUID    `validate:"required"`
	Type      DocumentType `validate:"required"`
	IssueDate time.Time    `validate:"required"`
	Currency  string       `validate:"omitempty,len=3"`
	Lines     []LineInput  `validate:"min=1,dive"`
	ActorID   uuid.UUID
}

// VoidInput voids an approved document. A zero Date reverses on the issue
// date.
type VoidInput struct {
	TenantID   uuid.UUID `validate:"required"`
	DocumentID uuid.UUID `validate:"required"`
	Reason     string    `validate:"required,max=500"`
	Date       time.Time
	ActorID    uuid.UUID
}
