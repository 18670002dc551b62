package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/money"
)

// LineInput describes a proposed journal line.
type LineInput struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateEntryInput groups the fields required to post a journal entry.
type CreateEntryInput struct {
	TenantID         uuid.UUID
	Date             time.Time
	Type             EntryType
	Description      string
	Lines            []LineInput
	PeriodID         *uuid.UUID
	SourceDocumentID *uuid.UUID
	ActorID          uuid.UUID
}

// Validate runs the checks that need no storage: entry type, line count and
// balance, in that order. The first failure is returned.
func (in CreateEntryInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return shared.Validationf("tenant required")
	}
	if in.Date.IsZero() {
		return shared.Validationf("entry date required")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w %q", shared.ErrInvalidEntryType, in.Type)
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit, credit := in.totals()
	if !money.Balanced(debit, credit) {
		return fmt.Errorf("%w: debits (%s) must equal credits (%s)", shared.ErrUnbalanced, debit.StringFixed(money.Places), credit.StringFixed(money.Places))
	}
	return nil
}

func (in CreateEntryInput) totals() (debit, credit decimal.Decimal) {
	debits := make([]decimal.Decimal, 0, len(in.Lines))
	credits := make([]decimal.Decimal, 0, len(in.Lines))
	for _, l := range in.Lines {
		debits = append(debits, l.Debit)
		credits = append(credits, l.Credit)
	}
	return money.Sum(debits...), money.Sum(credits...)
}

// checkLine verifies a quantized line carries exactly one positive side.
func checkLine(l LineInput) error {
	debit, credit := money.Quantize(l.Debit), money.Quantize(l.Credit)
	switch {
	case l.AccountID == uuid.Nil:
		return fmt.Errorf("%w: account required", shared.ErrInvalidLine)
	case debit.IsNegative() || credit.IsNegative():
		return fmt.Errorf("%w: amounts cannot be negative", shared.ErrInvalidLine)
	case debit.IsZero() && credit.IsZero():
		return fmt.Errorf("%w: line must have either a debit or a credit amount", shared.ErrInvalidLine)
	case !debit.IsZero() && !credit.IsZero():
		return fmt.Errorf("%w: line cannot carry both a debit and a credit", shared.ErrInvalidLine)
	}
	return nil
}

// ReversalInput identifies the entry to reverse.
type ReversalInput struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	Date     time.Time
	Reason   string
	ActorID  uuid.UUID
}

// InvoiceLine is one non-voided line of a source document.
type InvoiceLine struct {
	AccountID uuid.UUID
	Net       decimal.Decimal
	GST       decimal.Decimal
}

// InvoicePosting carries the parts of an approved document the ledger needs.
// Purchase documents post against payables and GST input tax.
type InvoicePosting struct {
	TenantID       uuid.UUID
	DocumentID     uuid.UUID
	DocumentType   string
	DocumentNumber string
	IssueDate      time.Time
	TotalIncl      decimal.Decimal
	CreditNote     bool
	Purchase       bool
	Lines          []InvoiceLine
	ActorID        uuid.UUID
}

// ListFilter narrows List results. Zero values are ignored.
type ListFilter struct {
	Type             EntryType
	PeriodID         *uuid.UUID
	AccountID        *uuid.UUID
	From             *time.Time
	To               *time.Time
	SourceDocumentID *uuid.UUID
	Limit            int
}
