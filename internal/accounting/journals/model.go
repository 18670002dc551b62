package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/sequence"
	"github.com/nordeim/ledgersg/internal/money"
)

// EntryType classifies the business event behind a journal entry.
type EntryType string

const (
	EntryManual     EntryType = "MANUAL"
	EntryInvoice    EntryType = "INVOICE"
	EntryCreditNote EntryType = "CREDIT_NOTE"
	EntryPayment    EntryType = "PAYMENT"
	EntryAdjustment EntryType = "ADJUSTMENT"
	EntryReversal   EntryType = "REVERSAL"
	EntryOpening    EntryType = "OPENING"
	EntryClosing    EntryType = "CLOSING"
)

var entryTypes = []EntryType{
	EntryManual, EntryInvoice, EntryCreditNote, EntryPayment,
	EntryAdjustment, EntryReversal, EntryOpening, EntryClosing,
}

// EntryTypes lists the recognised entry types.
func EntryTypes() []EntryType {
	return append([]EntryType(nil), entryTypes...)
}

// Valid reports whether t is a recognised entry type.
func (t EntryType) Valid() bool {
	for _, known := range entryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// JournalEntry is a posted, immutable ledger record.
type JournalEntry struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Number           int64
	Date             time.Time
	Type             EntryType
	Description      string
	PeriodID         uuid.UUID
	SourceDocumentID *uuid.UUID
	IsPosted         bool
	PostedAt         time.Time
	ReversedBy       *uuid.UUID
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
	Lines            []JournalLine
}

// DisplayNumber renders the entry number, e.g. JE-00042.
func (e JournalEntry) DisplayNumber() string {
	return sequence.Format(sequence.KeyJournal, e.Number)
}

// IsReversed reports whether a reversal has been posted for the entry.
func (e JournalEntry) IsReversed() bool {
	return e.ReversedBy != nil
}

// Totals sums the debit and credit columns.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debits := make([]decimal.Decimal, 0, len(e.Lines))
	credits := make([]decimal.Decimal, 0, len(e.Lines))
	for _, l := range e.Lines {
		debits = append(debits, l.Debit)
		credits = append(credits, l.Credit)
	}
	return money.Sum(debits...), money.Sum(credits...)
}

// JournalLine stores a debit or a credit against one account.
type JournalLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	TenantID    uuid.UUID
	LineNumber  int
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}
