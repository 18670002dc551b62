package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/sequence"
)

// PaymentType distinguishes money received from customers and money paid to
// suppliers.
type PaymentType string

const (
	PaymentReceived PaymentType = "RECEIVED"
	PaymentMade     PaymentType = "MADE"
)

func (t PaymentType) Valid() bool {
	return t == PaymentReceived || t == PaymentMade
}

// SequenceKey is the numbering prefix of the type.
func (t PaymentType) SequenceKey() string {
	if t == PaymentMade {
		return sequence.KeyPaymentMade
	}
	return sequence.KeyPaymentReceived
}

// Control is the control account the payment settles.
func (t PaymentType) Control() accounts.ControlAccount {
	if t == PaymentMade {
		return accounts.ControlPayable
	}
	return accounts.ControlReceivable
}

// Payment model.
type Payment struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Number         string
	Type           PaymentType
	ContactID      uuid.UUID
	Date           time.Time
	BankAccountID  *uuid.UUID
	Currency       string
	ExchangeRate   decimal.Decimal
	Amount         decimal.Decimal
	BaseAmount     decimal.Decimal
	Method         string
	Reference      string
	Notes          string
	IsVoided       bool
	VoidedAt       *time.Time
	VoidedBy       *uuid.UUID
	JournalEntryID *uuid.UUID
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Allocations    []Allocation
}

// Allocated is the total already allocated to documents.
func (p Payment) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Remaining is the amount still available for allocation.
func (p Payment) Remaining() decimal.Decimal {
	return p.Amount.Sub(p.Allocated())
}

func (p Payment) allocatedTo(documentID uuid.UUID) bool {
	for _, a := range p.Allocations {
		if a.DocumentID == documentID {
			return true
		}
	}
	return false
}

// Allocation applies part of a payment to one document.
type Allocation struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	PaymentID  uuid.UUID
	DocumentID uuid.UUID
	Amount     decimal.Decimal
	BaseAmount decimal.Decimal
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

// CreatePaymentInput records a payment. A zero ExchangeRate means 1. Post
// writes the ledger entry and requires BankAccountID.
type CreatePaymentInput struct {
	TenantID      uuid.UUID   `validate:"required"`
	Type          PaymentType `validate:"required,oneof=RECEIVED MADE"`
	ContactID     uuid.UUID   `validate:"required"`
	Date          time.Time   `validate:"required"`
	BankAccountID *uuid.UUID
	Currency      string `validate:"omitempty,len=3"`
	ExchangeRate  decimal.Decimal
	Amount        decimal.Decimal
	Method        string `validate:"max=50"`
	Reference     string `validate:"max=100"`
	Notes         string
	Post          bool
	ActorID       uuid.UUID
}

// AllocationInput is one requested allocation.
type AllocationInput struct {
	DocumentID uuid.UUID `validate:"required"`
	Amount     decimal.Decimal
}

// AllocateInput applies a payment to documents of the same contact.
type AllocateInput struct {
	TenantID    uuid.UUID         `validate:"required"`
	PaymentID   uuid.UUID         `validate:"required"`
	Allocations []AllocationInput `validate:"min=1,dive"`
	ActorID     uuid.UUID
}

// VoidInput voids a payment. ReverseJournal also reverses the linked entry.
type VoidInput struct {
	TenantID       uuid.UUID `validate:"required"`
	PaymentID      uuid.UUID `validate:"required"`
	Reason         string    `validate:"required,max=500"`
	ReverseJournal bool
	ActorID        uuid.UUID
}
