// Package banking records payments and keeps their allocations to documents
// consistent with the documents' statuses.
package banking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/sequence"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/invoicing"
	"github.com/nordeim/ledgersg/internal/money"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// Ledger posts and reverses payment entries inside the payment transaction.
// *journals.Service satisfies it.
type Ledger interface {
	CreateEntryTx(ctx context.Context, tx journals.TxRepository, in journals.CreateEntryInput) (journals.JournalEntry, error)
	CreateReversalTx(ctx context.Context, tx journals.TxRepository, in journals.ReversalInput) (journals.JournalEntry, error)
}

type Service struct {
	repo     Repository
	ledger   Ledger
	controls journals.ControlResolver
	currency string
	now      func() time.Time
}

func NewService(repo Repository, ledger Ledger, controls journals.ControlResolver) *Service {
	return &Service{repo: repo, ledger: ledger, controls: controls, currency: "SGD", now: time.Now}
}

// WithCurrency sets the currency of payments recorded without one.
func (s *Service) WithCurrency(code string) {
	if code != "" {
		s.currency = code
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Payment, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// CreatePayment records a payment and, when requested, posts it: received
// payments debit the bank and credit receivables, payments made debit
// payables and credit the bank.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	if !in.Amount.IsPositive() {
		return Payment{}, shared.Validationf("payment amount must be positive")
	}
	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if rate.IsNegative() {
		return Payment{}, shared.Validationf("exchange rate must be positive")
	}
	if in.Post && (in.BankAccountID == nil || *in.BankAccountID == uuid.Nil) {
		return Payment{}, shared.Validationf("bank account required to post a payment")
	}
	now := s.now()
	amount := money.Quantize(in.Amount)
	p := Payment{
		ID:            uuid.New(),
		TenantID:      in.TenantID,
		Type:          in.Type,
		ContactID:     in.ContactID,
		Date:          periods.Day(in.Date),
		BankAccountID: in.BankAccountID,
		Currency:      strings.ToUpper(in.Currency),
		ExchangeRate:  rate,
		Amount:        amount,
		BaseAmount:    money.Quantize(amount.Mul(rate)),
		Method:        in.Method,
		Reference:     in.Reference,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedBy:     in.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Currency == "" {
		p.Currency = s.currency
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextDocumentNumber(ctx, p.TenantID, p.Type.SequenceKey())
		if err != nil {
			return err
		}
		p.Number = sequence.Format(p.Type.SequenceKey(), n)
		if in.Post {
			entry, err := s.post(ctx, tx, p)
			if err != nil {
				return err
			}
			p.JournalEntryID = &entry.ID
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			TenantID: p.TenantID,
			ActorID:  in.ActorID,
			Action:   "payment.create",
			Entity:   "payment",
			EntityID: p.ID.String(),
			After:    snapshot(p),
			At:       now,
		})
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (s *Service) post(ctx context.Context, tx TxRepository, p Payment) (journals.JournalEntry, error) {
	if s.controls == nil {
		return journals.JournalEntry{}, errors.New("banking: control account resolver not configured")
	}
	control, err := s.controls.ResolveControl(ctx, p.TenantID, p.Type.Control())
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var (
		description string
		lines       []journals.LineInput
	)
	if p.Type == PaymentMade {
		description = "Payment made: " + p.Number
		lines = []journals.LineInput{
			{AccountID: control.ID, Description: "Payment to contact", Debit: p.BaseAmount},
			{AccountID: *p.BankAccountID, Description: description, Credit: p.BaseAmount},
		}
	} else {
		description = "Payment received: " + p.Number
		lines = []journals.LineInput{
			{AccountID: *p.BankAccountID, Description: description, Debit: p.BaseAmount},
			{AccountID: control.ID, Description: "Payment from contact", Credit: p.BaseAmount},
		}
	}
	source := p.ID
	return s.ledger.CreateEntryTx(ctx, tx, journals.CreateEntryInput{
		TenantID:         p.TenantID,
		Date:             p.Date,
		Type:             journals.EntryPayment,
		Description:      description,
		Lines:            lines,
		SourceDocumentID: &source,
		ActorID:          p.CreatedBy,
	})
}

// requestedTotal checks each requested line and sums them.
func requestedTotal(lines []AllocationInput) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(lines))
	for idx, a := range lines {
		if !a.Amount.IsPositive() {
			return decimal.Zero, fmt.Errorf("allocation %d: %w", idx, shared.Validationf("amount must be positive"))
		}
		if seen[a.DocumentID] {
			return decimal.Zero, shared.Duplicatef("document %s appears twice in the request", a.DocumentID)
		}
		seen[a.DocumentID] = true
		total = total.Add(money.Quantize(a.Amount))
	}
	return total, nil
}

// Allocate applies a payment to approved documents of the payment's contact
// and rolls each document forward to PARTIALLY_PAID or PAID.
func (s *Service) Allocate(ctx context.Context, in AllocateInput) (Payment, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	var p Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		p, err = tx.GetPaymentForUpdate(ctx, in.TenantID, in.PaymentID)
		if err != nil {
			return err
		}
		if p.IsVoided {
			return shared.Validationf("cannot allocate voided payment %s", p.Number)
		}
		proposed, err := requestedTotal(in.Allocations)
		if err != nil {
			return err
		}
		already := p.Allocated()
		if already.Add(proposed).GreaterThan(p.Amount) {
			return &AllocationCapError{Requested: already.Add(proposed), Amount: p.Amount, Remaining: p.Amount.Sub(already)}
		}
		now := s.now()
		applied := make([]map[string]any, 0, len(in.Allocations))
		for _, a := range in.Allocations {
			amount := money.Quantize(a.Amount)
			doc, err := tx.GetDocumentForUpdate(ctx, in.TenantID, a.DocumentID)
			if err != nil {
				return err
			}
			if err := checkDocument(p, doc); err != nil {
				return err
			}
			paid, err := tx.DocumentAllocated(ctx, in.TenantID, doc.ID)
			if err != nil {
				return err
			}
			if outstanding := doc.TotalIncl.Sub(paid); amount.GreaterThan(outstanding) {
				return shared.Validationf("allocation of %s exceeds %s outstanding on %s",
					amount.StringFixed(2), outstanding.StringFixed(2), doc.Number)
			}
			alloc := Allocation{
				ID:         uuid.New(),
				TenantID:   in.TenantID,
				PaymentID:  p.ID,
				DocumentID: doc.ID,
				Amount:     amount,
				BaseAmount: money.Quantize(amount.Mul(p.ExchangeRate)),
				CreatedBy:  in.ActorID,
				CreatedAt:  now,
			}
			if err := tx.InsertAllocation(ctx, alloc); err != nil {
				return err
			}
			p.Allocations = append(p.Allocations, alloc)
			if err := rollForward(ctx, tx, doc, paid.Add(amount), now); err != nil {
				return err
			}
			applied = append(applied, map[string]any{"document_id": doc.ID.String(), "amount": amount.StringFixed(money.Places)})
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "payment.allocate",
			Entity:   "payment",
			EntityID: p.ID.String(),
			Before:   map[string]any{"allocated": already.StringFixed(money.Places)},
			After:    map[string]any{"allocated": p.Allocated().StringFixed(money.Places), "allocations": applied},
			At:       now,
		})
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func checkDocument(p Payment, doc invoicing.Document) error {
	switch {
	case doc.ContactID != p.ContactID:
		return shared.Validationf("document %s contact does not match payment contact", doc.Number)
	case !doc.Status.Allocatable():
		return shared.Validationf("document %s must be APPROVED for allocation, is %s", doc.Number, doc.Status)
	case doc.Type.IsPurchase() != (p.Type == PaymentMade):
		return shared.Validationf("%s payment %s cannot settle %s %s", p.Type, p.Number, doc.Type, doc.Number)
	case p.allocatedTo(doc.ID):
		return shared.Duplicatef("payment %s is already allocated to %s", p.Number, doc.Number)
	}
	return nil
}

// rollForward sets the status implied by paid. Documents outside the payable
// statuses are left alone.
func rollForward(ctx context.Context, tx TxRepository, doc invoicing.Document, paid decimal.Decimal, now time.Time) error {
	switch doc.Status {
	case invoicing.StatusApproved, invoicing.StatusPartiallyPaid, invoicing.StatusPaid:
	default:
		return nil
	}
	status := invoicing.StatusApproved
	switch {
	case paid.GreaterThanOrEqual(doc.TotalIncl):
		status = invoicing.StatusPaid
	case paid.IsPositive():
		status = invoicing.StatusPartiallyPaid
	}
	if status == doc.Status {
		return nil
	}
	doc.Status = status
	doc.UpdatedAt = now
	return tx.UpdateDocument(ctx, doc)
}

// VoidPayment marks a payment voided and recomputes the status of every
// document it was allocated to. When the payment was posted its period must
// still be open; ReverseJournal additionally reverses the posted entry on
// the payment date.
func (s *Service) VoidPayment(ctx context.Context, in VoidInput) (Payment, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	var p Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		p, err = tx.GetPaymentForUpdate(ctx, in.TenantID, in.PaymentID)
		if err != nil {
			return err
		}
		if p.IsVoided {
			return shared.Validationf("payment %s is already voided", p.Number)
		}
		if p.JournalEntryID != nil {
			if _, err := periods.NewResolver(tx.Periods()).ResolveOpen(ctx, in.TenantID, p.Date); err != nil {
				return fmt.Errorf("%w: cannot void payment %s: %w", shared.ErrValidation, p.Number, err)
			}
			if in.ReverseJournal {
				if _, err := s.ledger.CreateReversalTx(ctx, tx, journals.ReversalInput{
					TenantID: in.TenantID,
					EntryID:  *p.JournalEntryID,
					Date:     p.Date,
					Reason:   "Void of " + p.Number,
					ActorID:  in.ActorID,
				}); err != nil {
					return err
				}
			}
		}
		now := s.now()
		reason := strings.TrimSpace(in.Reason)
		p.IsVoided = true
		p.VoidedAt = &now
		p.VoidedBy = &in.ActorID
		p.Notes = strings.TrimSpace(p.Notes + "\n\nVOIDED: " + reason)
		p.UpdatedAt = now
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		for _, a := range p.Allocations {
			doc, err := tx.GetDocumentForUpdate(ctx, in.TenantID, a.DocumentID)
			if err != nil {
				return err
			}
			paid, err := tx.DocumentAllocated(ctx, in.TenantID, doc.ID)
			if err != nil {
				return err
			}
			if err := rollForward(ctx, tx, doc, paid, now); err != nil {
				return err
			}
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "payment.void",
			Entity:   "payment",
			EntityID: p.ID.String(),
			Before:   map[string]any{"is_voided": false},
			After:    map[string]any{"is_voided": true, "reason": reason, "reversed": in.ReverseJournal && p.JournalEntryID != nil},
			At:       now,
		})
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func snapshot(p Payment) map[string]any {
	out := map[string]any{
		"payment_number": p.Number,
		"payment_type":   string(p.Type),
		"payment_date":   p.Date.Format("2006-01-02"),
		"amount":         p.Amount.StringFixed(money.Places),
		"base_amount":    p.BaseAmount.StringFixed(money.Places),
		"exchange_rate":  p.ExchangeRate.String(),
	}
	if p.JournalEntryID != nil {
		out["journal_entry_id"] = p.JournalEntryID.String()
	}
	return out
}
