// Package invoicing gates the ledger effect of source documents: approving a
// document posts its journal entry and voiding it posts the reversal, each
// under a row lock on the document.
package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/sequence"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/money"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// Ledger posts and reverses entries inside a document transaction.
// *journals.Service satisfies it.
type Ledger interface {
	PostInvoiceEntryTx(ctx context.Context, tx journals.TxRepository, in journals.InvoicePosting) (journals.JournalEntry, error)
	CreateReversalTx(ctx context.Context, tx journals.TxRepository, in journals.ReversalInput) (journals.JournalEntry, error)
}

type Service struct {
	repo     Repository
	ledger   Ledger
	gstRate  decimal.Decimal
	currency string
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger, gstRate: money.DefaultGSTRate, currency: "SGD", now: time.Now}
}

// WithGSTRate sets the standard rate applied to lines without their own.
func (s *Service) WithGSTRate(rate decimal.Decimal) {
	s.gstRate = rate
}

// WithCurrency sets the currency of documents created without one.
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

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// Create stores a DRAFT document numbered from the type's sequence.
func (s *Service) Create(ctx context.Context, in CreateInput) (Document, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Document{}, err
	}
	if !in.Type.Valid() {
		return Document{}, shared.Validationf("unknown document type %q", in.Type)
	}
	now := s.now()
	doc := Document{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		ContactID: in.ContactID,
		Type:      in.Type,
		IssueDate: periods.Day(in.IssueDate),
		Status:    StatusDraft,
		Currency:  strings.ToUpper(in.Currency),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Currency == "" {
		doc.Currency = s.currency
	}
	for idx, l := range in.Lines {
		rate := s.gstRate
		if l.GSTRate != nil {
			rate = *l.GSTRate
		}
		if l.Net.IsNegative() || rate.IsNegative() {
			return Document{}, shared.LineError(idx, shared.Validationf("net amount and GST rate must not be negative"))
		}
		net := money.Quantize(l.Net)
		gst := money.GST(net, rate)
		doc.Lines = append(doc.Lines, Line{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			LineNumber:  idx + 1,
			Description: strings.TrimSpace(l.Description),
			AccountID:   l.AccountID,
			Net:         net,
			GST:         gst,
		})
		doc.TotalExcl = doc.TotalExcl.Add(net)
		doc.TotalGST = doc.TotalGST.Add(gst)
	}
	doc.TotalIncl = doc.TotalExcl.Add(doc.TotalGST)
	if !doc.TotalIncl.IsPositive() {
		return Document{}, shared.Validationf("document total must be positive")
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextDocumentNumber(ctx, in.TenantID, in.Type.Prefix())
		if err != nil {
			return err
		}
		doc.Number = sequence.Format(in.Type.Prefix(), n)
		if err := tx.InsertDocument(ctx, doc); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.audit(doc, in.ActorID, "document.create", nil))
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Approve locks the document, checks that its issue date falls in an open
// period, posts its journal entry and marks it APPROVED.
func (s *Service) Approve(ctx context.Context, tenantID, documentID, actorID uuid.UUID) (Document, error) {
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, tenantID, documentID)
		if err != nil {
			return err
		}
		if !doc.Status.Approvable() {
			return shared.Validationf("cannot approve %s in status %s", doc.Number, doc.Status)
		}
		if _, err := periods.NewResolver(tx.Periods()).ResolveOpen(ctx, tenantID, doc.IssueDate); err != nil {
			return fmt.Errorf("approve %s: %w", doc.Number, err)
		}
		before := doc.snapshot()
		entry, err := s.ledger.PostInvoiceEntryTx(ctx, tx, doc.posting(actorID))
		if err != nil {
			return err
		}
		now := s.now()
		doc.Status = StatusApproved
		doc.ApprovedBy = &actorID
		doc.ApprovedAt = &now
		doc.JournalEntryID = &entry.ID
		doc.UpdatedAt = now
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.audit(doc, actorID, "document.approve", before))
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Void locks the document, requires its period to still be open, reverses
// the linked journal entry and marks it VOID.
func (s *Service) Void(ctx context.Context, in VoidInput) (Document, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, in.TenantID, in.DocumentID)
		if err != nil {
			return err
		}
		if !doc.Status.Voidable() {
			return shared.Validationf("cannot void %s in status %s", doc.Number, doc.Status)
		}
		if _, err := periods.NewResolver(tx.Periods()).ResolveOpen(ctx, in.TenantID, doc.IssueDate); err != nil {
			return fmt.Errorf("void %s: %w", doc.Number, err)
		}
		before := doc.snapshot()
		if doc.JournalEntryID != nil {
			date := in.Date
			if date.IsZero() {
				date = doc.IssueDate
			}
			if _, err := s.ledger.CreateReversalTx(ctx, tx, journals.ReversalInput{
				TenantID: in.TenantID,
				EntryID:  *doc.JournalEntryID,
				Date:     date,
				Reason:   "Void of " + doc.Number,
				ActorID:  in.ActorID,
			}); err != nil {
				return err
			}
		}
		now := s.now()
		doc.Status = StatusVoid
		doc.VoidedBy = &in.ActorID
		doc.VoidedAt = &now
		doc.VoidReason = strings.TrimSpace(in.Reason)
		doc.UpdatedAt = now
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, s.audit(doc, in.ActorID, "document.void", before))
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Service) audit(doc Document, actorID uuid.UUID, action string, before map[string]any) internalShared.AuditLog {
	log := internalShared.AuditLog{
		TenantID: doc.TenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice_document",
		EntityID: doc.ID.String(),
		After:    doc.snapshot(),
		At:       s.now(),
	}
	if before != nil {
		log.Before = before
	}
	return log
}
