package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/money"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// ControlResolver finds the control accounts used by document postings.
type ControlResolver interface {
	ResolveControl(ctx context.Context, tenantID uuid.UUID, role accounts.ControlAccount) (accounts.Account, error)
}

type Service struct {
	repo     Repository
	controls ControlResolver
	now      func() time.Time
}

func NewService(repo Repository, controls ControlResolver) *Service {
	return &Service{repo: repo, controls: controls, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the entry with its lines. Entries of other tenants are
// reported as missing.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (JournalEntry, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]JournalEntry, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w %q", shared.ErrInvalidEntryType, filter.Type)
	}
	return s.repo.List(ctx, tenantID, filter)
}

// CreateEntry validates, numbers and posts a balanced entry in its own
// transaction.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.CreateEntryTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// CreateEntryTx posts the entry inside the caller's transaction. Checks run
// in a fixed order and the first failure is returned: entry type, line count,
// balance, fiscal period, then each line's account and amounts. Nothing is
// written until every check has passed.
func (s *Service) CreateEntryTx(ctx context.Context, tx TxRepository, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	period, err := periods.NewResolver(tx.Periods()).ForPosting(ctx, in.TenantID, in.Date, in.PeriodID)
	if err != nil {
		return JournalEntry{}, err
	}
	number, err := tx.NextNumber(ctx, in.TenantID)
	if err != nil {
		return JournalEntry{}, err
	}
	now := s.now()
	entry := JournalEntry{
		ID:               uuid.New(),
		TenantID:         in.TenantID,
		Number:           number,
		Date:             periods.Day(in.Date),
		Type:             in.Type,
		Description:      strings.TrimSpace(in.Description),
		PeriodID:         period.ID,
		SourceDocumentID: in.SourceDocumentID,
		IsPosted:         true,
		PostedAt:         now,
		CreatedBy:        in.ActorID,
		CreatedAt:        now,
		Lines:            make([]JournalLine, 0, len(in.Lines)),
	}
	for idx, l := range in.Lines {
		account, err := tx.GetAccount(ctx, in.TenantID, l.AccountID)
		if err != nil {
			return JournalEntry{}, shared.LineError(idx, err)
		}
		if !account.IsActive {
			return JournalEntry{}, shared.LineError(idx, fmt.Errorf("%w: %s", shared.ErrAccountInactive, account.Code))
		}
		if err := checkLine(l); err != nil {
			return JournalEntry{}, shared.LineError(idx, err)
		}
		entry.Lines = append(entry.Lines, JournalLine{
			ID:          uuid.New(),
			EntryID:     entry.ID,
			TenantID:    in.TenantID,
			LineNumber:  idx + 1,
			AccountID:   account.ID,
			Description: strings.TrimSpace(l.Description),
			Debit:       money.Quantize(l.Debit),
			Credit:      money.Quantize(l.Credit),
		})
	}
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.RecordAudit(ctx, internalShared.AuditLog{
		TenantID: entry.TenantID,
		ActorID:  in.ActorID,
		Action:   "journal.create",
		Entity:   "journal_entry",
		EntityID: entry.ID.String(),
		After:    snapshot(entry),
		At:       now,
	}); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// PostInvoiceEntry posts the ledger effect of an approved document.
func (s *Service) PostInvoiceEntry(ctx context.Context, in InvoicePosting) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.PostInvoiceEntryTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// PostInvoiceEntryTx debits receivables with the gross total, credits each
// revenue account with its net total and credits GST output with the tax.
// Purchase documents post the same shape against payables and GST input
// with the sides swapped. Credit notes post the mirror image.
func (s *Service) PostInvoiceEntryTx(ctx context.Context, tx TxRepository, in InvoicePosting) (JournalEntry, error) {
	input, err := s.invoiceEntry(ctx, in)
	if err != nil {
		return JournalEntry{}, err
	}
	return s.CreateEntryTx(ctx, tx, input)
}

type postingRoles struct {
	control     accounts.ControlAccount
	tax         accounts.ControlAccount
	controlDesc string
	lineDesc    string
	taxDesc     string
}

var (
	salesRoles    = postingRoles{accounts.ControlReceivable, accounts.ControlGSTOutput, "AR", "Revenue", "GST Output"}
	purchaseRoles = postingRoles{accounts.ControlPayable, accounts.ControlGSTInput, "AP", "Expense", "GST Input"}
)

func (s *Service) invoiceEntry(ctx context.Context, in InvoicePosting) (CreateEntryInput, error) {
	if len(in.Lines) == 0 {
		return CreateEntryInput{}, shared.Validationf("document %s has no lines to post", in.DocumentNumber)
	}
	if s.controls == nil {
		return CreateEntryInput{}, errors.New("accounting: control account resolver not configured")
	}
	roles := salesRoles
	if in.Purchase {
		roles = purchaseRoles
	}
	control, err := s.controls.ResolveControl(ctx, in.TenantID, roles.control)
	if err != nil {
		return CreateEntryInput{}, err
	}
	var order []uuid.UUID
	amounts := make(map[uuid.UUID]decimal.Decimal)
	gst := decimal.Zero
	for _, l := range in.Lines {
		if _, seen := amounts[l.AccountID]; !seen {
			order = append(order, l.AccountID)
		}
		amounts[l.AccountID] = amounts[l.AccountID].Add(money.Quantize(l.Net))
		gst = gst.Add(money.Quantize(l.GST))
	}
	lines := []LineInput{{
		AccountID:   control.ID,
		Description: roles.controlDesc + " for " + in.DocumentNumber,
		Debit:       money.Quantize(in.TotalIncl),
	}}
	for _, id := range order {
		if amounts[id].IsZero() {
			continue
		}
		lines = append(lines, LineInput{
			AccountID:   id,
			Description: roles.lineDesc + " for " + in.DocumentNumber,
			Credit:      amounts[id],
		})
	}
	if gst.IsPositive() {
		tax, err := s.controls.ResolveControl(ctx, in.TenantID, roles.tax)
		if err != nil {
			return CreateEntryInput{}, err
		}
		lines = append(lines, LineInput{
			AccountID:   tax.ID,
			Description: roles.taxDesc + " for " + in.DocumentNumber,
			Credit:      gst,
		})
	}
	typ, docType := EntryInvoice, in.DocumentType
	if in.CreditNote {
		typ = EntryCreditNote
	}
	if in.CreditNote != in.Purchase {
		lines = mirror(lines, "")
	}
	if docType == "" {
		docType = string(typ)
	}
	source := in.DocumentID
	return CreateEntryInput{
		TenantID:         in.TenantID,
		Date:             in.IssueDate,
		Type:             typ,
		Description:      docType + " " + in.DocumentNumber,
		Lines:            lines,
		SourceDocumentID: &source,
		ActorID:          in.ActorID,
	}, nil
}

// CreateReversal posts the mirror of an entry and links it as the entry's
// reversal.
func (s *Service) CreateReversal(ctx context.Context, in ReversalInput) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		reversal, err = s.CreateReversalTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

// CreateReversalTx reverses inside the caller's transaction. An entry can be
// reversed once; a second attempt returns shared.ErrAlreadyReversed.
func (s *Service) CreateReversalTx(ctx context.Context, tx TxRepository, in ReversalInput) (JournalEntry, error) {
	if in.Date.IsZero() {
		return JournalEntry{}, shared.Validationf("reversal date required")
	}
	original, err := tx.GetEntryForUpdate(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if original.IsReversed() {
		return JournalEntry{}, fmt.Errorf("%w: %s", shared.ErrAlreadyReversed, original.DisplayNumber())
	}
	marker := "Reversal of " + original.DisplayNumber()
	description := marker
	if reason := strings.TrimSpace(in.Reason); reason != "" {
		description += ": " + reason
	}
	reversal, err := s.CreateEntryTx(ctx, tx, CreateEntryInput{
		TenantID:         in.TenantID,
		Date:             in.Date,
		Type:             EntryReversal,
		Description:      description,
		Lines:            mirror(fromLines(original.Lines), marker),
		SourceDocumentID: original.SourceDocumentID,
		ActorID:          in.ActorID,
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.SetReversedBy(ctx, in.TenantID, original.ID, reversal.ID); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.RecordAudit(ctx, internalShared.AuditLog{
		TenantID: in.TenantID,
		ActorID:  in.ActorID,
		Action:   "journal.reverse",
		Entity:   "journal_entry",
		EntityID: original.ID.String(),
		Before:   map[string]any{"reversed_by": nil},
		After: map[string]any{
			"reversed_by":     reversal.ID.String(),
			"reversal_number": reversal.DisplayNumber(),
			"reason":          strings.TrimSpace(in.Reason),
		},
		At: s.now(),
	}); err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

func fromLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{AccountID: l.AccountID, Description: l.Description, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}

// mirror swaps debits and credits. A non-empty marker prefixes each line
// description.
func mirror(lines []LineInput, marker string) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		desc := l.Description
		if marker != "" {
			desc = marker + ": " + desc
		}
		out = append(out, LineInput{AccountID: l.AccountID, Description: desc, Debit: l.Credit, Credit: l.Debit})
	}
	return out
}

func snapshot(e JournalEntry) map[string]any {
	debit, credit := e.Totals()
	out := map[string]any{
		"entry_number":     e.DisplayNumber(),
		"entry_date":       e.Date.Format("2006-01-02"),
		"entry_type":       string(e.Type),
		"description":      e.Description,
		"fiscal_period_id": e.PeriodID.String(),
		"total_debit":      debit.StringFixed(money.Places),
		"total_credit":     credit.StringFixed(money.Places),
		"lines":            len(e.Lines),
	}
	if e.SourceDocumentID != nil {
		out["source_document_id"] = e.SourceDocumentID.String()
	}
	return out
}
