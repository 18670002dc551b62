package invoicing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/journals/journaltest"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/invoicing"
	"github.com/nordeim/ledgersg/internal/invoicing/invoicingtest"
	"github.com/nordeim/ledgersg/internal/money"
	_ "github.com/nordeim/ledgersg/testing"
)

type controls map[accounts.ControlAccount]accounts.Account

func (c controls) ResolveControl(ctx context.Context, tenantID uuid.UUID, role accounts.ControlAccount) (accounts.Account, error) {
	if a, ok := c[role]; ok {
		return a, nil
	}
	return accounts.Account{}, shared.ErrMappingNotFound
}

type fixture struct {
	store   *invoicingtest.Store
	svc     *invoicing.Service
	tenant  uuid.UUID
	contact uuid.UUID
	actor   uuid.UUID
	periods []periods.Period
	ar      accounts.Account
	revenue accounts.Account
	gst     accounts.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := journaltest.NewStore()
	tenant := uuid.New()
	f := &fixture{
		store:   invoicingtest.NewStore(ledger),
		tenant:  tenant,
		contact: uuid.New(),
		actor:   uuid.New(),
		periods: ledger.AddYear(tenant, 2025),
		ar:      ledger.AddAccount(tenant, "1200", accounts.TypeAssetCurrent),
		revenue: ledger.AddAccount(tenant, "4000", accounts.TypeRevenue),
		gst:     ledger.AddAccount(tenant, "2200", accounts.TypeLiabilityCurrent),
	}
	journalSvc := journals.NewService(ledger, controls{
		accounts.ControlReceivable: f.ar,
		accounts.ControlGSTOutput:  f.gst,
	})
	f.svc = invoicing.NewService(f.store, journalSvc)
	f.svc.WithNow(func() time.Time { return time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC) })
	return f
}

func amt(s string) decimal.Decimal {
	return money.MustNew(s)
}

func (f *fixture) create(t *testing.T, typ invoicing.DocumentType, issue time.Time, net string) invoicing.Document {
	t.Helper()
	doc, err := f.svc.Create(context.Background(), invoicing.CreateInput{
		TenantID:  f.tenant,
		ContactID: f.contact,
		Type:      typ,
		IssueDate: issue,
		Lines:     []invoicing.LineInput{{Description: "Consulting", AccountID: f.revenue.ID, Net: amt(net)}},
		ActorID:   f.actor,
	})
	require.NoError(t, err)
	return doc
}

func TestCreateComputesTotalsAndNumbers(t *testing.T) {
	f := newFixture(t)
	zero := decimal.Zero
	doc, err := f.svc.Create(context.Background(), invoicing.CreateInput{
		TenantID:  f.tenant,
		ContactID: f.contact,
		Type:      invoicing.TypeSalesInvoice,
		IssueDate: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		Lines: []invoicing.LineInput{
			{AccountID: f.revenue.ID, Net: amt("100")},
			{AccountID: f.revenue.ID, Net: amt("33.33")},
			{AccountID: f.revenue.ID, Net: amt("50"), GSTRate: &zero},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-00001", doc.Number)
	require.Equal(t, invoicing.StatusDraft, doc.Status)
	require.Equal(t, "SGD", doc.Currency)
	require.Equal(t, periods.Day(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)), doc.IssueDate)
	require.True(t, amt("183.33").Equal(doc.TotalExcl))
	require.True(t, amt("11.9997").Equal(doc.TotalGST))
	require.True(t, amt("195.3297").Equal(doc.TotalIncl))

	note := f.create(t, invoicing.TypeSalesCreditNote, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), "10")
	require.Equal(t, "CN-00001", note.Number)
	second := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), "10")
	require.Equal(t, "INV-00002", second.Number)

	stored, err := f.svc.Get(context.Background(), f.tenant, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 3)
	_, err = f.svc.Get(context.Background(), uuid.New(), doc.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	base := invoicing.CreateInput{
		TenantID:  f.tenant,
		ContactID: f.contact,
		Type:      invoicing.TypeSalesInvoice,
		IssueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:     []invoicing.LineInput{{AccountID: f.revenue.ID, Net: amt("10")}},
	}

	noLines := base
	noLines.Lines = nil
	badType := base
	badType.Type = "QUOTE"
	negative := base
	negative.Lines = []invoicing.LineInput{{AccountID: f.revenue.ID, Net: amt("-1")}}
	empty := base
	empty.Lines = []invoicing.LineInput{{AccountID: f.revenue.ID, Net: decimal.Zero}}

	for name, in := range map[string]invoicing.CreateInput{
		"no lines": noLines,
		"bad type": badType,
		"negative": negative,
		"zero":     empty,
	} {
		_, err := f.svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestApprovePostsAndLinksEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")

	approved, err := f.svc.Approve(ctx, f.tenant, doc.ID, f.actor)
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusApproved, approved.Status)
	require.NotNil(t, approved.JournalEntryID)
	require.Equal(t, f.actor, *approved.ApprovedBy)

	entries := f.store.Ledger.Entries(f.tenant)
	require.Len(t, entries, 1)
	require.Equal(t, *approved.JournalEntryID, entries[0].ID)
	require.Equal(t, doc.ID, *entries[0].SourceDocumentID)
	require.Equal(t, "SALES_INVOICE INV-00001", entries[0].Description)
	require.True(t, amt("109").Equal(f.store.Ledger.Balance(f.tenant, f.ar.ID)))
	require.True(t, amt("-9").Equal(f.store.Ledger.Balance(f.tenant, f.gst.ID)))

	_, err = f.svc.Approve(ctx, f.tenant, doc.ID, f.actor)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, f.store.Ledger.Entries(f.tenant), 1)

	var actions []string
	for _, a := range f.store.Ledger.Audits() {
		actions = append(actions, a.Action)
	}
	require.Equal(t, []string{"document.create", "journal.create", "document.approve"}, actions)
}

func TestApproveCreditNoteMirrorsInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")
	note := f.create(t, invoicing.TypeSalesCreditNote, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), "30")

	_, err := f.svc.Approve(ctx, f.tenant, inv.ID, f.actor)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant, note.ID, f.actor)
	require.NoError(t, err)

	entries := f.store.Ledger.Entries(f.tenant)
	require.Len(t, entries, 2)
	require.Equal(t, journals.EntryCreditNote, entries[1].Type)
	require.True(t, amt("76.30").Equal(f.store.Ledger.Balance(f.tenant, f.ar.ID)))
	require.True(t, amt("-70").Equal(f.store.Ledger.Balance(f.tenant, f.revenue.ID)))
}

func TestApproveRequiresOpenPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), "100")
	f.store.Ledger.SetPeriodOpen(f.periods[4].ID, false)

	_, err := f.svc.Approve(ctx, f.tenant, doc.ID, f.actor)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	stored, err := f.svc.Get(ctx, f.tenant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusDraft, stored.Status)
	require.Empty(t, f.store.Ledger.Entries(f.tenant))

	outside := f.create(t, invoicing.TypeSalesInvoice, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "100")
	_, err = f.svc.Approve(ctx, f.tenant, outside.ID, f.actor)
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestApproveRollsBackWhenPostingFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")
	f.svc = invoicing.NewService(f.store, journals.NewService(f.store.Ledger, controls{}))

	_, err := f.svc.Approve(ctx, f.tenant, doc.ID, f.actor)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
	stored, err := f.svc.Get(ctx, f.tenant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusDraft, stored.Status)
	require.Nil(t, stored.JournalEntryID)
}

func TestVoidReversesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")
	approved, err := f.svc.Approve(ctx, f.tenant, doc.ID, f.actor)
	require.NoError(t, err)

	voided, err := f.svc.Void(ctx, invoicing.VoidInput{
		TenantID:   f.tenant,
		DocumentID: doc.ID,
		Reason:     "issued in error",
		Date:       time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		ActorID:    f.actor,
	})
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusVoid, voided.Status)
	require.Equal(t, "issued in error", voided.VoidReason)

	entries := f.store.Ledger.Entries(f.tenant)
	require.Len(t, entries, 2)
	require.Equal(t, entries[1].ID, *entries[0].ReversedBy)
	require.Equal(t, *approved.JournalEntryID, entries[0].ID)
	require.Equal(t, "Reversal of JE-00001: Void of INV-00001", entries[1].Description)
	require.True(t, f.store.Ledger.Balance(f.tenant, f.ar.ID).IsZero())

	_, err = f.svc.Void(ctx, invoicing.VoidInput{TenantID: f.tenant, DocumentID: doc.ID, Reason: "again", ActorID: f.actor})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, f.store.Ledger.Entries(f.tenant), 2)
}

func TestVoidRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")

	_, err := f.svc.Void(ctx, invoicing.VoidInput{TenantID: f.tenant, DocumentID: draft.ID, Reason: "x", ActorID: f.actor})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Void(ctx, invoicing.VoidInput{TenantID: f.tenant, DocumentID: draft.ID, ActorID: f.actor})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Void(ctx, invoicing.VoidInput{TenantID: f.tenant, DocumentID: uuid.New(), Reason: "x", ActorID: f.actor})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Approve(ctx, f.tenant, draft.ID, f.actor)
	require.NoError(t, err)
	f.store.Ledger.SetPeriodOpen(f.periods[3].ID, false)
	_, err = f.svc.Void(ctx, invoicing.VoidInput{TenantID: f.tenant, DocumentID: draft.ID, Reason: "x", ActorID: f.actor})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	stored, err := f.svc.Get(ctx, f.tenant, draft.ID)
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusApproved, stored.Status)
	require.Len(t, f.store.Ledger.Entries(f.tenant), 1)
}

func TestVoidSentDocumentWithoutEntry(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, invoicing.TypeSalesInvoice, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "100")
	doc.Status = invoicing.StatusSent
	f.store.Put(doc)

	voided, err := f.svc.Void(context.Background(), invoicing.VoidInput{TenantID: f.tenant, DocumentID: doc.ID, Reason: "cancelled", ActorID: f.actor})
	require.NoError(t, err)
	require.Equal(t, invoicing.StatusVoid, voided.Status)
	require.Empty(t, f.store.Ledger.Entries(f.tenant))
}
