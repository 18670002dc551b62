package reports

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
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/money"
	_ "github.com/nordeim/ledgersg/testing"
)

// ledgerRepo aggregates the entries held by a journaltest store.
type ledgerRepo struct {
	store *journaltest.Store
}

func inRange(d time.Time, r Range) bool {
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

func (r ledgerRepo) AccountTotals(ctx context.Context, tenantID, accountID uuid.UUID, rng Range) (decimal.Decimal, decimal.Decimal, error) {
	found := false
	for _, a := range r.store.Accounts(tenantID) {
		found = found || a.ID == accountID
	}
	if !found {
		return decimal.Zero, decimal.Zero, shared.ErrAccountNotFound
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range r.store.Entries(tenantID) {
		if !inRange(e.Date, rng) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				debit = debit.Add(l.Debit)
				credit = credit.Add(l.Credit)
			}
		}
	}
	return debit, credit, nil
}

func (r ledgerRepo) Balances(ctx context.Context, tenantID uuid.UUID, rng Range) ([]AccountBalance, error) {
	var out []AccountBalance
	for _, a := range r.store.Accounts(tenantID) {
		debit, credit, _ := r.AccountTotals(ctx, tenantID, a.ID, rng)
		if !a.IsActive && debit.IsZero() && credit.IsZero() {
			continue
		}
		out = append(out, AccountBalance{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, IsActive: a.IsActive, Debit: debit, Credit: credit})
	}
	return out, nil
}

func (r ledgerRepo) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

type fixture struct {
	store    *journaltest.Store
	journals *journals.Service
	reports  *Service
	tenant   uuid.UUID
	cash     accounts.Account
	ar       accounts.Account
	gst      accounts.Account
	capital  accounts.Account
	revenue  accounts.Account
	cos      accounts.Account
	rent     accounts.Account
	unused   accounts.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := journaltest.NewStore()
	tenant := uuid.New()
	store.AddYear(tenant, 2025)
	f := &fixture{
		store:    store,
		journals: journals.NewService(store, nil),
		reports:  NewService(ledgerRepo{store: store}),
		tenant:   tenant,
		cash:     store.AddAccount(tenant, "1000", accounts.TypeAssetCurrent),
		ar:       store.AddAccount(tenant, "1200", accounts.TypeAssetCurrent),
		gst:      store.AddAccount(tenant, "2200", accounts.TypeLiabilityCurrent),
		capital:  store.AddAccount(tenant, "3000", accounts.TypeEquity),
		revenue:  store.AddAccount(tenant, "4000", accounts.TypeRevenue),
		cos:      store.AddAccount(tenant, "5000", accounts.TypeCostOfSales),
		rent:     store.AddAccount(tenant, "6000", accounts.TypeExpenseAdmin),
		unused:   store.AddAccount(tenant, "6900", accounts.TypeExpenseOther),
	}
	return f
}

func (f *fixture) post(t *testing.T, date time.Time, lines ...journals.LineInput) journals.JournalEntry {
	t.Helper()
	e, err := f.journals.CreateEntry(context.Background(), journals.CreateEntryInput{
		TenantID: f.tenant,
		Date:     date,
		Type:     journals.EntryManual,
		Lines:    lines,
	})
	require.NoError(t, err)
	return e
}

func dr(a accounts.Account, v string) journals.LineInput {
	return journals.LineInput{AccountID: a.ID, Debit: money.MustNew(v)}
}

func cr(a accounts.Account, v string) journals.LineInput {
	return journals.LineInput{AccountID: a.ID, Credit: money.MustNew(v)}
}

func date(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) seed(t *testing.T) {
	f.post(t, date(1, 2), dr(f.cash, "10000"), cr(f.capital, "10000"))
	f.post(t, date(2, 10), dr(f.ar, "109.00"), cr(f.revenue, "100.00"), cr(f.gst, "9.00"))
	f.post(t, date(3, 5), dr(f.cos, "40"), dr(f.rent, "1500"), cr(f.cash, "1540"))
}

func TestAccountBalanceAndReversal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.post(t, date(3, 15), dr(f.ar, "109.00"), cr(f.revenue, "100.00"), cr(f.gst, "9.00"))

	bal, err := f.reports.AccountBalance(ctx, f.tenant, f.ar.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "109.00", bal.StringFixed(2))

	rev, err := f.reports.AccountBalance(ctx, f.tenant, f.revenue.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "-100.0000", rev.StringFixed(4))

	_, err = f.journals.CreateReversal(ctx, journals.ReversalInput{TenantID: f.tenant, EntryID: entry.ID, Date: date(3, 31)})
	require.NoError(t, err)
	bal, err = f.reports.AccountBalance(ctx, f.tenant, f.ar.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "0.00", bal.StringFixed(2))

	asOf := date(3, 20)
	bal, err = f.reports.AccountBalance(ctx, f.tenant, f.ar.ID, &asOf)
	require.NoError(t, err)
	require.Equal(t, "109.00", bal.StringFixed(2))

	_, err = f.reports.AccountBalance(ctx, uuid.New(), f.ar.ID, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTrialBalanceZeroFillsAndBalances(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	tb, err := f.reports.TrialBalance(ctx, f.tenant, nil)
	require.NoError(t, err)
	require.Len(t, tb.Rows, 8)
	require.Equal(t, "1000", tb.Rows[0].Code)
	last := tb.Rows[len(tb.Rows)-1]
	require.Equal(t, f.unused.ID, last.AccountID)
	require.True(t, last.Debit.IsZero())
	require.True(t, last.Credit.IsZero())
	require.True(t, tb.Balanced())
	require.Equal(t, "11649.0000", tb.TotalDebit.StringFixed(4))
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))

	sum := decimal.Zero
	for _, r := range tb.Rows {
		sum = sum.Add(r.Balance())
	}
	require.True(t, sum.IsZero())

	again, err := f.reports.TrialBalance(ctx, f.tenant, nil)
	require.NoError(t, err)
	require.Equal(t, tb, again)

	asOf := date(1, 31)
	early, err := f.reports.TrialBalance(ctx, f.tenant, &asOf)
	require.NoError(t, err)
	require.Equal(t, "10000.0000", early.TotalDebit.StringFixed(4))
	require.True(t, early.Balanced())
}

func TestTrialBalanceKeepsArchivedAccountsWithHistory(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	archived := f.rent
	archived.IsActive = false
	f.store.PutAccount(archived)
	idle := f.unused
	idle.IsActive = false
	f.store.PutAccount(idle)

	tb, err := f.reports.TrialBalance(context.Background(), f.tenant, nil)
	require.NoError(t, err)
	require.Len(t, tb.Rows, 7)
	require.True(t, tb.Balanced())
}

func TestGroups(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	tb, err := f.reports.TrialBalance(context.Background(), f.tenant, nil)
	require.NoError(t, err)
	groups := tb.Groups()
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	require.Equal(t, []string{"10", "12", "22", "30", "40", "50", "60", "69"}, keys)
	require.Equal(t, "8460.0000", groups[0].Closing.StringFixed(4))
}

func TestStatements(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	pl, err := f.reports.ProfitAndLoss(ctx, f.tenant, Range{})
	require.NoError(t, err)
	require.Equal(t, "100.0000", pl.Revenue.Total.StringFixed(4))
	require.Equal(t, "40.0000", pl.CostOfSales.Total.StringFixed(4))
	require.Equal(t, "60.0000", pl.GrossProfit.StringFixed(4))
	require.Equal(t, "1500.0000", pl.Expense.Total.StringFixed(4))
	require.Equal(t, "-1440.0000", pl.NetIncome.StringFixed(4))

	from := date(3, 1)
	march, err := f.reports.ProfitAndLoss(ctx, f.tenant, Range{From: &from})
	require.NoError(t, err)
	require.True(t, march.Revenue.Total.IsZero())
	require.Empty(t, march.Revenue.Accounts)

	bs, err := f.reports.BalanceSheet(ctx, f.tenant, nil)
	require.NoError(t, err)
	require.Equal(t, "8569.0000", bs.Assets.Total.StringFixed(4))
	require.Equal(t, "9.0000", bs.Liabilities.Total.StringFixed(4))
	require.Equal(t, "10000.0000", bs.Equity.Total.StringFixed(4))
	require.Equal(t, "-1440.0000", bs.CurrentEarnings.StringFixed(4))
	require.True(t, bs.Balanced())
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	fixed := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	f.reports.WithNow(func() time.Time { return fixed })

	res, err := f.reports.Verify(context.Background(), f.tenant, nil)
	require.NoError(t, err)
	require.True(t, res.Balanced)
	require.Equal(t, fixed, res.CheckedAt)
	require.Equal(t, 8, res.Accounts)
	require.True(t, res.Difference.IsZero())

	broken := NewTrialBalance(f.tenant, nil, []AccountBalance{
		{Code: "1000", Type: accounts.TypeAssetCurrent, Debit: money.MustNew("10.002")},
		{Code: "4000", Type: accounts.TypeRevenue, Credit: money.MustNew("10")},
	})
	require.False(t, broken.Balanced())
	require.Equal(t, "0.0020", broken.Difference().StringFixed(4))
}
