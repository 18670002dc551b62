package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/money"
)

// AccountBalance aggregates the posted lines of one account.
type AccountBalance struct {
	AccountID uuid.UUID
	Code      string
	Name      string
	Type      accounts.AccountType
	IsActive  bool
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Balance returns debits minus credits.
func (a AccountBalance) Balance() decimal.Decimal {
	return money.Quantize(a.Debit.Sub(a.Credit))
}

// Natural returns the balance signed so that growth on the account's normal
// side is positive.
func (a AccountBalance) Natural() decimal.Decimal {
	if a.Type.NormalBalance() == accounts.NormalCredit {
		return a.Balance().Neg()
	}
	return a.Balance()
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalance lists every active account, and every archived account that
// carries postings, with its debit and credit totals.
type TrialBalance struct {
	TenantID    uuid.UUID
	AsOf        *time.Time
	Rows        []AccountBalance
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// NewTrialBalance sorts rows by code and computes the column totals.
func NewTrialBalance(tenantID uuid.UUID, asOf *time.Time, rows []AccountBalance) TrialBalance {
	sorted := append([]AccountBalance(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	debits := make([]decimal.Decimal, 0, len(sorted))
	credits := make([]decimal.Decimal, 0, len(sorted))
	for _, r := range sorted {
		debits = append(debits, r.Debit)
		credits = append(credits, r.Credit)
	}
	return TrialBalance{
		TenantID:    tenantID,
		AsOf:        asOf,
		Rows:        sorted,
		TotalDebit:  money.Sum(debits...),
		TotalCredit: money.Sum(credits...),
	}
}

// Difference returns total debits minus total credits.
func (tb TrialBalance) Difference() decimal.Decimal {
	return tb.TotalDebit.Sub(tb.TotalCredit)
}

// Balanced reports whether the columns agree within money.Tolerance.
func (tb TrialBalance) Balanced() bool {
	return money.Balanced(tb.TotalDebit, tb.TotalCredit)
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string
	Accounts []AccountBalance
	Debit    decimal.Decimal
	Credit   decimal.Decimal
	Closing  decimal.Decimal
}

// Groups arranges the rows by the first two digits of the account code.
func (tb TrialBalance) Groups() []TrialBalanceGroup {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range tb.Rows {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Accounts = append(grp.Accounts, acc)
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
		grp.Closing = grp.Closing.Add(acc.Balance())
	}
	sort.Strings(keys)
	out := make([]TrialBalanceGroup, 0, len(keys))
	for _, key := range keys {
		out = append(out, *groups[key])
	}
	return out
}
