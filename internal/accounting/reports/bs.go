package reports

import (
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/money"
)

// StatementLine is an account shown on a statement with its natural balance.
type StatementLine struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// StatementSection contains the accounts and total for a classification.
type StatementSection struct {
	Label    string
	Accounts []StatementLine
	Total    decimal.Decimal
}

func (s *StatementSection) add(acc AccountBalance) {
	amount := acc.Natural()
	if amount.IsZero() {
		return
	}
	s.Accounts = append(s.Accounts, StatementLine{Code: acc.Code, Name: acc.Name, Amount: amount})
	s.Total = money.Quantize(s.Total.Add(amount))
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    StatementSection
	Liabilities               StatementSection
	Equity                    StatementSection
	CurrentEarnings           decimal.Decimal
	TotalLiabilitiesAndEquity decimal.Decimal
}

// Balanced reports whether assets equal liabilities plus equity.
func (bs BalanceSheet) Balanced() bool {
	return money.Balanced(bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet aggregates a trial balance into assets, liabilities and
// equity. Unclosed profit and loss is carried as current earnings.
func BuildBalanceSheet(tb TrialBalance) BalanceSheet {
	bs := BalanceSheet{
		Assets:      StatementSection{Label: "Assets"},
		Liabilities: StatementSection{Label: "Liabilities"},
		Equity:      StatementSection{Label: "Equity"},
	}
	for _, acc := range tb.Rows {
		if acc.Type.Statement() != accounts.StatementBalanceSheet {
			continue
		}
		switch acc.Type.Category() {
		case accounts.CategoryAsset:
			bs.Assets.add(acc)
		case accounts.CategoryLiability:
			bs.Liabilities.add(acc)
		case accounts.CategoryEquity:
			bs.Equity.add(acc)
		}
	}
	bs.CurrentEarnings = BuildProfitAndLoss(tb).NetIncome
	bs.TotalLiabilitiesAndEquity = money.Sum(bs.Liabilities.Total, bs.Equity.Total, bs.CurrentEarnings)
	return bs
}
