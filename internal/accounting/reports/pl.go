package reports

import (
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/money"
)

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue     StatementSection
	CostOfSales StatementSection
	Expense     StatementSection
	GrossProfit decimal.Decimal
	NetIncome   decimal.Decimal
}

// BuildProfitAndLoss aggregates revenue, cost of sales, expense and tax
// accounts.
func BuildProfitAndLoss(tb TrialBalance) ProfitAndLoss {
	pl := ProfitAndLoss{
		Revenue:     StatementSection{Label: "Revenue"},
		CostOfSales: StatementSection{Label: "Cost of Sales"},
		Expense:     StatementSection{Label: "Expense"},
	}
	for _, acc := range tb.Rows {
		if acc.Type.Statement() != accounts.StatementProfitAndLoss {
			continue
		}
		switch {
		case acc.Type.Category() == accounts.CategoryRevenue:
			pl.Revenue.add(acc)
		case acc.Type == accounts.TypeCostOfSales:
			pl.CostOfSales.add(acc)
		default:
			pl.Expense.add(acc)
		}
	}
	pl.GrossProfit = money.Quantize(pl.Revenue.Total.Sub(pl.CostOfSales.Total))
	pl.NetIncome = money.Quantize(pl.GrossProfit.Sub(pl.Expense.Total))
	return pl
}
