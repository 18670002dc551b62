package accounts

import (
	"fmt"
	"strings"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// Category is the top level classification an AccountType belongs to.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryEquity    Category = "EQUITY"
	CategoryRevenue   Category = "REVENUE"
	CategoryExpense   Category = "EXPENSE"
	CategoryTax       Category = "TAX"
)

// NormalBalance is the side on which an account's balance naturally grows.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// NormalBalance returns the natural side for the category.
func (c Category) NormalBalance() NormalBalance {
	switch c {
	case CategoryAsset, CategoryExpense, CategoryTax:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// Statement names the financial statement an account reports on.
type Statement string

const (
	StatementBalanceSheet  Statement = "BALANCE_SHEET"
	StatementProfitAndLoss Statement = "PROFIT_AND_LOSS"
)

// AccountType is the closed set of account classifications.
type AccountType uint8

const (
	TypeUnknown AccountType = iota
	TypeAssetCurrent
	TypeAssetFixed
	TypeAssetOther
	TypeLiabilityCurrent
	TypeLiabilityLongTerm
	TypeEquity
	TypeRevenue
	TypeRevenueOther
	TypeCostOfSales
	TypeExpenseAdmin
	TypeExpenseSelling
	TypeExpenseOther
	TypeTax
)

type typeInfo struct {
	name      string
	prefix    string
	category  Category
	statement Statement
	section   string
}

var typeTable = [...]typeInfo{
	TypeUnknown:           {},
	TypeAssetCurrent:      {"ASSET_CURRENT", "1", CategoryAsset, StatementBalanceSheet, "current_assets"},
	TypeAssetFixed:        {"ASSET_FIXED", "15", CategoryAsset, StatementBalanceSheet, "non_current_assets"},
	TypeAssetOther:        {"ASSET_OTHER", "18", CategoryAsset, StatementBalanceSheet, "other_assets"},
	TypeLiabilityCurrent:  {"LIABILITY_CURRENT", "2", CategoryLiability, StatementBalanceSheet, "current_liabilities"},
	TypeLiabilityLongTerm: {"LIABILITY_LONG_TERM", "23", CategoryLiability, StatementBalanceSheet, "non_current_liabilities"},
	TypeEquity:            {"EQUITY", "3", CategoryEquity, StatementBalanceSheet, "equity"},
	TypeRevenue:           {"REVENUE", "4", CategoryRevenue, StatementProfitAndLoss, "revenue"},
	TypeRevenueOther:      {"REVENUE_OTHER", "48", CategoryRevenue, StatementProfitAndLoss, "other_income"},
	TypeCostOfSales:       {"COS", "5", CategoryExpense, StatementProfitAndLoss, "cost_of_sales"},
	TypeExpenseAdmin:      {"EXPENSE_ADMIN", "6", CategoryExpense, StatementProfitAndLoss, "operating_expenses"},
	TypeExpenseSelling:    {"EXPENSE_SELLING", "65", CategoryExpense, StatementProfitAndLoss, "operating_expenses"},
	TypeExpenseOther:      {"EXPENSE_OTHER", "68", CategoryExpense, StatementProfitAndLoss, "other_expenses"},
	TypeTax:               {"TAX", "8", CategoryTax, StatementProfitAndLoss, "taxation"},
}

func (t AccountType) info() typeInfo {
	if int(t) >= len(typeTable) {
		return typeInfo{}
	}
	return typeTable[t]
}

// Valid reports whether t is a known type.
func (t AccountType) Valid() bool {
	return t != TypeUnknown && int(t) < len(typeTable)
}

func (t AccountType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("AccountType(%d)", uint8(t))
	}
	return t.info().name
}

// CodePrefix is the leading digits every account code of this type carries.
func (t AccountType) CodePrefix() string { return t.info().prefix }

// Category returns the top level classification.
func (t AccountType) Category() Category { return t.info().category }

// NormalBalance returns the natural side for the type.
func (t AccountType) NormalBalance() NormalBalance { return t.info().category.NormalBalance() }

// Statement returns the statement the type reports on.
func (t AccountType) Statement() Statement { return t.info().statement }

// Section returns the statement section key.
func (t AccountType) Section() string { return t.info().section }

// AccountTypes lists every valid type in declaration order.
func AccountTypes() []AccountType {
	out := make([]AccountType, 0, len(typeTable)-1)
	for i := 1; i < len(typeTable); i++ {
		out = append(out, AccountType(i))
	}
	return out
}

// ParseAccountType maps a stored type name back to its AccountType.
func ParseAccountType(s string) (AccountType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range AccountTypes() {
		if t.info().name == name {
			return t, nil
		}
	}
	return TypeUnknown, shared.Validationf("unknown account type %q", s)
}
