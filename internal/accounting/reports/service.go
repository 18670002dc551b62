package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/money"
)

// Service is the read path over posted entries. It takes no locks; results
// reflect committed entries only.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AccountBalance returns debits minus credits for the account, optionally up
// to and including asOf. Credit-normal accounts come back negative.
func (s *Service) AccountBalance(ctx context.Context, tenantID, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	debit, credit, err := s.repo.AccountTotals(ctx, tenantID, accountID, Range{To: asOf})
	if err != nil {
		return decimal.Zero, err
	}
	return money.Quantize(debit.Sub(credit)), nil
}

// TrialBalance returns every active account with its totals up to asOf.
func (s *Service) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (TrialBalance, error) {
	rows, err := s.repo.Balances(ctx, tenantID, Range{To: asOf})
	if err != nil {
		return TrialBalance{}, err
	}
	return NewTrialBalance(tenantID, asOf, rows), nil
}

// BalanceSheet builds the statement of financial position at asOf.
func (s *Service) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (BalanceSheet, error) {
	tb, err := s.TrialBalance(ctx, tenantID, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(tb), nil
}

// ProfitAndLoss builds the income statement for entries dated within r.
func (s *Service) ProfitAndLoss(ctx context.Context, tenantID uuid.UUID, r Range) (ProfitAndLoss, error) {
	rows, err := s.repo.Balances(ctx, tenantID, r)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return BuildProfitAndLoss(NewTrialBalance(tenantID, r.To, rows)), nil
}

// Integrity is the outcome of a ledger consistency check.
type Integrity struct {
	TenantID    uuid.UUID       `json:"tenant_id"`
	CheckedAt   time.Time       `json:"checked_at"`
	AsOf        *time.Time      `json:"as_of,omitempty"`
	Accounts    int             `json:"accounts"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Balanced    bool            `json:"balanced"`
}

// Verify recomputes the trial balance and reports whether debits and credits
// agree within money.Tolerance.
func (s *Service) Verify(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (Integrity, error) {
	tb, err := s.TrialBalance(ctx, tenantID, asOf)
	if err != nil {
		return Integrity{}, err
	}
	return Integrity{
		TenantID:    tenantID,
		CheckedAt:   s.now().UTC(),
		AsOf:        asOf,
		Accounts:    len(tb.Rows),
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Difference:  tb.Difference(),
		Balanced:    tb.Balanced(),
	}, nil
}

// Tenants lists the tenants whose ledgers can be verified.
func (s *Service) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.Tenants(ctx)
}
