// Command seed provisions a tenant with the default Singapore chart of
// accounts, control account mappings and one fiscal year of open periods.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/mappings"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	accshared "github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/app"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

type seedAccount struct {
	Code   string
	Name   string
	Type   accounts.AccountType
	Parent string
	System bool
}

var defaultChart = []seedAccount{
	{Code: "1000", Name: "Cash and Bank", Type: accounts.TypeAssetCurrent, System: true},
	{Code: "1010", Name: "Operating Bank Account", Type: accounts.TypeAssetCurrent, Parent: "1000"},
	{Code: "1200", Name: "Trade Receivables", Type: accounts.TypeAssetCurrent, System: true},
	{Code: "1300", Name: "GST Input Tax", Type: accounts.TypeAssetCurrent, System: true},
	{Code: "1500", Name: "Property, Plant and Equipment", Type: accounts.TypeAssetFixed},
	{Code: "2100", Name: "Trade Payables", Type: accounts.TypeLiabilityCurrent, System: true},
	{Code: "2200", Name: "GST Output Tax", Type: accounts.TypeLiabilityCurrent, System: true},
	{Code: "2300", Name: "Long-term Borrowings", Type: accounts.TypeLiabilityLongTerm},
	{Code: "3000", Name: "Share Capital", Type: accounts.TypeEquity},
	{Code: "3100", Name: "Retained Earnings", Type: accounts.TypeEquity, System: true},
	{Code: "4000", Name: "Sales Revenue", Type: accounts.TypeRevenue},
	{Code: "4800", Name: "Other Income", Type: accounts.TypeRevenueOther},
	{Code: "5000", Name: "Cost of Sales", Type: accounts.TypeCostOfSales},
	{Code: "6000", Name: "Administrative Expenses", Type: accounts.TypeExpenseAdmin},
	{Code: "6500", Name: "Selling and Distribution Expenses", Type: accounts.TypeExpenseSelling},
	{Code: "6800", Name: "Other Expenses", Type: accounts.TypeExpenseOther},
	{Code: "8000", Name: "Income Tax Expense", Type: accounts.TypeTax},
}

var controlMappings = map[string]string{
	mappings.KeyReceivable: "1200",
	mappings.KeyPayable:    "2100",
	mappings.KeyGSTOutput:  "2200",
	mappings.KeyGSTInput:   "1300",
}

// seedOptions are the parsed command line values.
type seedOptions struct {
	TenantID uuid.UUID
	Name     string
	Year     int
}

type seedFunc func(ctx context.Context, opts seedOptions) error

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		slog.Default().Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newRootCmd(fn seedFunc) *cobra.Command {
	var (
		tenant string
		opts   seedOptions
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision a tenant with the default chart of accounts",
		Long: `seed creates a tenant (or reuses an existing one), the default Singapore
chart of accounts, the control account mappings and one fiscal year of monthly
periods. Running it twice for the same tenant and year changes nothing.

Example:
  seed --name "Acme Pte. Ltd." --year 2025
  seed --tenant 6f1c... --year 2026`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.TenantID = uuid.New()
			if tenant != "" {
				id, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("parse --tenant: %w", err)
				}
				opts.TenantID = id
			}
			if opts.Year < 1900 || opts.Year > 9999 {
				return fmt.Errorf("--year %d out of range", opts.Year)
			}
			return fn(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "Demo Pte. Ltd.", "tenant name")
	cmd.Flags().IntVar(&opts.Year, "year", time.Now().Year(), "calendar year for the fiscal year")
	return cmd
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := seed(ctx, pool, cfg, opts.TenantID, opts.Name, opts.Year, logger); err != nil {
		return err
	}
	logger.Info("seed complete", slog.String("tenant_id", opts.TenantID.String()))
	return nil
}

func seed(ctx context.Context, pool *pgxpool.Pool, cfg *app.Config, tenantID uuid.UUID, name string, year int, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, `INSERT INTO tenants (id, name, base_currency) VALUES ($1,$2,$3) ON CONFLICT (id) DO NOTHING`,
		tenantID, name, cfg.BaseCurrency); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	ledger := app.NewLedger(pool, cfg)

	ids := make(map[string]uuid.UUID, len(defaultChart))
	for _, sa := range defaultChart {
		in := accounts.CreateInput{TenantID: tenantID, Code: sa.Code, Name: sa.Name, Type: sa.Type, IsSystem: sa.System}
		if sa.Parent != "" {
			parent := ids[sa.Parent]
			in.ParentID = &parent
		}
		acc, err := ledger.Accounts.Create(ctx, in)
		if errors.Is(err, accshared.ErrDuplicate) {
			acc, err = ledger.Accounts.GetByCode(ctx, tenantID, sa.Code)
			logger.Info("account exists", slog.String("code", sa.Code))
		}
		if err != nil {
			return fmt.Errorf("account %s: %w", sa.Code, err)
		}
		ids[sa.Code] = acc.ID
	}

	for key, code := range controlMappings {
		if err := ledger.Mappings.Set(ctx, tenantID, key, ids[code]); err != nil {
			return fmt.Errorf("mapping %s: %w", key, err)
		}
	}

	label := fmt.Sprintf("FY%d", year)
	years, err := ledger.Periods.Years(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list fiscal years: %w", err)
	}
	for _, fy := range years {
		if fy.Label == label {
			logger.Info("fiscal year exists", slog.String("label", label))
			return nil
		}
	}
	_, generated, err := ledger.Periods.CreateFiscalYear(ctx, periods.CreateFiscalYearInput{
		TenantID:  tenantID,
		Label:     label,
		StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return fmt.Errorf("fiscal year %s: %w", label, err)
	}
	logger.Info("fiscal year created", slog.String("label", label), slog.Int("periods", len(generated)))
	return nil
}
