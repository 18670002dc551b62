package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/journals"
	"github.com/nordeim/ledgersg/internal/accounting/mappings"
	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/reports"
	"github.com/nordeim/ledgersg/internal/banking"
	"github.com/nordeim/ledgersg/internal/invoicing"
)

// Ledger bundles the ledger services over one pool.
type Ledger struct {
	Accounts  *accounts.Service
	Mappings  mappings.Repository
	Periods   *periods.Service
	Journals  *journals.Service
	Reports   *reports.Service
	Invoicing *invoicing.Service
	Banking   *banking.Service
}

// NewLedger wires the services. Every service writes its audit records in the
// transaction of the change; cfg supplies the default GST rate and base
// currency.
func NewLedger(pool *pgxpool.Pool, cfg *Config) *Ledger {
	mappingRepo := mappings.NewRepository(pool)
	reportService := reports.NewService(reports.NewRepository(pool))
	accountService := accounts.NewService(accounts.NewRepository(pool), reportService, mappingRepo)
	journalService := journals.NewService(journals.NewRepository(pool), accountService)

	invoicingService := invoicing.NewService(invoicing.NewRepository(pool), journalService)
	bankingService := banking.NewService(banking.NewRepository(pool), journalService, accountService)
	if cfg != nil {
		invoicingService.WithGSTRate(cfg.GSTRate)
		invoicingService.WithCurrency(cfg.BaseCurrency)
		bankingService.WithCurrency(cfg.BaseCurrency)
	}

	return &Ledger{
		Accounts:  accountService,
		Mappings:  mappingRepo,
		Periods:   periods.NewService(periods.NewRepository(pool)),
		Journals:  journalService,
		Reports:   reportService,
		Invoicing: invoicingService,
		Banking:   bankingService,
	}
}
