package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/reports"
	"github.com/nordeim/ledgersg/internal/money"
)

// ExitImbalanced is returned when a ledger fails its integrity check.
const ExitImbalanced = 10

// LedgerReader is the read side the ledger commands need.
type LedgerReader interface {
	Tenants(ctx context.Context) ([]uuid.UUID, error)
	TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.TrialBalance, error)
	Verify(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.Integrity, error)
}

// LedgerCLI prints trial balances and integrity results.
type LedgerCLI struct {
	reader LedgerReader
}

// NewLedgerCLI constructs the helper.
func NewLedgerCLI(reader LedgerReader) *LedgerCLI {
	return &LedgerCLI{reader: reader}
}

// LedgerOptions defines the flags shared by the ledger commands. An empty
// Tenant means every tenant for the integrity command.
type LedgerOptions struct {
	Tenant     string
	AsOf       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *LedgerOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// ParseAsOf reads an optional YYYY-MM-DD date.
func ParseAsOf(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", raw)
	}
	t = periods.Day(t)
	return &t, nil
}

// TrialBalanceCommand prints one tenant's trial balance. It exits with
// ExitImbalanced when the columns disagree.
func (c *LedgerCLI) TrialBalanceCommand(ctx context.Context, opts LedgerOptions) int {
	opts.defaults()
	tenantID, err := uuid.Parse(strings.TrimSpace(opts.Tenant))
	if err != nil {
		_, _ = fmt.Fprintln(opts.Stderr, "trial-balance: --tenant is required and must be a uuid")
		return 1
	}
	asOf, err := ParseAsOf(opts.AsOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "trial-balance: %v\n", err)
		return 1
	}
	tb, err := c.reader.TrialBalance(ctx, tenantID, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "trial-balance: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(buildTrialBalanceSummary(tb)); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "trial-balance: encode json: %v\n", err)
			return 1
		}
	} else {
		renderTrialBalance(opts.Stdout, tb)
	}
	if !tb.Balanced() {
		return ExitImbalanced
	}
	return 0
}

// IntegrityCommand verifies one tenant, or all of them, synchronously.
func (c *LedgerCLI) IntegrityCommand(ctx context.Context, opts LedgerOptions) int {
	opts.defaults()
	asOf, err := ParseAsOf(opts.AsOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "integrity: %v\n", err)
		return 1
	}
	var tenants []uuid.UUID
	if strings.TrimSpace(opts.Tenant) != "" {
		id, err := uuid.Parse(strings.TrimSpace(opts.Tenant))
		if err != nil {
			_, _ = fmt.Fprintln(opts.Stderr, "integrity: --tenant must be a uuid")
			return 1
		}
		tenants = []uuid.UUID{id}
	} else if tenants, err = c.reader.Tenants(ctx); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "integrity: list tenants: %v\n", err)
		return 1
	}

	results := make([]reports.Integrity, 0, len(tenants))
	code := 0
	for _, tenantID := range tenants {
		result, err := c.reader.Verify(ctx, tenantID, asOf)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "integrity: tenant %s: %v\n", tenantID, err)
			return 1
		}
		if !result.Balanced {
			code = ExitImbalanced
		}
		results = append(results, result)
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(results); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "integrity: encode json: %v\n", err)
			return 1
		}
		return code
	}
	for _, r := range results {
		status := "balanced"
		if !r.Balanced {
			status = "OUT OF BALANCE"
		}
		_, _ = fmt.Fprintf(opts.Stdout, "%s  debit %s  credit %s  difference %s  %s\n",
			r.TenantID, display(r.TotalDebit), display(r.TotalCredit), display(r.Difference), status)
	}
	return code
}

// TrialBalanceSummary is the JSON shape of the trial-balance command.
type TrialBalanceSummary struct {
	TenantID    uuid.UUID                 `json:"tenant_id"`
	AsOf        string                    `json:"as_of,omitempty"`
	Balanced    bool                      `json:"balanced"`
	TotalDebit  string                    `json:"total_debit"`
	TotalCredit string                    `json:"total_credit"`
	Accounts    []TrialBalanceSummaryLine `json:"accounts"`
}

// TrialBalanceSummaryLine is one account row.
type TrialBalanceSummaryLine struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Debit   string `json:"debit"`
	Credit  string `json:"credit"`
	Balance string `json:"balance"`
}

func buildTrialBalanceSummary(tb reports.TrialBalance) TrialBalanceSummary {
	out := TrialBalanceSummary{
		TenantID:    tb.TenantID,
		Balanced:    tb.Balanced(),
		TotalDebit:  display(tb.TotalDebit),
		TotalCredit: display(tb.TotalCredit),
		Accounts:    make([]TrialBalanceSummaryLine, 0, len(tb.Rows)),
	}
	if tb.AsOf != nil {
		out.AsOf = tb.AsOf.Format(time.DateOnly)
	}
	for _, row := range tb.Rows {
		out.Accounts = append(out.Accounts, TrialBalanceSummaryLine{
			Code:    row.Code,
			Name:    row.Name,
			Type:    row.Type.String(),
			Debit:   display(row.Debit),
			Credit:  display(row.Credit),
			Balance: display(row.Balance()),
		})
	}
	return out
}

func renderTrialBalance(out io.Writer, tb reports.TrialBalance) {
	asOf := "all dates"
	if tb.AsOf != nil {
		asOf = tb.AsOf.Format(time.DateOnly)
	}
	_, _ = fmt.Fprintf(out, "Trial balance for tenant %s as of %s\n", tb.TenantID, asOf)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Code\tAccount\tDebit\tCredit\t")
	for _, row := range tb.Rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Code, row.Name, display(row.Debit), display(row.Credit))
	}
	_, _ = fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", display(tb.TotalDebit), display(tb.TotalCredit))
	_ = tw.Flush()
	if !tb.Balanced() {
		_, _ = fmt.Fprintf(out, "OUT OF BALANCE by %s\n", display(tb.Difference()))
	}
}

func display(d decimal.Decimal) string {
	s, err := money.Display(d)
	if err != nil {
		return d.String()
	}
	return s
}
