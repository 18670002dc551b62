package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/reports"
)

type stubLedger struct {
	tenants []uuid.UUID
	rows    []reports.AccountBalance
	broken  uuid.UUID
	err     error
}

func (s stubLedger) Tenants(context.Context) ([]uuid.UUID, error) {
	return s.tenants, s.err
}

func (s stubLedger) TrialBalance(_ context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.TrialBalance, error) {
	if s.err != nil {
		return reports.TrialBalance{}, s.err
	}
	return reports.NewTrialBalance(tenantID, asOf, s.rows), nil
}

func (s stubLedger) Verify(_ context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.Integrity, error) {
	if s.err != nil {
		return reports.Integrity{}, s.err
	}
	diff := decimal.Zero
	if tenantID == s.broken {
		diff = decimal.RequireFromString("0.5")
	}
	return reports.Integrity{
		TenantID:    tenantID,
		AsOf:        asOf,
		TotalDebit:  decimal.RequireFromString("100").Add(diff),
		TotalCredit: decimal.RequireFromString("100"),
		Difference:  diff,
		Balanced:    diff.IsZero(),
	}, nil
}

func balancedRows() []reports.AccountBalance {
	return []reports.AccountBalance{
		{Code: "4000", Name: "Revenue", Type: accounts.TypeRevenue, Credit: decimal.RequireFromString("100")},
		{Code: "1200", Name: "Trade Receivables", Type: accounts.TypeAssetCurrent, Debit: decimal.RequireFromString("109")},
		{Code: "2200", Name: "GST Output", Type: accounts.TypeLiabilityCurrent, Credit: decimal.RequireFromString("9")},
	}
}

func TestTrialBalanceCommandJSON(t *testing.T) {
	tenant := uuid.New()
	cli := NewLedgerCLI(stubLedger{rows: balancedRows()})

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := cli.TrialBalanceCommand(context.Background(), LedgerOptions{
		Tenant:     tenant.String(),
		AsOf:       "2025-12-31",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, 0, code, stderr.String())

	var summary TrialBalanceSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.Balanced)
	require.Equal(t, "2025-12-31", summary.AsOf)
	require.Equal(t, "109.00", summary.TotalDebit)
	require.Len(t, summary.Accounts, 3)
	require.Equal(t, "1200", summary.Accounts[0].Code)
	require.Equal(t, "ASSET_CURRENT", summary.Accounts[0].Type)
	require.Equal(t, "-100.00", summary.Accounts[2].Balance)
}

func TestTrialBalanceCommandHumanImbalanced(t *testing.T) {
	rows := balancedRows()
	rows[0].Credit = decimal.RequireFromString("99")
	cli := NewLedgerCLI(stubLedger{rows: rows})

	stdout := new(bytes.Buffer)
	code := cli.TrialBalanceCommand(context.Background(), LedgerOptions{Tenant: uuid.NewString(), Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitImbalanced, code)
	require.Contains(t, stdout.String(), "Trade Receivables")
	require.Contains(t, stdout.String(), "OUT OF BALANCE by 1.00")
}

func TestTrialBalanceCommandRejectsBadInput(t *testing.T) {
	cli := NewLedgerCLI(stubLedger{})
	stderr := new(bytes.Buffer)

	require.Equal(t, 1, cli.TrialBalanceCommand(context.Background(), LedgerOptions{Stderr: stderr, Stdout: new(bytes.Buffer)}))
	require.Contains(t, stderr.String(), "--tenant is required")

	stderr.Reset()
	require.Equal(t, 1, cli.TrialBalanceCommand(context.Background(), LedgerOptions{Tenant: uuid.NewString(), AsOf: "31/12/2025", Stderr: stderr, Stdout: new(bytes.Buffer)}))
	require.Contains(t, stderr.String(), "expected YYYY-MM-DD")

	stderr.Reset()
	failing := NewLedgerCLI(stubLedger{err: errors.New("db down")})
	require.Equal(t, 1, failing.TrialBalanceCommand(context.Background(), LedgerOptions{Tenant: uuid.NewString(), Stderr: stderr, Stdout: new(bytes.Buffer)}))
	require.Contains(t, stderr.String(), "db down")
}

func TestIntegrityCommand(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	cli := NewLedgerCLI(stubLedger{tenants: []uuid.UUID{good, bad}, broken: bad})

	stdout := new(bytes.Buffer)
	code := cli.IntegrityCommand(context.Background(), LedgerOptions{Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitImbalanced, code)
	require.Contains(t, stdout.String(), good.String()+"  debit 100.00  credit 100.00  difference 0.00  balanced")
	require.Contains(t, stdout.String(), "OUT OF BALANCE")

	stdout.Reset()
	code = cli.IntegrityCommand(context.Background(), LedgerOptions{Tenant: good.String(), JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	var results []reports.Integrity
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, good, results[0].TenantID)
}
