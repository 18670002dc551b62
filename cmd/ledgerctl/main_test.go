package main

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

	"github.com/nordeim/ledgersg/cmd/ledgerctl/cli"
	"github.com/nordeim/ledgersg/internal/accounting/accounts"
	"github.com/nordeim/ledgersg/internal/accounting/reports"
	"github.com/nordeim/ledgersg/internal/app"
)

type stubReader struct {
	tenants []uuid.UUID
	rows    []reports.AccountBalance
	broken  uuid.UUID
}

func (s stubReader) Tenants(context.Context) ([]uuid.UUID, error) {
	return s.tenants, nil
}

func (s stubReader) TrialBalance(_ context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.TrialBalance, error) {
	return reports.NewTrialBalance(tenantID, asOf, s.rows), nil
}

func (s stubReader) Verify(_ context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.Integrity, error) {
	diff := decimal.Zero
	if tenantID == s.broken {
		diff = decimal.RequireFromString("1.25")
	}
	return reports.Integrity{
		TenantID:    tenantID,
		AsOf:        asOf,
		TotalDebit:  decimal.RequireFromString("50").Add(diff),
		TotalCredit: decimal.RequireFromString("50"),
		Difference:  diff,
		Balanced:    diff.IsZero(),
	}, nil
}

type harness struct {
	env    *environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	opened int
	closed int
}

func newHarness(t *testing.T, reader cli.LedgerReader) *harness {
	t.Helper()
	h := &harness{stdout: new(bytes.Buffer), stderr: new(bytes.Buffer)}
	h.env = &environment{
		stdout: h.stdout,
		stderr: h.stderr,
		loadConfig: func() (*app.Config, error) {
			return &app.Config{AppEnv: "test", LogFormat: "text", LogLevel: "error", BaseCurrency: "SGD"}, nil
		},
		openLedger: func(context.Context, *app.Config) (cli.LedgerReader, func(), error) {
			h.opened++
			return reader, func() { h.closed++ }, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) int {
	return execute(context.Background(), h.env, append([]string{}, args...))
}

func TestExecuteUsage(t *testing.T) {
	t.Run("no command prints help", func(t *testing.T) {
		h := newHarness(t, stubReader{})
		require.Equal(t, 2, h.run())
		require.Contains(t, h.stdout.String(), "trial-balance")
		require.Contains(t, h.stdout.String(), "integrity")
	})

	t.Run("help flag", func(t *testing.T) {
		h := newHarness(t, stubReader{})
		require.Equal(t, 0, h.run("integrity", "--help"))
		require.Contains(t, h.stdout.String(), "--enqueue")
		require.Zero(t, h.opened)
	})

	t.Run("unknown command", func(t *testing.T) {
		h := newHarness(t, stubReader{})
		require.Equal(t, 2, h.run("rebalance"))
		require.Contains(t, h.stderr.String(), `unknown command "rebalance"`)
	})

	t.Run("unknown flag", func(t *testing.T) {
		h := newHarness(t, stubReader{})
		require.Equal(t, 2, h.run("trial-balance", "--bogus"))
		require.Zero(t, h.opened)
	})

	t.Run("stray argument", func(t *testing.T) {
		h := newHarness(t, stubReader{})
		require.Equal(t, 2, h.run("integrity", "extra"))
	})
}

func TestExecuteConfigError(t *testing.T) {
	h := newHarness(t, stubReader{})
	h.env.loadConfig = func() (*app.Config, error) { return nil, errors.New("PG_DSN: bad") }

	require.Equal(t, 1, h.run("integrity"))
	require.Contains(t, h.stderr.String(), "load config: PG_DSN: bad")
	require.Zero(t, h.opened)
}

func TestExecuteOpenLedgerError(t *testing.T) {
	h := newHarness(t, stubReader{})
	h.env.openLedger = func(context.Context, *app.Config) (cli.LedgerReader, func(), error) {
		return nil, nil, errors.New("connect database: refused")
	}

	require.Equal(t, 1, h.run("trial-balance", "--tenant", uuid.NewString()))
	require.Contains(t, h.stderr.String(), "connect database: refused")
}

func TestExecuteTrialBalance(t *testing.T) {
	tenant := uuid.New()
	rows := []reports.AccountBalance{
		{Code: "1200", Name: "Trade Receivables", Type: accounts.TypeAssetCurrent, Debit: decimal.RequireFromString("109")},
		{Code: "4000", Name: "Sales Revenue", Type: accounts.TypeRevenue, Credit: decimal.RequireFromString("100")},
		{Code: "2200", Name: "GST Output Tax", Type: accounts.TypeLiabilityCurrent, Credit: decimal.RequireFromString("9")},
	}

	h := newHarness(t, stubReader{rows: rows})
	code := h.run("trial-balance", "--tenant", tenant.String(), "--as-of", "2025-06-30", "--json")
	require.Equal(t, 0, code, h.stderr.String())
	require.Equal(t, 1, h.opened)
	require.Equal(t, 1, h.closed)

	var summary cli.TrialBalanceSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))
	require.Equal(t, tenant, summary.TenantID)
	require.Equal(t, "2025-06-30", summary.AsOf)
	require.Equal(t, "109.00", summary.TotalDebit)
	require.True(t, summary.Balanced)

	lopsided := newHarness(t, stubReader{rows: rows[:2]})
	require.Equal(t, cli.ExitImbalanced, lopsided.run("trial-balance", "--tenant", tenant.String()))
	require.Contains(t, lopsided.stdout.String(), "OUT OF BALANCE")

	missing := newHarness(t, stubReader{rows: rows})
	require.Equal(t, 1, missing.run("trial-balance"))
	require.Contains(t, missing.stderr.String(), "--tenant is required")
}

func TestExecuteIntegrity(t *testing.T) {
	good, bad := uuid.New(), uuid.New()

	h := newHarness(t, stubReader{tenants: []uuid.UUID{good, bad}, broken: bad})
	require.Equal(t, cli.ExitImbalanced, h.run("integrity", "--json"))

	var results []reports.Integrity
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &results))
	require.Len(t, results, 2)
	require.True(t, results[0].Balanced)
	require.False(t, results[1].Balanced)

	single := newHarness(t, stubReader{tenants: []uuid.UUID{good, bad}, broken: bad})
	require.Equal(t, 0, single.run("integrity", "--tenant", good.String()))
	require.Contains(t, single.stdout.String(), "balanced")

	badDate := newHarness(t, stubReader{})
	require.Equal(t, 1, badDate.run("integrity", "--enqueue", "--as-of", "30/06/2025"))
	require.Contains(t, badDate.stderr.String(), "invalid date")
}
