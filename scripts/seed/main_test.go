package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func runSeedCmd(t *testing.T, args ...string) (seedOptions, bool, error) {
	t.Helper()
	var (
		got    seedOptions
		called bool
	)
	cmd := newRootCmd(func(_ context.Context, opts seedOptions) error {
		got, called = opts, true
		return nil
	})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return got, called, err
}

func TestSeedCommandDefaults(t *testing.T) {
	opts, called, err := runSeedCmd(t)
	require.NoError(t, err)
	require.True(t, called)
	require.NotEqual(t, uuid.Nil, opts.TenantID)
	require.Equal(t, "Demo Pte. Ltd.", opts.Name)
	require.Equal(t, time.Now().Year(), opts.Year)
}

func TestSeedCommandFlags(t *testing.T) {
	tenant := uuid.New()
	opts, called, err := runSeedCmd(t, "--tenant", tenant.String(), "--name", "Acme Pte. Ltd.", "--year", "2026")
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, seedOptions{TenantID: tenant, Name: "Acme Pte. Ltd.", Year: 2026}, opts)
}

func TestSeedCommandRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"tenant":   {"--tenant", "acme"},
		"year":     {"--year", "20"},
		"argument": {"extra"},
		"flag":     {"--bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, called, err := runSeedCmd(t, args...)
			require.Error(t, err)
			require.False(t, called)
		})
	}
}

func TestDefaultChartMappings(t *testing.T) {
	codes := make(map[string]bool, len(defaultChart))
	for _, sa := range defaultChart {
		require.False(t, codes[sa.Code], "duplicate code %s", sa.Code)
		if sa.Parent != "" {
			require.True(t, codes[sa.Parent], "parent %s must precede %s", sa.Parent, sa.Code)
		}
		codes[sa.Code] = true
	}
	for key, code := range controlMappings {
		require.True(t, codes[code], "mapping %s points at unknown code %s", key, code)
	}
}
