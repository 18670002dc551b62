package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nordeim/ledgersg/cmd/ledgerctl/cli"
	"github.com/nordeim/ledgersg/internal/app"
	"github.com/nordeim/ledgersg/internal/platform/db"
)

// environment holds what the commands share: output streams, the loaded
// config and the ledger connection factory.
type environment struct {
	stdout io.Writer
	stderr io.Writer

	loadConfig func() (*app.Config, error)
	openLedger func(ctx context.Context, cfg *app.Config) (cli.LedgerReader, func(), error)

	cfg    *app.Config
	logger *slog.Logger
}

func newEnvironment(stdout, stderr io.Writer) *environment {
	return &environment{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: app.LoadConfig,
		openLedger: openLedger,
	}
}

func openLedger(ctx context.Context, cfg *app.Config) (cli.LedgerReader, func(), error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return app.NewLedger(pool, cfg).Reports, pool.Close, nil
}

func newRootCmd(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operator tasks for the ledger",
		Long: `ledgerctl runs operator tasks against the ledger database.

Exit status is 0 on success, 1 on error, 2 on a usage error and 10 when a
ledger is out of balance.

Example:
  ledgerctl migrate
  ledgerctl trial-balance --tenant 6f1c... --as-of 2025-12-31
  ledgerctl integrity --json`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return exitCode(2)
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := env.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env.cfg = cfg
			env.logger = app.NewLogger(cfg)
			return nil
		},
	}
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newMigrateCmd(env),
		newQueueCmd(env),
		newTrialBalanceCmd(env),
		newIntegrityCmd(env),
	)
	return root
}

func newMigrateCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := db.Migrate(env.cfg.PGDSN, env.logger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
	}
}

func newQueueCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show background queue depth",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobsCLI := cli.NewJobsCLI(env.cfg.RedisAddr)
			defer func() { _ = jobsCLI.Close() }()
			stats, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return fmt.Errorf("queue: %w", err)
			}
			_, _ = fmt.Fprintf(env.stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		},
	}
}

func bindLedgerFlags(cmd *cobra.Command, opts *cli.LedgerOptions) {
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "include entries dated on or before YYYY-MM-DD")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON")
}

func newTrialBalanceCmd(env *environment) *cobra.Command {
	opts := cli.LedgerOptions{}
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print a tenant's trial balance",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Stdout, opts.Stderr = env.stdout, env.stderr
			reader, closeFn, err := env.openLedger(cmd.Context(), env.cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return exitWith(cli.NewLedgerCLI(reader).TrialBalanceCommand(cmd.Context(), opts))
		},
	}
	bindLedgerFlags(cmd, &opts)
	return cmd
}

func newIntegrityCmd(env *environment) *cobra.Command {
	opts := cli.LedgerOptions{}
	var enqueue bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Verify that debits equal credits",
		Long: `Verify that total debits equal total credits for one tenant, or for
every tenant when --tenant is omitted. With --enqueue the check is queued on
the worker instead of running here.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Stdout, opts.Stderr = env.stdout, env.stderr
			if enqueue {
				return exitWith(enqueueIntegrity(cmd.Context(), env, opts))
			}
			reader, closeFn, err := env.openLedger(cmd.Context(), env.cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return exitWith(cli.NewLedgerCLI(reader).IntegrityCommand(cmd.Context(), opts))
		},
	}
	bindLedgerFlags(cmd, &opts)
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue the integrity run on the worker instead of running it here")
	return cmd
}

func enqueueIntegrity(ctx context.Context, env *environment, opts cli.LedgerOptions) int {
	var tenantID *uuid.UUID
	if opts.Tenant != "" {
		id, err := uuid.Parse(opts.Tenant)
		if err != nil {
			_, _ = fmt.Fprintln(env.stderr, "integrity: --tenant must be a uuid")
			return 1
		}
		tenantID = &id
	}
	asOf, err := cli.ParseAsOf(opts.AsOf)
	if err != nil {
		_, _ = fmt.Fprintf(env.stderr, "integrity: %v\n", err)
		return 1
	}
	jobsCLI := cli.NewJobsCLI(env.cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()
	info, err := jobsCLI.TriggerIntegrity(ctx, tenantID, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(env.stderr, "integrity: enqueue: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(env.stdout, "enqueued %s (%s)\n", info.ID, info.Queue)
	return 0
}
