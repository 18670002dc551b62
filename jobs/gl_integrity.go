package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/nordeim/ledgersg/internal/accounting/reports"
	jobmetrics "github.com/nordeim/ledgersg/internal/jobs"
	"github.com/nordeim/ledgersg/internal/platform/cache"
	"github.com/nordeim/ledgersg/internal/shared"
)

const defaultIntegrityLockTTL = 5 * time.Minute

// Verifier recomputes a tenant's trial balance.
type Verifier interface {
	Tenants(ctx context.Context) ([]uuid.UUID, error)
	Verify(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.Integrity, error)
}

// Locker serialises runs for the same tenant across workers.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// StatusStore keeps the latest result per tenant.
type StatusStore interface {
	Put(ctx context.Context, key string, value any) error
}

// GLIntegrityConfig wires the integrity job.
type GLIntegrityConfig struct {
	Verifier Verifier
	Locker   Locker
	Store    StatusStore
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Parallel int
	LockTTL  time.Duration
}

// GLIntegrityJob checks that debits equal credits for every tenant ledger.
type GLIntegrityJob struct {
	verifier Verifier
	locker   Locker
	store    StatusStore
	log      *slog.Logger
	metrics  *jobmetrics.Metrics
	parallel int
	lockTTL  time.Duration
}

// IntegritySummary counts the outcome of one run.
type IntegritySummary struct {
	Checked    int
	Imbalanced int
	Skipped    int
}

// NewGLIntegrityJob builds the handler. Parallel defaults to 1.
func NewGLIntegrityJob(cfg GLIntegrityConfig) *GLIntegrityJob {
	j := &GLIntegrityJob{
		verifier: cfg.Verifier,
		locker:   cfg.Locker,
		store:    cfg.Store,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		parallel: cfg.Parallel,
		lockTTL:  cfg.LockTTL,
	}
	if j.log == nil {
		j.log = slog.Default()
	}
	j.log = j.log.With(slog.String("job", TaskGLIntegrity))
	if j.metrics == nil {
		j.metrics = defaultJobMetrics
	}
	if j.parallel <= 0 {
		j.parallel = 1
	}
	if j.lockTTL <= 0 {
		j.lockTTL = defaultIntegrityLockTTL
	}
	return j
}

// Handle processes TaskGLIntegrity tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.verifier == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.metrics.Track(TaskGLIntegrity)
	summary, err := j.Run(ctx, payload)
	if err != nil {
		j.log.Error("gl integrity run failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.log.Info("gl integrity run completed",
		slog.Int("checked", summary.Checked),
		slog.Int("imbalanced", summary.Imbalanced),
		slog.Int("skipped", summary.Skipped),
	)
	return tracker.End(nil)
}

// Run checks the payload's tenant, or every tenant when none is given. A
// failure on one tenant does not stop the others; all failures are returned
// together.
func (j *GLIntegrityJob) Run(ctx context.Context, payload GLIntegrityPayload) (IntegritySummary, error) {
	var tenants []uuid.UUID
	if payload.TenantID != nil {
		tenants = []uuid.UUID{*payload.TenantID}
	} else {
		var err error
		tenants, err = j.verifier.Tenants(ctx)
		if err != nil {
			return IntegritySummary{}, fmt.Errorf("gl integrity: list tenants: %w", err)
		}
	}

	var (
		mu      sync.Mutex
		summary IntegritySummary
		errs    []error
	)
	g := new(errgroup.Group)
	g.SetLimit(j.parallel)
	for _, tenantID := range tenants {
		g.Go(func() error {
			balanced, err := j.checkTenant(ctx, tenantID, payload.AsOf)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, cache.ErrLocked):
				summary.Skipped++
			case err != nil:
				errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			default:
				summary.Checked++
				if !balanced {
					summary.Imbalanced++
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return summary, errors.Join(errs...)
}

func (j *GLIntegrityJob) checkTenant(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (bool, error) {
	logger := j.log.With(slog.String("tenant_id", tenantID.String()))
	var balanced bool
	run := func(ctx context.Context) error {
		result, err := j.verifier.Verify(ctx, tenantID, asOf)
		if err != nil {
			return err
		}
		balanced = result.Balanced
		if j.store != nil {
			if err := j.store.Put(ctx, shared.IntegrityStatusKey(tenantID), result); err != nil {
				return fmt.Errorf("store status: %w", err)
			}
		}
		j.metrics.ObserveIntegrity(tenantID.String(), result.Difference.InexactFloat64(), result.Balanced)
		if !result.Balanced {
			logger.Error("ledger out of balance",
				slog.String("total_debit", result.TotalDebit.String()),
				slog.String("total_credit", result.TotalCredit.String()),
				slog.String("difference", result.Difference.String()),
			)
		}
		return nil
	}
	if j.locker == nil {
		return balanced, run(ctx)
	}
	err := j.locker.WithLock(ctx, shared.IntegrityLockKey(tenantID), j.lockTTL, run)
	if errors.Is(err, cache.ErrLocked) {
		logger.Info("integrity check already running, skipped")
	}
	return balanced, err
}
