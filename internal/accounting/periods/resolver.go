package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// Finder is the lookup the resolver needs. The pool repository and the
// journal transaction both provide one.
type Finder interface {
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (Period, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (Period, error)
}

// Resolver maps dates and period ids to postable periods.
type Resolver struct {
	finder Finder
}

func NewResolver(finder Finder) Resolver {
	return Resolver{finder: finder}
}

// Resolve returns the tenant's period covering date or shared.ErrPeriodNotFound.
func (r Resolver) Resolve(ctx context.Context, tenantID uuid.UUID, date time.Time) (Period, error) {
	return r.finder.FindByDate(ctx, tenantID, Day(date))
}

// ResolveOpen is Resolve followed by EnsureOpen.
func (r Resolver) ResolveOpen(ctx context.Context, tenantID uuid.UUID, date time.Time) (Period, error) {
	p, err := r.Resolve(ctx, tenantID, date)
	if err != nil {
		return Period{}, err
	}
	if err := EnsureOpen(p); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate checks a caller supplied period: it must belong to the tenant, be
// open and contain date.
func (r Resolver) Validate(ctx context.Context, tenantID, periodID uuid.UUID, date time.Time) (Period, error) {
	p, err := r.finder.Get(ctx, tenantID, periodID)
	if err != nil {
		return Period{}, err
	}
	if err := EnsureOpen(p); err != nil {
		return Period{}, err
	}
	if !p.Contains(date) {
		return Period{}, fmt.Errorf("%w: %s is not within %s", shared.ErrDateOutOfRange, Day(date).Format("2006-01-02"), p.Label)
	}
	return p, nil
}

// ForPosting validates periodID when given and resolves it from date otherwise.
func (r Resolver) ForPosting(ctx context.Context, tenantID uuid.UUID, date time.Time, periodID *uuid.UUID) (Period, error) {
	if periodID != nil && *periodID != uuid.Nil {
		return r.Validate(ctx, tenantID, *periodID, date)
	}
	return r.ResolveOpen(ctx, tenantID, date)
}

// EnsureOpen returns shared.ErrPeriodClosed for a closed period.
func EnsureOpen(p Period) error {
	if !p.IsOpen() {
		return fmt.Errorf("%w: %s", shared.ErrPeriodClosed, p.Label)
	}
	return nil
}

// IsNotFound reports whether err means no period covers the request.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrPeriodNotFound)
}
