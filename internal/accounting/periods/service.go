package periods

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	internalShared "github.com/nordeim/ledgersg/internal/shared"
)

// Service manages fiscal years and the open flag of their periods.
type Service struct {
	Resolver
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{Resolver: NewResolver(repo), repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateFiscalYear stores a fiscal year split into open monthly periods.
func (s *Service) CreateFiscalYear(ctx context.Context, in CreateFiscalYearInput) (FiscalYear, []Period, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return FiscalYear{}, nil, err
	}
	start, end := Day(in.StartDate), Day(in.EndDate)
	if end.Before(start) {
		return FiscalYear{}, nil, shared.Validationf("fiscal year end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if end.After(start.AddDate(1, 6, 0)) {
		return FiscalYear{}, nil, shared.Validationf("fiscal year cannot exceed 18 months")
	}
	now := s.now()
	fy := FiscalYear{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		Label:     in.Label,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
	}
	periods := GeneratePeriods(fy)
	for i := range periods {
		periods[i].CreatedAt = now
		periods[i].UpdatedAt = now
	}
	if err := CheckCoverage(fy, periods); err != nil {
		return FiscalYear{}, nil, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateFiscalYear(ctx, fy, periods); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			TenantID: fy.TenantID,
			ActorID:  in.ActorID,
			Action:   "fiscal_year.create",
			Entity:   "fiscal_year",
			EntityID: fy.ID.String(),
			After: map[string]any{
				"label":      fy.Label,
				"start_date": fy.StartDate.Format("2006-01-02"),
				"end_date":   fy.EndDate.Format("2006-01-02"),
				"periods":    len(periods),
			},
			At: now,
		})
	})
	if err != nil {
		return FiscalYear{}, nil, err
	}
	return fy, periods, nil
}

func (s *Service) Years(ctx context.Context, tenantID uuid.UUID) ([]FiscalYear, error) {
	return s.repo.ListYears(ctx, tenantID)
}

func (s *Service) Periods(ctx context.Context, tenantID, fiscalYearID uuid.UUID) ([]Period, error) {
	return s.repo.ListByYear(ctx, tenantID, fiscalYearID)
}

// Close stops postings into the period. Entries already posted are unaffected.
func (s *Service) Close(ctx context.Context, tenantID, periodID, actorID uuid.UUID) (Period, error) {
	return s.setOpen(ctx, tenantID, periodID, actorID, false)
}

// Reopen accepts postings into a closed period again.
func (s *Service) Reopen(ctx context.Context, tenantID, periodID, actorID uuid.UUID) (Period, error) {
	return s.setOpen(ctx, tenantID, periodID, actorID, true)
}

func (s *Service) setOpen(ctx context.Context, tenantID, periodID, actorID uuid.UUID, open bool) (Period, error) {
	var result Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		result = current
		if current.Open == open {
			return nil
		}
		now := s.now()
		if result, err = tx.SetOpen(ctx, tenantID, periodID, open, now); err != nil {
			return err
		}
		action := "period.close"
		if open {
			action = "period.reopen"
		}
		return tx.RecordAudit(ctx, internalShared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   action,
			Entity:   "fiscal_period",
			EntityID: periodID.String(),
			Before:   map[string]any{"is_open": current.Open},
			After:    map[string]any{"is_open": result.Open},
			At:       now,
		})
	})
	if err != nil {
		return Period{}, err
	}
	return result, nil
}
