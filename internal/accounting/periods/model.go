package periods

import (
	"time"

	"github.com/google/uuid"
)

// FiscalYear is a contiguous date range split into monthly periods.
type FiscalYear struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Label     string
	StartDate time.Time
	EndDate   time.Time
	IsClosed  bool
	CreatedAt time.Time
}

// Period represents a fiscal period window.
type Period struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	FiscalYearID uuid.UUID
	Number       int
	Label        string
	StartDate    time.Time
	EndDate      time.Time
	Open         bool
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOpen reports whether postings are accepted.
func (p Period) IsOpen() bool {
	return p.Open
}

// Contains reports whether the calendar day of t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateFiscalYearInput describes a new fiscal year.
type CreateFiscalYearInput struct {
	TenantID  uuid.UUID `validate:"required"`
	Label     string    `validate:"required,max=50"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required"`
	ActorID   uuid.UUID
}
