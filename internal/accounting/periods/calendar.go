package periods

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
)

// GeneratePeriods splits the fiscal year into monthly periods. The last
// period is shortened when the year does not end on a month boundary.
func GeneratePeriods(fy FiscalYear) []Period {
	start, end := Day(fy.StartDate), Day(fy.EndDate)
	var out []Period
	for n := 1; ; n++ {
		cursor := addMonths(start, n-1)
		if cursor.After(end) {
			break
		}
		last := addMonths(start, n).AddDate(0, 0, -1)
		if last.After(end) {
			last = end
		}
		out = append(out, Period{
			ID:           uuid.New(),
			TenantID:     fy.TenantID,
			FiscalYearID: fy.ID,
			Number:       n,
			Label:        cursor.Format("2006-01"),
			StartDate:    cursor,
			EndDate:      last,
			Open:         true,
		})
	}
	return out
}

// addMonths moves t forward k months, clamping the day to the target month.
func addMonths(t time.Time, k int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	if lastDay := first.AddDate(0, 1, -1).Day(); d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// CheckCoverage verifies that periods tile the fiscal year with no gaps or
// overlaps.
func CheckCoverage(fy FiscalYear, periods []Period) error {
	if len(periods) == 0 {
		return shared.Validationf("fiscal year %s has no periods", fy.Label)
	}
	sorted := append([]Period(nil), periods...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartDate.Before(sorted[j].StartDate) })
	if !Day(sorted[0].StartDate).Equal(Day(fy.StartDate)) {
		return shared.Validationf("fiscal year %s: first period starts %s, expected %s", fy.Label, sorted[0].StartDate.Format("2006-01-02"), fy.StartDate.Format("2006-01-02"))
	}
	for i, p := range sorted {
		if Day(p.EndDate).Before(Day(p.StartDate)) {
			return shared.Validationf("period %s ends before it starts", p.Label)
		}
		if i == 0 {
			continue
		}
		want := Day(sorted[i-1].EndDate).AddDate(0, 0, 1)
		if got := Day(p.StartDate); !got.Equal(want) {
			if got.Before(want) {
				return shared.Validationf("period %s overlaps %s", p.Label, sorted[i-1].Label)
			}
			return shared.Validationf("gap between %s and %s", sorted[i-1].Label, p.Label)
		}
	}
	if last := sorted[len(sorted)-1]; !Day(last.EndDate).Equal(Day(fy.EndDate)) {
		return shared.Validationf("fiscal year %s: last period ends %s, expected %s", fy.Label, last.EndDate.Format("2006-01-02"), fy.EndDate.Format("2006-01-02"))
	}
	return nil
}
