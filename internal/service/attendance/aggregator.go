package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/shopspring/decimal"
)

type AggregatorImpl struct {
	attendanceRepo attendance.AttendanceRepository
	now            func() time.Time
}

func NewAggregator(attendanceRepo attendance.AttendanceRepository) attendance.Aggregator {
	return &AggregatorImpl{
		attendanceRepo: attendanceRepo,
		now:            time.Now,
	}
}

// Recompute rebuilds the monthly summary from every event of the month and
// overwrites the stored row.
func (a *AggregatorImpl) Recompute(ctx context.Context, companyID, employeeID string, year, month int) (attendance.MonthlySummary, error) {
	events, err := a.attendanceRepo.ListEventsForMonth(ctx, companyID, employeeID, year, month)
	if err != nil {
		return attendance.MonthlySummary{}, fmt.Errorf("failed to list attendance events: %w", err)
	}

	totals := Aggregate(events)
	summary, err := a.attendanceRepo.UpsertSummary(ctx, attendance.MonthlySummary{
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Year:        year,
		Month:       month,
		PresentDays: totals.PresentDays,
		OTHours:     totals.OTHours,
		LateMinutes: totals.LateMinutes,
		LastUpdated: a.now().UTC(),
	})
	if err != nil {
		return attendance.MonthlySummary{}, fmt.Errorf("failed to upsert attendance summary: %w", err)
	}
	return summary, nil
}

// Aggregate sums a month of events. OFF days contribute nothing.
func Aggregate(events []attendance.DailyEvent) attendance.Totals {
	totals := attendance.Totals{
		PresentDays: decimal.Zero,
		OTHours:     decimal.Zero,
	}
	for _, e := range events {
		if e.Status == attendance.StatusOff {
			continue
		}
		totals.PresentDays = totals.PresentDays.Add(e.Status.PresentDayEquivalent())
		totals.OTHours = totals.OTHours.Add(e.OTHours)
		totals.LateMinutes += e.LateMinutes
	}
	return totals
}

// WorkingDays counts the days of the month the employee is expected to work:
// on or after the joining date and not on a weekly off-day.
func WorkingDays(profile employee.Profile, year, month int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first
	if !profile.DateOfJoining.IsZero() {
		joined := time.Date(profile.DateOfJoining.Year(), profile.DateOfJoining.Month(), profile.DateOfJoining.Day(), 0, 0, 0, 0, time.UTC)
		if joined.After(last) {
			return 0
		}
		if joined.After(start) {
			start = joined
		}
	}

	days := 0
	for d := start; !d.After(last); d = d.AddDate(0, 0, 1) {
		if !profile.WeeklyOffDays.IsOff(d.Weekday()) {
			days++
		}
	}
	return days
}

// DaysInMonth returns the calendar length of the month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
