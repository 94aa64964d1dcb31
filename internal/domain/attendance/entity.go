package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPresent   Status = "PRESENT"
	StatusAbsent    Status = "ABSENT"
	StatusHalfDay   Status = "HALF_DAY"
	StatusPaidLeave Status = "PAID_LEAVE"
	StatusOff       Status = "OFF"
)

var halfDay = decimal.RequireFromString("0.5")

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusPaidLeave, StatusOff:
		return true
	}
	return false
}

// PresentDayEquivalent is 1 for PRESENT and PAID_LEAVE, 0.5 for HALF_DAY.
func (s Status) PresentDayEquivalent() decimal.Decimal {
	switch s {
	case StatusPresent, StatusPaidLeave:
		return decimal.NewFromInt(1)
	case StatusHalfDay:
		return halfDay
	}
	return decimal.Zero
}

// DailyEvent is one employee's attendance for one calendar day.
type DailyEvent struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	WorkDate    time.Time
	Status      Status
	OTHours     decimal.Decimal
	LateMinutes int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Normalize zeroes overtime and lateness on OFF days.
func (e *DailyEvent) Normalize() {
	if e.Status == StatusOff {
		e.OTHours = decimal.Zero
		e.LateMinutes = 0
	}
}

// Totals are the three monthly attendance figures payroll consumes.
type Totals struct {
	PresentDays decimal.Decimal
	OTHours     decimal.Decimal
	LateMinutes int
}

// MonthlySummary is the derived per-month cache of DailyEvent rows. It is
// always rebuilt from the full month, never adjusted in place.
type MonthlySummary struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	Year        int
	Month       int
	PresentDays decimal.Decimal
	OTHours     decimal.Decimal
	LateMinutes int
	LastUpdated time.Time
}

func (s MonthlySummary) Totals() Totals {
	return Totals{PresentDays: s.PresentDays, OTHours: s.OTHours, LateMinutes: s.LateMinutes}
}

// UploadedTotals are monthly figures supplied by the file-import layer.
type UploadedTotals struct {
	CompanyID        string
	EmployeeID       string
	Year             int
	Month            int
	PresentDays      decimal.Decimal
	OTHours          decimal.Decimal
	LateMinutes      int
	TotalWorkingDays *int
	UploadedAt       time.Time
}

// LegacyAggregate is a row of the pre-summary monthly attendance table.
type LegacyAggregate struct {
	CompanyID   string
	EmployeeID  string
	Year        int
	Month       int
	PresentDays decimal.Decimal
	OTHours     decimal.Decimal
	LateMinutes int
}

// Source records where resolved monthly totals came from.
type Source string

const (
	SourceUploaded    Source = "uploaded"
	SourceSummary     Source = "summary"
	SourceLegacy      Source = "legacy"
	SourceDailyEvents Source = "daily_events"
)

// Resolved is the outcome of the attendance fallback chain.
type Resolved struct {
	Totals
	Source Source
	// TotalWorkingDays is only set when the uploaded totals carry their own.
	TotalWorkingDays *int
	LastUpdated      *time.Time
}

// RecomputeKey identifies one (tenant, employee, month) summary.
type RecomputeKey struct {
	CompanyID  string
	EmployeeID string
	Year       int
	Month      int
}

func KeyFor(companyID, employeeID string, date time.Time) RecomputeKey {
	return RecomputeKey{CompanyID: companyID, EmployeeID: employeeID, Year: date.Year(), Month: int(date.Month())}
}

func (k RecomputeKey) String() string {
	return fmt.Sprintf("%s/%s/%04d-%02d", k.CompanyID, k.EmployeeID, k.Year, k.Month)
}

// DepartmentAttendance feeds the attendance dashboard.
type DepartmentAttendance struct {
	Department  string
	Employees   int
	PresentDays decimal.Decimal
	OTHours     decimal.Decimal
	LateMinutes int
}
