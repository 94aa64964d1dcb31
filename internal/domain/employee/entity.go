package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the employee master data the payroll engine reads. It is owned by
// HR workflows; only the active flag is written from here.
type Profile struct {
	ID            string
	CompanyID     string
	EmployeeCode  string
	FullName      string
	Department    string
	BasicSalary   decimal.Decimal
	OTRatePerHour decimal.Decimal // zero means derive from basic salary
	TDSPercent    decimal.Decimal
	WeeklyOffDays WeeklyOffDays
	DateOfJoining time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WeeklyOffDays is indexed by time.Weekday (Sunday = 0).
type WeeklyOffDays [7]bool

func (w WeeklyOffDays) IsOff(day time.Weekday) bool {
	return w[day]
}

// Count returns the number of configured off-days per week.
func (w WeeklyOffDays) Count() int {
	n := 0
	for _, off := range w {
		if off {
			n++
		}
	}
	return n
}
