package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type DirectoryFilter struct {
	Department string
	ActiveOnly bool
}

type SetActiveStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

type DirectoryEntry struct {
	ID            string          `json:"id"`
	EmployeeCode  string          `json:"employee_code"`
	FullName      string          `json:"full_name"`
	Department    string          `json:"department"`
	BasicSalary   decimal.Decimal `json:"basic_salary"`
	OTRatePerHour decimal.Decimal `json:"ot_rate_per_hour"`
	TDSPercent    decimal.Decimal `json:"tds_percent"`
	WeeklyOffDays []string        `json:"weekly_off_days"`
	DateOfJoining string          `json:"date_of_joining"`
	IsActive      bool            `json:"is_active"`
}

func ToDirectoryEntry(p Profile) DirectoryEntry {
	offDays := make([]string, 0, p.WeeklyOffDays.Count())
	for d := time.Sunday; d <= time.Saturday; d++ {
		if p.WeeklyOffDays.IsOff(d) {
			offDays = append(offDays, d.String())
		}
	}
	return DirectoryEntry{
		ID:            p.ID,
		EmployeeCode:  p.EmployeeCode,
		FullName:      p.FullName,
		Department:    p.Department,
		BasicSalary:   p.BasicSalary,
		OTRatePerHour: p.OTRatePerHour,
		TDSPercent:    p.TDSPercent,
		WeeklyOffDays: offDays,
		DateOfJoining: p.DateOfJoining.Format("2006-01-02"),
		IsActive:      p.IsActive,
	}
}
