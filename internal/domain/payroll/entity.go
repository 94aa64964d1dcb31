package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource records where a period's attendance figures came from.
type DataSource string

const (
	DataSourceUploaded DataSource = "UPLOADED"
	DataSourceFrontend DataSource = "FRONTEND"
	DataSourceHybrid   DataSource = "HYBRID"
)

// PeriodState is derived from is_locked and the presence of salary rows.
type PeriodState string

const (
	PeriodStateOpen       PeriodState = "OPEN"
	PeriodStateCalculated PeriodState = "CALCULATED"
	PeriodStateLocked     PeriodState = "LOCKED"
)

// Period is one tenant's payroll month.
type Period struct {
	ID                 string
	CompanyID          string
	Year               int
	Month              int
	DataSource         DataSource
	IsLocked           bool
	LockedAt           *time.Time
	WorkingDaysInMonth int
	TDSRate            decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Period) State(salaryCount int) PeriodState {
	switch {
	case p.IsLocked:
		return PeriodStateLocked
	case salaryCount > 0:
		return PeriodStateCalculated
	default:
		return PeriodStateOpen
	}
}

// WorkingDaysSource selects how total_working_days is obtained for a salary.
type WorkingDaysSource string

const (
	// WorkingDaysFromEmployee walks the calendar excluding the employee's
	// off-days and pre-joining days.
	WorkingDaysFromEmployee WorkingDaysSource = "employee"
	// WorkingDaysFromPeriod uses the period's working_days_in_month, or the
	// number of days in the month when that is unset.
	WorkingDaysFromPeriod WorkingDaysSource = "period"
	// WorkingDaysFromUpload is used when uploaded totals carry their own figure.
	WorkingDaysFromUpload WorkingDaysSource = "upload"
)

// CalculationInput is the snapshot the salary formula runs on.
type CalculationInput struct {
	BasicSalary               decimal.Decimal
	TotalWorkingDays          int
	PresentDays               decimal.Decimal
	OTHours                   decimal.Decimal
	LateMinutes               int
	EmployeeOTRate            decimal.Decimal
	EmployeeTDSRate           decimal.Decimal
	PeriodTDSRate             decimal.Decimal
	Incentive                 decimal.Decimal
	OutstandingAdvanceBalance decimal.Decimal
	AdvanceDeductionOverride  *decimal.Decimal
}

// CalculationResult holds the derived outputs, rounded to 2 places.
type CalculationResult struct {
	SalaryForPresentDays    decimal.Decimal
	OTCharges               decimal.Decimal
	LateDeduction           decimal.Decimal
	GrossSalary             decimal.Decimal
	AppliedTDSRate          decimal.Decimal
	TDSAmount               decimal.Decimal
	SalaryAfterTDS          decimal.Decimal
	AdvanceDeductionAmount  decimal.Decimal
	RemainingAdvanceBalance decimal.Decimal
	NetPayable              decimal.Decimal
}

// CalculatedSalary is one employee's salary for a period: the input snapshot,
// the derived outputs and the payment state.
type CalculatedSalary struct {
	ID         string
	CompanyID  string
	PeriodID   string
	EmployeeID string

	CalculationInput
	AbsentDays        decimal.Decimal
	AttendanceSource  string
	WorkingDaysSource WorkingDaysSource

	CalculationResult

	IsPaid         bool
	PaymentDate    *time.Time
	PaymentEventID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Joined fields
	EmployeeCode string
	EmployeeName string
	Department   string
}

// PeriodOverview is one row of the tenant's payroll period listing.
type PeriodOverview struct {
	Period
	EmployeeCount int
	PaidCount     int
	TotalGross    decimal.Decimal
	TotalTDS      decimal.Decimal
	TotalAdvance  decimal.Decimal
	TotalNet      decimal.Decimal
}

// PeriodTotals aggregates salaries of one month, used by the dashboard.
type PeriodTotals struct {
	EmployeeCount int
	PaidCount     int
	TotalGross    decimal.Decimal
	TotalNet      decimal.Decimal
}
