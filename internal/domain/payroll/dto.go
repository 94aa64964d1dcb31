package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// MaxMarkPaidBatch caps one mark-paid request.
const MaxMarkPaidBatch = 1000

// ========== CALCULATION ==========

type CalculateRequest struct {
	ForceRecalculate bool `json:"force_recalculate"`
}

type CalculationReport struct {
	PeriodID   string      `json:"period_id"`
	Year       int         `json:"year"`
	Month      int         `json:"month"`
	DataSource DataSource  `json:"data_source"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	Errors     []ItemError `json:"errors,omitempty"`
}

// ========== PAYMENT ==========

type MarkPaidRequest struct {
	SalaryIDs   []string `json:"salary_ids"`
	Paid        *bool    `json:"paid"`
	PaymentDate *string  `json:"payment_date,omitempty"`
}

func (r *MarkPaidRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.SalaryIDs) == 0 {
		errs.Add("salary_ids", "at least one salary id is required")
	}
	if len(r.SalaryIDs) > MaxMarkPaidBatch {
		errs.Add("salary_ids", "too many salary ids in one request")
	}
	for _, id := range r.SalaryIDs {
		if validator.IsEmpty(id) {
			errs.Add("salary_ids", "salary ids must not be empty")
			break
		}
	}
	if r.Paid == nil {
		errs.Add("paid", "paid is required")
	}
	if r.PaymentDate != nil {
		if _, ok := validator.IsValidDate(*r.PaymentDate); !ok {
			errs.Add("payment_date", "payment_date must be in YYYY-MM-DD format")
		}
	}

	return errs.Err()
}

// ParsedPaymentDate returns the requested date or today.
func (r *MarkPaidRequest) ParsedPaymentDate(now time.Time) time.Time {
	if r.PaymentDate != nil {
		if d, ok := validator.IsValidDate(*r.PaymentDate); ok {
			return d
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type MarkPaidResponse struct {
	Updated        int             `json:"updated"`
	Unchanged      int             `json:"unchanged"`
	AllocatedTotal decimal.Decimal `json:"allocated_total"`
}

// ========== ADJUSTMENTS ==========

// UpdateAdvanceDeductionRequest sets a manual advance deduction; a null
// amount returns the salary to the automatic policy.
type UpdateAdvanceDeductionRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type UpdateIncentiveRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ========== RESPONSES ==========

type PeriodResponse struct {
	ID                 string          `json:"id"`
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	State              PeriodState     `json:"state"`
	DataSource         DataSource      `json:"data_source"`
	IsLocked           bool            `json:"is_locked"`
	LockedAt           *time.Time      `json:"locked_at,omitempty"`
	WorkingDaysInMonth int             `json:"working_days_in_month"`
	TDSRate            decimal.Decimal `json:"tds_rate"`
}

func ToPeriodResponse(p Period, salaryCount int) PeriodResponse {
	return PeriodResponse{
		ID:                 p.ID,
		Year:               p.Year,
		Month:              p.Month,
		State:              p.State(salaryCount),
		DataSource:         p.DataSource,
		IsLocked:           p.IsLocked,
		LockedAt:           p.LockedAt,
		WorkingDaysInMonth: p.WorkingDaysInMonth,
		TDSRate:            p.TDSRate,
	}
}

type PeriodOverviewResponse struct {
	PeriodResponse
	EmployeeCount int             `json:"employee_count"`
	PaidCount     int             `json:"paid_count"`
	TotalGross    decimal.Decimal `json:"total_gross"`
	TotalTDS      decimal.Decimal `json:"total_tds"`
	TotalAdvance  decimal.Decimal `json:"total_advance_deduction"`
	TotalNet      decimal.Decimal `json:"total_net_payable"`
}

type SalaryResponse struct {
	ID           string `json:"id"`
	PeriodID     string `json:"period_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeCode string `json:"employee_code,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	Department   string `json:"department,omitempty"`

	BasicSalary               decimal.Decimal   `json:"basic_salary"`
	TotalWorkingDays          int               `json:"total_working_days"`
	WorkingDaysSource         WorkingDaysSource `json:"working_days_source"`
	PresentDays               decimal.Decimal   `json:"present_days"`
	AbsentDays                decimal.Decimal   `json:"absent_days"`
	OTHours                   decimal.Decimal   `json:"ot_hours"`
	LateMinutes               int               `json:"late_minutes"`
	EmployeeOTRate            decimal.Decimal   `json:"employee_ot_rate"`
	EmployeeTDSRate           decimal.Decimal   `json:"employee_tds_rate"`
	Incentive                 decimal.Decimal   `json:"incentive"`
	OutstandingAdvanceBalance decimal.Decimal   `json:"outstanding_advance_balance"`
	AdvanceDeductionOverride  *decimal.Decimal  `json:"advance_deduction_override"`
	AttendanceSource          string            `json:"attendance_source"`

	SalaryForPresentDays    decimal.Decimal `json:"salary_for_present_days"`
	OTCharges               decimal.Decimal `json:"ot_charges"`
	LateDeduction           decimal.Decimal `json:"late_deduction"`
	GrossSalary             decimal.Decimal `json:"gross_salary"`
	TDSRate                 decimal.Decimal `json:"tds_rate"`
	TDSAmount               decimal.Decimal `json:"tds_amount"`
	SalaryAfterTDS          decimal.Decimal `json:"salary_after_tds"`
	AdvanceDeductionAmount  decimal.Decimal `json:"advance_deduction_amount"`
	RemainingAdvanceBalance decimal.Decimal `json:"remaining_advance_balance"`
	NetPayable              decimal.Decimal `json:"net_payable"`

	IsPaid      bool    `json:"is_paid"`
	PaymentDate *string `json:"payment_date,omitempty"`
}

func ToSalaryResponse(s CalculatedSalary) SalaryResponse {
	resp := SalaryResponse{
		ID:           s.ID,
		PeriodID:     s.PeriodID,
		EmployeeID:   s.EmployeeID,
		EmployeeCode: s.EmployeeCode,
		EmployeeName: s.EmployeeName,
		Department:   s.Department,

		BasicSalary:               s.BasicSalary,
		TotalWorkingDays:          s.TotalWorkingDays,
		WorkingDaysSource:         s.WorkingDaysSource,
		PresentDays:               s.PresentDays,
		AbsentDays:                s.AbsentDays,
		OTHours:                   s.OTHours,
		LateMinutes:               s.LateMinutes,
		EmployeeOTRate:            s.EmployeeOTRate,
		EmployeeTDSRate:           s.EmployeeTDSRate,
		Incentive:                 s.Incentive,
		OutstandingAdvanceBalance: s.OutstandingAdvanceBalance,
		AdvanceDeductionOverride:  s.AdvanceDeductionOverride,
		AttendanceSource:          s.AttendanceSource,

		SalaryForPresentDays:    s.SalaryForPresentDays,
		OTCharges:               s.OTCharges,
		LateDeduction:           s.LateDeduction,
		GrossSalary:             s.GrossSalary,
		TDSRate:                 s.AppliedTDSRate,
		TDSAmount:               s.TDSAmount,
		SalaryAfterTDS:          s.SalaryAfterTDS,
		AdvanceDeductionAmount:  s.AdvanceDeductionAmount,
		RemainingAdvanceBalance: s.RemainingAdvanceBalance,
		NetPayable:              s.NetPayable,

		IsPaid: s.IsPaid,
	}
	if s.PaymentDate != nil {
		d := s.PaymentDate.Format("2006-01-02")
		resp.PaymentDate = &d
	}
	return resp
}
