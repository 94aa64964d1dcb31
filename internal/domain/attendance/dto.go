package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// MaxBulkEvents caps one bulk ingestion request.
const MaxBulkEvents = 5000

// ========================================
// INGESTION DTOs
// ========================================

type UpsertEventRequest struct {
	EmployeeID  string          `json:"employee_id"`
	Date        string          `json:"date"`
	Status      Status          `json:"status"`
	OTHours     decimal.Decimal `json:"ot_hours"`
	LateMinutes int             `json:"late_minutes"`
}

func (r *UpsertEventRequest) Validate() error {
	return r.validate().Err()
}

func (r *UpsertEventRequest) validate() validator.ValidationErrors {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	if !r.Status.IsValid() {
		errs.Add("status", "status must be one of PRESENT, ABSENT, HALF_DAY, PAID_LEAVE, OFF")
	}
	if !validator.IsNonNegative(r.OTHours) {
		errs.Add("ot_hours", "ot_hours must not be negative")
	}
	if r.LateMinutes < 0 {
		errs.Add("late_minutes", "late_minutes must not be negative")
	}

	return errs
}

// ToEvent converts a validated request into a normalized DailyEvent.
func (r *UpsertEventRequest) ToEvent(companyID string) DailyEvent {
	date, _ := validator.IsValidDate(r.Date)
	e := DailyEvent{
		CompanyID:   companyID,
		EmployeeID:  r.EmployeeID,
		WorkDate:    date,
		Status:      r.Status,
		OTHours:     r.OTHours,
		LateMinutes: r.LateMinutes,
	}
	e.Normalize()
	return e
}

type BulkUpsertRequest struct {
	Events []UpsertEventRequest `json:"events"`
}

func (r *BulkUpsertRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Events) == 0 {
		errs.Add("events", "at least one event is required")
	}
	if len(r.Events) > MaxBulkEvents {
		errs.Add("events", fmt.Sprintf("at most %d events per request", MaxBulkEvents))
	}
	for i := range r.Events {
		itemErrs := r.Events[i].validate()
		errs = append(errs, itemErrs.Prefixed(fmt.Sprintf("events[%d]", i))...)
	}

	return errs.Err()
}

type BulkUpsertResponse struct {
	Upserted         int `json:"upserted"`
	RecomputeQueued  int `json:"recompute_queued"`
	EmployeesTouched int `json:"employees_touched"`
}

type EventResponse struct {
	EmployeeID  string          `json:"employee_id"`
	Date        string          `json:"date"`
	Status      Status          `json:"status"`
	OTHours     decimal.Decimal `json:"ot_hours"`
	LateMinutes int             `json:"late_minutes"`
	Summary     SummaryResponse `json:"summary"`
}

// ========================================
// UPLOADED TOTALS DTOs
// ========================================

type UploadedTotalsRow struct {
	EmployeeID       string          `json:"employee_id"`
	PresentDays      decimal.Decimal `json:"present_days"`
	OTHours          decimal.Decimal `json:"ot_hours"`
	LateMinutes      int             `json:"late_minutes"`
	TotalWorkingDays *int            `json:"total_working_days,omitempty"`
}

type UploadTotalsRequest struct {
	Year  int                 `json:"year"`
	Month int                 `json:"month"`
	Rows  []UploadedTotalsRow `json:"rows"`
}

func (r *UploadTotalsRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidPeriod(r.Year, r.Month) {
		errs.Add("period", "year/month is not a valid payroll month")
	}
	if len(r.Rows) == 0 {
		errs.Add("rows", "at least one row is required")
	}
	for i, row := range r.Rows {
		field := fmt.Sprintf("rows[%d]", i)
		if validator.IsEmpty(row.EmployeeID) {
			errs.Add(field+".employee_id", "employee_id is required")
		}
		if !validator.IsNonNegative(row.PresentDays) {
			errs.Add(field+".present_days", "present_days must not be negative")
		}
		if !validator.IsNonNegative(row.OTHours) {
			errs.Add(field+".ot_hours", "ot_hours must not be negative")
		}
		if row.LateMinutes < 0 {
			errs.Add(field+".late_minutes", "late_minutes must not be negative")
		}
		if row.TotalWorkingDays != nil && (*row.TotalWorkingDays < 0 || *row.TotalWorkingDays > 31) {
			errs.Add(field+".total_working_days", "total_working_days must be between 0 and 31")
		}
	}

	return errs.Err()
}

type UploadTotalsResponse struct {
	Stored int `json:"stored"`
}

// ========================================
// READ DTOs
// ========================================

type SummaryResponse struct {
	EmployeeID  string          `json:"employee_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	WorkingDays int             `json:"working_days"`
	PresentDays decimal.Decimal `json:"present_days"`
	AbsentDays  decimal.Decimal `json:"absent_days"`
	OTHours     decimal.Decimal `json:"ot_hours"`
	LateMinutes int             `json:"late_minutes"`
	Source      Source          `json:"source"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
}

type WorkingDaysResponse struct {
	EmployeeID  string `json:"employee_id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	WorkingDays int    `json:"working_days"`
	DaysInMonth int    `json:"days_in_month"`
}

// AbsentDays is max(0, workingDays - presentDays).
func AbsentDays(workingDays int, presentDays decimal.Decimal) decimal.Decimal {
	absent := decimal.NewFromInt(int64(workingDays)).Sub(presentDays)
	if absent.IsNegative() {
		return decimal.Zero
	}
	return absent
}
