package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var partial *payroll.PartialBatchFailure
	if errors.As(err, &partial) {
		MultiStatus(w, "Batch completed with failures", partial)
		return
	}

	switch {
	case errors.Is(err, tenant.ErrTenantRequired):
		writeError(w, http.StatusForbidden, "TENANT_REQUIRED", "Company context is required")
	case errors.Is(err, lock.ErrNotObtained):
		Conflict(w, "Operation already in progress, retry later")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeAlreadyActive):
		Conflict(w, "Employee is already active")
	case errors.Is(err, employee.ErrEmployeeAlreadyInactive):
		Conflict(w, "Employee is already inactive")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrEventNotFound):
		NotFound(w, "Attendance event not found")
	case errors.Is(err, attendance.ErrInvalidPeriod):
		BadRequest(w, "Invalid attendance period", nil)
	case errors.Is(err, attendance.ErrInvalidStatus):
		BadRequest(w, "Invalid attendance status", nil)
	case errors.Is(err, attendance.ErrBatchTooLarge):
		BadRequest(w, "Attendance batch too large", nil)

	// Advance domain errors
	case errors.Is(err, advance.ErrAdvanceNotFound):
		NotFound(w, "Advance not found")
	case errors.Is(err, advance.ErrInvalidAmount):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, advance.ErrAdvanceOverAllocation):
		slog.Error("advance ledger invariant violated", "error", err)
		InternalServerError(w, "An unexpected error occurred")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPeriodNotFound):
		NotFound(w, "Payroll period not found")
	case errors.Is(err, payroll.ErrSalaryNotFound):
		NotFound(w, "Calculated salary not found")
	case errors.Is(err, payroll.ErrPeriodLocked):
		Conflict(w, "Payroll period is locked")
	case errors.Is(err, payroll.ErrPeriodHasPaidSalaries):
		Conflict(w, "Payroll period has paid salaries")
	case errors.Is(err, payroll.ErrSalaryAlreadyPaid):
		Conflict(w, "Calculated salary already paid")
	case errors.Is(err, payroll.ErrPaymentReversalForbidden):
		Conflict(w, "Payment already deducted advances and cannot be reversed")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, "Invalid payroll period", nil)
	case errors.Is(err, payroll.ErrInvalidAmount):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrEmployeeHasNoBaseSalary):
		BadRequest(w, "Employee has no basic salary configured", nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
