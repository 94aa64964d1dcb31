package payroll

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPeriodNotFound           = errors.New("payroll period not found")
	ErrPeriodLocked             = errors.New("payroll period is locked")
	ErrInvalidPeriod            = errors.New("invalid payroll period")
	ErrPeriodHasPaidSalaries    = errors.New("payroll period has paid salaries, cannot delete")
	ErrSalaryNotFound           = errors.New("calculated salary not found")
	ErrSalaryAlreadyPaid        = errors.New("calculated salary already paid, cannot modify")
	ErrPaymentReversalForbidden = errors.New("cannot unmark a payment that already deducted advances")
	ErrInvalidAmount            = errors.New("invalid amount: must be a non-negative number")
	ErrEmployeeHasNoBaseSalary  = errors.New("employee has no basic salary configured")
)

// MaxReportedErrors caps the item errors carried by a PartialBatchFailure.
const MaxReportedErrors = 20

type ItemError struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// PartialBatchFailure reports a batch where some items failed. The batch
// itself ran to completion.
type PartialBatchFailure struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Errors    []ItemError `json:"errors"`
}

func (e *PartialBatchFailure) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ie := range e.Errors {
		msgs = append(msgs, ie.EmployeeID+": "+ie.Message)
	}
	return fmt.Sprintf("partial batch failure: %d succeeded, %d failed, %d skipped (%s)",
		e.Succeeded, e.Failed, e.Skipped, strings.Join(msgs, "; "))
}

// Record counts a failed item, keeping only the first MaxReportedErrors messages.
func (e *PartialBatchFailure) Record(employeeID string, err error) {
	e.Failed++
	if len(e.Errors) < MaxReportedErrors {
		e.Errors = append(e.Errors, ItemError{EmployeeID: employeeID, Message: err.Error()})
	}
}
