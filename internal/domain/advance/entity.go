package advance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusRepaid        Status = "REPAID"
)

// Entry is one advance (employee loan) recovered through payroll deductions.
type Entry struct {
	ID               string
	CompanyID        string
	EmployeeID       string
	Amount           decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           Status
	AdvanceDate      time.Time
	ForMonth         string
	Note             *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOpen reports whether the entry still has a balance to recover.
func (e Entry) IsOpen() bool {
	return e.Status == StatusPending || e.Status == StatusPartiallyPaid
}

// Allocation is the audit row for one (entry, delta) pair consumed by a payment.
type Allocation struct {
	ID             string
	CompanyID      string
	PaymentEventID string
	SalaryID       string
	EntryID        string
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	StatusAfter    Status
	CreatedAt      time.Time
}

// AllocationRef ties an allocation run to the payment that caused it.
type AllocationRef struct {
	PaymentEventID string
	SalaryID       string
}
