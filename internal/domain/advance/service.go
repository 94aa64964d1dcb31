package advance

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerService is the advance ledger and its FIFO allocation engine.
type LedgerService interface {
	// Allocate consumes totalDeduction from the employee's open advances,
	// oldest first. It must run inside the payment transaction and only once
	// per payment event.
	Allocate(ctx context.Context, companyID, employeeID string, totalDeduction decimal.Decimal, ref AllocationRef) ([]Allocation, error)

	// OutstandingBalance sums remaining balances of open advances.
	OutstandingBalance(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error)

	CreateAdvance(ctx context.Context, companyID string, req CreateAdvanceRequest) (EntryResponse, error)
	ListAdvances(ctx context.Context, companyID, employeeID string) (EmployeeLedgerResponse, error)
}
