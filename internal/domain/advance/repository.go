package advance

import (
	"context"

	"github.com/shopspring/decimal"
)

// AdvanceRepository defines data access for the advance ledger. All methods
// are scoped by companyID.
type AdvanceRepository interface {
	Create(ctx context.Context, entry Entry) (Entry, error)
	ListByEmployee(ctx context.Context, companyID, employeeID string) ([]Entry, error)
	// ListOpenForUpdate returns PENDING/PARTIALLY_PAID entries oldest first,
	// row-locked for the surrounding transaction.
	ListOpenForUpdate(ctx context.Context, companyID, employeeID string) ([]Entry, error)
	UpdateBalance(ctx context.Context, entry Entry) error
	OutstandingBalance(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error)
	CreateAllocations(ctx context.Context, allocations []Allocation) error
	ListAllocationsByPaymentEvent(ctx context.Context, companyID, paymentEventID string) ([]Allocation, error)
}
