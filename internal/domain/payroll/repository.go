package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// Periods
	GetPeriod(ctx context.Context, companyID string, year, month int) (Period, error)
	// GetPeriodForShare share-locks the period row for the surrounding
	// transaction; LockPeriod blocks until that transaction ends.
	GetPeriodForShare(ctx context.Context, companyID, id string) (Period, error)
	GetOrCreatePeriod(ctx context.Context, period Period) (Period, error)
	UpdatePeriodDataSource(ctx context.Context, companyID, periodID string, source DataSource) error
	// LockPeriod takes the row lock exclusively.
	LockPeriod(ctx context.Context, companyID, periodID string) (Period, error)
	DeletePeriod(ctx context.Context, companyID, periodID string) error
	ListPeriodOverviews(ctx context.Context, companyID string) ([]PeriodOverview, error)

	// Calculated salaries
	UpsertSalary(ctx context.Context, salary CalculatedSalary) (CalculatedSalary, error)
	GetSalaryByID(ctx context.Context, companyID, id string) (CalculatedSalary, error)
	GetSalaryByEmployee(ctx context.Context, companyID, periodID, employeeID string) (CalculatedSalary, error)
	ListSalariesByPeriod(ctx context.Context, companyID, periodID string) ([]CalculatedSalary, error)
	// ListSalariesForUpdate row-locks the salaries for the surrounding transaction.
	ListSalariesForUpdate(ctx context.Context, companyID string, ids []string) ([]CalculatedSalary, error)
	SetPaymentStatus(ctx context.Context, companyID, id string, paid bool, paymentDate *time.Time, paymentEventID *string) error
	CountPaidByPeriod(ctx context.Context, companyID, periodID string) (int, error)

	// Aggregations
	GetPeriodTotals(ctx context.Context, companyID string, year, month int) (PeriodTotals, error)
}
