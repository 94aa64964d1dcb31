package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// PayrollService manages payroll periods: calculation, payment and locking.
// Every operation takes the tenant (companyID) explicitly.
type PayrollService interface {
	CalculateForPeriod(ctx context.Context, companyID string, year, month int, forceRecalculate bool) (CalculationReport, error)
	MarkPaid(ctx context.Context, companyID string, req MarkPaidRequest) (MarkPaidResponse, error)
	UpdateAdvanceDeductionOverride(ctx context.Context, companyID, salaryID string, amount *decimal.Decimal) (SalaryResponse, error)
	UpdateIncentive(ctx context.Context, companyID, salaryID string, amount decimal.Decimal) (SalaryResponse, error)
	LockPeriod(ctx context.Context, companyID string, year, month int) (PeriodResponse, error)
	DeletePeriod(ctx context.Context, companyID string, year, month int) error
	GetPeriodOverview(ctx context.Context, companyID string) ([]PeriodOverviewResponse, error)
	ListSalaries(ctx context.Context, companyID string, year, month int) ([]SalaryResponse, error)
}
