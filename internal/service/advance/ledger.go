package advance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type LedgerServiceImpl struct {
	transactor   database.Transactor
	advanceRepo  advance.AdvanceRepository
	employeeRepo employee.EmployeeRepository
	invalidator  *cache.Invalidator
}

func NewLedgerService(
	transactor database.Transactor,
	advanceRepo advance.AdvanceRepository,
	employeeRepo employee.EmployeeRepository,
	invalidator *cache.Invalidator,
) advance.LedgerService {
	return &LedgerServiceImpl{
		transactor:   transactor,
		advanceRepo:  advanceRepo,
		employeeRepo: employeeRepo,
		invalidator:  invalidator,
	}
}

// Allocate implements advance.LedgerService. Entries are consumed oldest
// first; every touched entry gets one audit row.
func (s *LedgerServiceImpl) Allocate(ctx context.Context, companyID, employeeID string, totalDeduction decimal.Decimal, ref advance.AllocationRef) ([]advance.Allocation, error) {
	if err := tenant.Require(companyID); err != nil {
		return nil, err
	}
	if totalDeduction.IsNegative() {
		return nil, advance.ErrInvalidAmount
	}
	if totalDeduction.IsZero() {
		return nil, nil
	}

	var allocations []advance.Allocation
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		entries, err := s.advanceRepo.ListOpenForUpdate(txCtx, companyID, employeeID)
		if err != nil {
			return fmt.Errorf("failed to list open advances: %w", err)
		}

		outstanding := decimal.Zero
		for _, e := range entries {
			outstanding = outstanding.Add(e.RemainingBalance)
		}
		if totalDeduction.GreaterThan(outstanding) {
			slog.Error("Advance deduction exceeds outstanding balance",
				"company_id", companyID,
				"employee_id", employeeID,
				"payment_event_id", ref.PaymentEventID,
				"deduction", totalDeduction.String(),
				"outstanding", outstanding.String(),
			)
			return fmt.Errorf("%w: deduction %s, outstanding %s", advance.ErrAdvanceOverAllocation, totalDeduction, outstanding)
		}

		remaining := totalDeduction
		for _, e := range entries {
			if !remaining.IsPositive() {
				break
			}

			take := decimal.Min(e.RemainingBalance, remaining)
			before := e.RemainingBalance
			e.RemainingBalance = before.Sub(take)
			e.Status = advance.StatusPartiallyPaid
			if e.RemainingBalance.IsZero() {
				e.Status = advance.StatusRepaid
			}
			if err := s.advanceRepo.UpdateBalance(txCtx, e); err != nil {
				return fmt.Errorf("failed to update advance balance: %w", err)
			}

			allocations = append(allocations, advance.Allocation{
				CompanyID:      companyID,
				PaymentEventID: ref.PaymentEventID,
				SalaryID:       ref.SalaryID,
				EntryID:        e.ID,
				Amount:         take,
				BalanceBefore:  before,
				BalanceAfter:   e.RemainingBalance,
				StatusAfter:    e.Status,
			})
			remaining = remaining.Sub(take)
		}

		if err := s.advanceRepo.CreateAllocations(txCtx, allocations); err != nil {
			return fmt.Errorf("failed to record advance allocations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

// OutstandingBalance implements advance.LedgerService.
func (s *LedgerServiceImpl) OutstandingBalance(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error) {
	if err := tenant.Require(companyID); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.advanceRepo.OutstandingBalance(ctx, companyID, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get outstanding advance balance: %w", err)
	}
	return balance, nil
}

// CreateAdvance implements advance.LedgerService.
func (s *LedgerServiceImpl) CreateAdvance(ctx context.Context, companyID string, req advance.CreateAdvanceRequest) (advance.EntryResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return advance.EntryResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return advance.EntryResponse{}, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, companyID, req.EmployeeID); err != nil {
		return advance.EntryResponse{}, err
	}

	advanceDate, _ := validator.IsValidDate(req.AdvanceDate)
	forMonth := req.ForMonth
	if forMonth == "" {
		forMonth = advanceDate.Format("2006-01")
	}

	created, err := s.advanceRepo.Create(ctx, advance.Entry{
		CompanyID:        companyID,
		EmployeeID:       req.EmployeeID,
		Amount:           req.Amount.Round(2),
		RemainingBalance: req.Amount.Round(2),
		Status:           advance.StatusPending,
		AdvanceDate:      advanceDate,
		ForMonth:         forMonth,
		Note:             req.Note,
	})
	if err != nil {
		return advance.EntryResponse{}, fmt.Errorf("failed to create advance: %w", err)
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationAdvance); err != nil {
		return advance.EntryResponse{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
	}

	slog.Info("Advance created", "company_id", companyID, "employee_id", req.EmployeeID, "advance_id", created.ID, "amount", created.Amount.String())
	return advance.ToEntryResponse(created), nil
}

// ListAdvances implements advance.LedgerService.
func (s *LedgerServiceImpl) ListAdvances(ctx context.Context, companyID, employeeID string) (advance.EmployeeLedgerResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return advance.EmployeeLedgerResponse{}, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, companyID, employeeID); err != nil {
		return advance.EmployeeLedgerResponse{}, err
	}

	entries, err := s.advanceRepo.ListByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return advance.EmployeeLedgerResponse{}, fmt.Errorf("failed to list advances: %w", err)
	}

	resp := advance.EmployeeLedgerResponse{
		EmployeeID:         employeeID,
		OutstandingBalance: decimal.Zero,
		Entries:            make([]advance.EntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		if e.IsOpen() {
			resp.OutstandingBalance = resp.OutstandingBalance.Add(e.RemainingBalance)
		}
		resp.Entries = append(resp.Entries, advance.ToEntryResponse(e))
	}
	return resp, nil
}
