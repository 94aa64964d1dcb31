package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	attendancesvc "github.com/cmlabs-hris/hris-payroll-engine/internal/service/attendance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventCalculated is published to the tenant's SSE subscribers after a period
// calculation finishes.
const EventCalculated = "payroll.calculated"

// Settings are the tenant-independent payroll defaults.
type Settings struct {
	DefaultTDSRate            decimal.Decimal
	DefaultWorkingDaysInMonth int
	WorkingDaysSource         payroll.WorkingDaysSource
	CacheTTL                  time.Duration
	LockTTL                   time.Duration
}

type PayrollServiceImpl struct {
	transactor    database.Transactor
	payrollRepo   payroll.PayrollRepository
	employeeRepo  employee.EmployeeRepository
	attendanceSvc attendance.AttendanceService
	ledger        advance.LedgerService
	calculator    *SalaryCalculator
	locker        lock.Locker
	cacheStore    cache.Store
	invalidator   *cache.Invalidator
	hub           *sse.Hub
	settings      Settings
	now           func() time.Time
}

func NewPayrollService(
	transactor database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	attendanceSvc attendance.AttendanceService,
	ledger advance.LedgerService,
	locker lock.Locker,
	cacheStore cache.Store,
	hub *sse.Hub,
	settings Settings,
) payroll.PayrollService {
	if settings.WorkingDaysSource == "" {
		settings.WorkingDaysSource = payroll.WorkingDaysFromEmployee
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = 5 * time.Minute
	}
	return &PayrollServiceImpl{
		transactor:    transactor,
		payrollRepo:   payrollRepo,
		employeeRepo:  employeeRepo,
		attendanceSvc: attendanceSvc,
		ledger:        ledger,
		calculator:    NewSalaryCalculator(),
		locker:        locker,
		cacheStore:    cacheStore,
		invalidator:   cache.NewInvalidator(cacheStore),
		hub:           hub,
		settings:      settings,
		now:           time.Now,
	}
}

func (s *PayrollServiceImpl) obtain(ctx context.Context, key string) (func(), error) {
	lease, err := s.locker.Obtain(ctx, key, s.settings.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lease.Release(context.Background()); err != nil {
			slog.Warn("Failed to release lock", "key", key, "error", err)
		}
	}, nil
}

// ========== CALCULATION ==========

type calcOutcome int

const (
	outcomeCalculated calcOutcome = iota
	outcomeSkippedPaid
)

// CalculateForPeriod implements payroll.PayrollService. A *PartialBatchFailure
// is returned next to the report when some employees failed.
func (s *PayrollServiceImpl) CalculateForPeriod(ctx context.Context, companyID string, year, month int, forceRecalculate bool) (payroll.CalculationReport, error) {
	if err := tenant.Require(companyID); err != nil {
		return payroll.CalculationReport{}, err
	}
	if !validator.IsValidPeriod(year, month) {
		return payroll.CalculationReport{}, payroll.ErrInvalidPeriod
	}

	release, err := s.obtain(ctx, fmt.Sprintf("payroll:calculate:%s:%04d-%02d", companyID, year, month))
	if err != nil {
		return payroll.CalculationReport{}, err
	}
	defer release()

	period, err := s.payrollRepo.GetOrCreatePeriod(ctx, payroll.Period{
		CompanyID:          companyID,
		Year:               year,
		Month:              month,
		DataSource:         payroll.DataSourceFrontend,
		WorkingDaysInMonth: s.settings.DefaultWorkingDaysInMonth,
		TDSRate:            s.settings.DefaultTDSRate,
	})
	if err != nil {
		return payroll.CalculationReport{}, fmt.Errorf("failed to get or create payroll period: %w", err)
	}
	if period.IsLocked && !forceRecalculate {
		return payroll.CalculationReport{}, payroll.ErrPeriodLocked
	}

	employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return payroll.CalculationReport{}, fmt.Errorf("failed to get active employees: %w", err)
	}

	batch := &payroll.PartialBatchFailure{}
	uploaded := 0
	for _, emp := range employees {
		outcome, source, err := s.calculateEmployee(ctx, period, emp, forceRecalculate)
		if errors.Is(err, payroll.ErrPeriodLocked) {
			// Locked mid-run; employees already written stay as calculated.
			slog.Warn("Payroll period locked during calculation",
				"company_id", companyID,
				"period", fmt.Sprintf("%04d-%02d", year, month),
				"succeeded", batch.Succeeded,
			)
			if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary); err != nil {
				return payroll.CalculationReport{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
			}
			return payroll.CalculationReport{}, payroll.ErrPeriodLocked
		}
		if err != nil {
			slog.Warn("Salary calculation failed",
				"company_id", companyID,
				"period", fmt.Sprintf("%04d-%02d", year, month),
				"employee_id", emp.ID,
				"error", err,
			)
			batch.Record(emp.ID, err)
			continue
		}
		if outcome == outcomeSkippedPaid {
			batch.Skipped++
			continue
		}
		batch.Succeeded++
		if source == attendance.SourceUploaded {
			uploaded++
		}
	}

	dataSource := period.DataSource
	if batch.Succeeded > 0 {
		switch uploaded {
		case batch.Succeeded:
			dataSource = payroll.DataSourceUploaded
		case 0:
			dataSource = payroll.DataSourceFrontend
		default:
			dataSource = payroll.DataSourceHybrid
		}
		if dataSource != period.DataSource {
			if err := s.payrollRepo.UpdatePeriodDataSource(ctx, companyID, period.ID, dataSource); err != nil {
				return payroll.CalculationReport{}, fmt.Errorf("failed to update period data source: %w", err)
			}
		}
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary); err != nil {
		return payroll.CalculationReport{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
	}

	report := payroll.CalculationReport{
		PeriodID:   period.ID,
		Year:       year,
		Month:      month,
		DataSource: dataSource,
		Succeeded:  batch.Succeeded,
		Failed:     batch.Failed,
		Skipped:    batch.Skipped,
		Errors:     batch.Errors,
	}

	s.hub.Publish(sse.Event{TenantID: companyID, Event: EventCalculated, Data: report})
	slog.Info("Payroll period calculated",
		"company_id", companyID,
		"period", fmt.Sprintf("%04d-%02d", year, month),
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"skipped", batch.Skipped,
		"forced", forceRecalculate,
	)

	if batch.Failed > 0 {
		return report, batch
	}
	return report, nil
}

// calculateEmployee recalculates one employee's salary in its own transaction.
// The period row is share-locked for the transaction so a concurrent lock
// either waits for it or is seen here.
func (s *PayrollServiceImpl) calculateEmployee(ctx context.Context, period payroll.Period, emp employee.Profile, force bool) (calcOutcome, attendance.Source, error) {
	if !emp.BasicSalary.IsPositive() {
		return 0, "", payroll.ErrEmployeeHasNoBaseSalary
	}

	outcome := outcomeCalculated
	var source attendance.Source
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.payrollRepo.GetPeriodForShare(txCtx, period.CompanyID, period.ID)
		if err != nil {
			return err
		}
		if current.IsLocked && !force {
			return payroll.ErrPeriodLocked
		}

		existing, err := s.payrollRepo.GetSalaryByEmployee(txCtx, period.CompanyID, period.ID, emp.ID)
		found := err == nil
		if err != nil && !errors.Is(err, payroll.ErrSalaryNotFound) {
			return fmt.Errorf("failed to get existing salary: %w", err)
		}
		if found && existing.IsPaid {
			outcome = outcomeSkippedPaid
			return nil
		}

		resolved, err := s.attendanceSvc.Resolve(txCtx, emp, period.Year, period.Month)
		if err != nil {
			return fmt.Errorf("failed to resolve attendance: %w", err)
		}
		source = resolved.Source

		balance, err := s.ledger.OutstandingBalance(txCtx, period.CompanyID, emp.ID)
		if err != nil {
			return err
		}

		workingDays, wdSource := s.workingDays(emp, period, resolved)
		input := payroll.CalculationInput{
			BasicSalary:               emp.BasicSalary,
			TotalWorkingDays:          workingDays,
			PresentDays:               resolved.PresentDays,
			OTHours:                   resolved.OTHours,
			LateMinutes:               resolved.LateMinutes,
			EmployeeOTRate:            emp.OTRatePerHour,
			EmployeeTDSRate:           emp.TDSPercent,
			PeriodTDSRate:             period.TDSRate,
			Incentive:                 decimal.Zero,
			OutstandingAdvanceBalance: balance,
		}
		if found {
			input.Incentive = existing.Incentive
			input.AdvanceDeductionOverride = existing.AdvanceDeductionOverride
		}

		_, err = s.payrollRepo.UpsertSalary(txCtx, payroll.CalculatedSalary{
			CompanyID:         period.CompanyID,
			PeriodID:          period.ID,
			EmployeeID:        emp.ID,
			CalculationInput:  input,
			AbsentDays:        attendance.AbsentDays(workingDays, resolved.PresentDays),
			AttendanceSource:  string(resolved.Source),
			WorkingDaysSource: wdSource,
			CalculationResult: s.calculator.Calculate(input),
		})
		if err != nil {
			return fmt.Errorf("failed to upsert calculated salary: %w", err)
		}
		return nil
	})
	return outcome, source, err
}

// workingDays picks total_working_days for a salary. Uploaded totals that
// carry their own figure win over the configured source.
func (s *PayrollServiceImpl) workingDays(emp employee.Profile, period payroll.Period, resolved attendance.Resolved) (int, payroll.WorkingDaysSource) {
	if resolved.TotalWorkingDays != nil {
		return *resolved.TotalWorkingDays, payroll.WorkingDaysFromUpload
	}
	if s.settings.WorkingDaysSource == payroll.WorkingDaysFromPeriod {
		if period.WorkingDaysInMonth > 0 {
			return period.WorkingDaysInMonth, payroll.WorkingDaysFromPeriod
		}
		return attendancesvc.DaysInMonth(period.Year, period.Month), payroll.WorkingDaysFromPeriod
	}
	return attendancesvc.WorkingDays(emp, period.Year, period.Month), payroll.WorkingDaysFromEmployee
}

// ========== PAYMENT ==========

// MarkPaid implements payroll.PayrollService. The whole request is one
// transaction: an unknown id or a failed allocation applies nothing.
func (s *PayrollServiceImpl) MarkPaid(ctx context.Context, companyID string, req payroll.MarkPaidRequest) (payroll.MarkPaidResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return payroll.MarkPaidResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.MarkPaidResponse{}, err
	}

	release, err := s.obtain(ctx, "payroll:mark-paid:"+companyID)
	if err != nil {
		return payroll.MarkPaidResponse{}, err
	}
	defer release()

	ids := uniqueIDs(req.SalaryIDs)
	paid := *req.Paid
	paymentDate := req.ParsedPaymentDate(s.now())

	resp := payroll.MarkPaidResponse{AllocatedTotal: decimal.Zero}
	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		salaries, err := s.payrollRepo.ListSalariesForUpdate(txCtx, companyID, ids)
		if err != nil {
			return fmt.Errorf("failed to lock salaries: %w", err)
		}
		if missing := missingIDs(ids, salaries); len(missing) > 0 {
			return fmt.Errorf("%w: %v", payroll.ErrSalaryNotFound, missing)
		}

		for _, sal := range salaries {
			switch {
			case paid == sal.IsPaid:
				resp.Unchanged++

			case paid:
				sal, err := s.settleDeduction(txCtx, sal)
				if err != nil {
					return err
				}
				eventID := uuid.NewString()
				date := paymentDate
				if err := s.payrollRepo.SetPaymentStatus(txCtx, companyID, sal.ID, true, &date, &eventID); err != nil {
					return fmt.Errorf("failed to mark salary paid: %w", err)
				}
				allocations, err := s.ledger.Allocate(txCtx, companyID, sal.EmployeeID, sal.AdvanceDeductionAmount, advance.AllocationRef{
					PaymentEventID: eventID,
					SalaryID:       sal.ID,
				})
				if err != nil {
					return err
				}
				for _, a := range allocations {
					resp.AllocatedTotal = resp.AllocatedTotal.Add(a.Amount)
				}
				resp.Updated++

			default:
				if sal.AdvanceDeductionAmount.IsPositive() {
					return fmt.Errorf("%w: salary %s", payroll.ErrPaymentReversalForbidden, sal.ID)
				}
				if err := s.payrollRepo.SetPaymentStatus(txCtx, companyID, sal.ID, false, nil, nil); err != nil {
					return fmt.Errorf("failed to unmark salary paid: %w", err)
				}
				resp.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return payroll.MarkPaidResponse{}, err
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary, cache.MutationAdvance); err != nil {
		return payroll.MarkPaidResponse{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
	}

	slog.Info("Salaries payment status updated",
		"company_id", companyID,
		"paid", paid,
		"updated", resp.Updated,
		"unchanged", resp.Unchanged,
		"allocated_total", resp.AllocatedTotal.String(),
	)
	return resp, nil
}

// settleDeduction re-derives the advance deduction against the balance as it
// stands at payment time. Another period paid since this one was calculated
// may have consumed part of the advance the stored figures assumed.
func (s *PayrollServiceImpl) settleDeduction(ctx context.Context, sal payroll.CalculatedSalary) (payroll.CalculatedSalary, error) {
	balance, err := s.ledger.OutstandingBalance(ctx, sal.CompanyID, sal.EmployeeID)
	if err != nil {
		return payroll.CalculatedSalary{}, err
	}
	if balance.Equal(sal.OutstandingAdvanceBalance) {
		return sal, nil
	}

	before := sal.AdvanceDeductionAmount
	sal.OutstandingAdvanceBalance = balance
	sal.CalculationResult = s.calculator.Calculate(sal.CalculationInput)
	updated, err := s.payrollRepo.UpsertSalary(ctx, sal)
	if err != nil {
		return payroll.CalculatedSalary{}, fmt.Errorf("failed to refresh calculated salary: %w", err)
	}

	slog.Info("Advance deduction refreshed at payment",
		"company_id", sal.CompanyID,
		"salary_id", sal.ID,
		"deduction_before", before.String(),
		"deduction_after", updated.AdvanceDeductionAmount.String(),
	)
	return updated, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, found []payroll.CalculatedSalary) []string {
	have := make(map[string]struct{}, len(found))
	for _, s := range found {
		have[s.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ========== ADJUSTMENTS ==========

// UpdateAdvanceDeductionOverride implements payroll.PayrollService. A nil
// amount returns the salary to the automatic deduction.
func (s *PayrollServiceImpl) UpdateAdvanceDeductionOverride(ctx context.Context, companyID, salaryID string, amount *decimal.Decimal) (payroll.SalaryResponse, error) {
	if amount != nil && amount.IsNegative() {
		return payroll.SalaryResponse{}, payroll.ErrInvalidAmount
	}
	var override *decimal.Decimal
	if amount != nil {
		rounded := amount.Round(moneyPlaces)
		override = &rounded
	}
	return s.adjustSalary(ctx, companyID, salaryID, func(in *payroll.CalculationInput) {
		in.AdvanceDeductionOverride = override
	})
}

// UpdateIncentive implements payroll.PayrollService.
func (s *PayrollServiceImpl) UpdateIncentive(ctx context.Context, companyID, salaryID string, amount decimal.Decimal) (payroll.SalaryResponse, error) {
	if amount.IsNegative() {
		return payroll.SalaryResponse{}, payroll.ErrInvalidAmount
	}
	incentive := amount.Round(moneyPlaces)
	return s.adjustSalary(ctx, companyID, salaryID, func(in *payroll.CalculationInput) {
		in.Incentive = incentive
	})
}

// adjustSalary applies change to the stored snapshot, refreshes the advance
// balance and re-runs the full formula.
func (s *PayrollServiceImpl) adjustSalary(ctx context.Context, companyID, salaryID string, change func(in *payroll.CalculationInput)) (payroll.SalaryResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return payroll.SalaryResponse{}, err
	}

	var updated payroll.CalculatedSalary
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		rows, err := s.payrollRepo.ListSalariesForUpdate(txCtx, companyID, []string{salaryID})
		if err != nil {
			return fmt.Errorf("failed to lock salary: %w", err)
		}
		if len(rows) == 0 {
			return payroll.ErrSalaryNotFound
		}
		salary := rows[0]

		period, err := s.payrollRepo.GetPeriodForShare(txCtx, companyID, salary.PeriodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return payroll.ErrPeriodLocked
		}
		if salary.IsPaid {
			return payroll.ErrSalaryAlreadyPaid
		}

		balance, err := s.ledger.OutstandingBalance(txCtx, companyID, salary.EmployeeID)
		if err != nil {
			return err
		}
		salary.OutstandingAdvanceBalance = balance
		change(&salary.CalculationInput)
		salary.CalculationResult = s.calculator.Calculate(salary.CalculationInput)

		updated, err = s.payrollRepo.UpsertSalary(txCtx, salary)
		if err != nil {
			return fmt.Errorf("failed to update calculated salary: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.SalaryResponse{}, err
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary); err != nil {
		return payroll.SalaryResponse{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
	}
	return payroll.ToSalaryResponse(updated), nil
}

// ========== PERIODS ==========

// LockPeriod implements payroll.PayrollService. Locking is one-way and
// locking a locked period is a no-op.
func (s *PayrollServiceImpl) LockPeriod(ctx context.Context, companyID string, year, month int) (payroll.PeriodResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return payroll.PeriodResponse{}, err
	}
	if !validator.IsValidPeriod(year, month) {
		return payroll.PeriodResponse{}, payroll.ErrInvalidPeriod
	}

	// Same key as CalculateForPeriod: a period cannot be locked mid-run.
	release, err := s.obtain(ctx, fmt.Sprintf("payroll:calculate:%s:%04d-%02d", companyID, year, month))
	if err != nil {
		return payroll.PeriodResponse{}, err
	}
	defer release()

	var (
		period    payroll.Period
		wasLocked bool
		salaries  []payroll.CalculatedSalary
	)
	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.payrollRepo.GetPeriod(txCtx, companyID, year, month)
		if err != nil {
			return err
		}
		wasLocked = current.IsLocked

		period, err = s.payrollRepo.LockPeriod(txCtx, companyID, current.ID)
		if err != nil {
			return fmt.Errorf("failed to lock payroll period: %w", err)
		}
		salaries, err = s.payrollRepo.ListSalariesByPeriod(txCtx, companyID, period.ID)
		if err != nil {
			return fmt.Errorf("failed to list salaries: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PeriodResponse{}, err
	}

	if !wasLocked {
		if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary); err != nil {
			return payroll.PeriodResponse{}, fmt.Errorf("failed to invalidate payroll caches: %w", err)
		}
		slog.Info("Payroll period locked", "company_id", companyID, "period_id", period.ID)
	}
	return payroll.ToPeriodResponse(period, len(salaries)), nil
}

// DeletePeriod implements payroll.PayrollService.
func (s *PayrollServiceImpl) DeletePeriod(ctx context.Context, companyID string, year, month int) error {
	if err := tenant.Require(companyID); err != nil {
		return err
	}
	if !validator.IsValidPeriod(year, month) {
		return payroll.ErrInvalidPeriod
	}

	period, err := s.payrollRepo.GetPeriod(ctx, companyID, year, month)
	if err != nil {
		return err
	}
	if period.IsLocked {
		return payroll.ErrPeriodLocked
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		paid, err := s.payrollRepo.CountPaidByPeriod(txCtx, companyID, period.ID)
		if err != nil {
			return fmt.Errorf("failed to count paid salaries: %w", err)
		}
		if paid > 0 {
			return payroll.ErrPeriodHasPaidSalaries
		}
		return s.payrollRepo.DeletePeriod(txCtx, companyID, period.ID)
	})
	if err != nil {
		return err
	}

	return s.invalidator.Invalidate(ctx, companyID, cache.MutationSalary)
}

// GetPeriodOverview implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetPeriodOverview(ctx context.Context, companyID string) ([]payroll.PeriodOverviewResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return nil, err
	}

	key := cache.Key{TenantID: companyID, Resource: cache.ResourcePeriodOverview, Sub: "all"}
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.settings.CacheTTL, func(ctx context.Context) ([]payroll.PeriodOverviewResponse, error) {
		overviews, err := s.payrollRepo.ListPeriodOverviews(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to list payroll periods: %w", err)
		}

		out := make([]payroll.PeriodOverviewResponse, 0, len(overviews))
		for _, ov := range overviews {
			out = append(out, payroll.PeriodOverviewResponse{
				PeriodResponse: payroll.ToPeriodResponse(ov.Period, ov.EmployeeCount),
				EmployeeCount:  ov.EmployeeCount,
				PaidCount:      ov.PaidCount,
				TotalGross:     ov.TotalGross,
				TotalTDS:       ov.TotalTDS,
				TotalAdvance:   ov.TotalAdvance,
				TotalNet:       ov.TotalNet,
			})
		}
		return out, nil
	})
}

// ListSalaries implements payroll.PayrollService.
func (s *PayrollServiceImpl) ListSalaries(ctx context.Context, companyID string, year, month int) ([]payroll.SalaryResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return nil, err
	}
	if !validator.IsValidPeriod(year, month) {
		return nil, payroll.ErrInvalidPeriod
	}

	key := cache.Key{TenantID: companyID, Resource: cache.ResourcePayrollOverview, Sub: fmt.Sprintf("salaries:%04d-%02d", year, month)}
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.settings.CacheTTL, func(ctx context.Context) ([]payroll.SalaryResponse, error) {
		period, err := s.payrollRepo.GetPeriod(ctx, companyID, year, month)
		if err != nil {
			return nil, err
		}
		salaries, err := s.payrollRepo.ListSalariesByPeriod(ctx, companyID, period.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list salaries: %w", err)
		}

		out := make([]payroll.SalaryResponse, 0, len(salaries))
		for _, sal := range salaries {
			out = append(out, payroll.ToSalaryResponse(sal))
		}
		return out, nil
	})
}
