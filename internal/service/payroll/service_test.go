package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/memory"
	advancesvc "github.com/cmlabs-hris/hris-payroll-engine/internal/service/advance"
	attendancesvc "github.com/cmlabs-hris/hris-payroll-engine/internal/service/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const companyID = "company-1"

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, []attendance.RecomputeKey) error { return nil }

type payrollFixture struct {
	store      *memory.Store
	repo       payroll.PayrollRepository
	svc        payroll.PayrollService
	ledger     advance.LedgerService
	attendance attendance.AttendanceService
	hub        *sse.Hub
	emp        employee.Profile
}

func newPayrollFixture(t *testing.T) *payrollFixture {
	t.Helper()
	return newPayrollFixtureWith(t, nil)
}

// newPayrollFixtureWith lets a test wrap the employee repository the payroll
// service reads from.
func newPayrollFixtureWith(t *testing.T, wrap func(employee.EmployeeRepository, payroll.PayrollRepository) employee.EmployeeRepository) *payrollFixture {
	t.Helper()

	store := memory.NewStore()
	transactor := memory.NewTransactor(store)
	cacheStore := cache.NewMemoryStore()
	employeeRepo := memory.NewEmployeeRepository(store)
	payrollRepo := memory.NewPayrollRepository(store)
	payrollEmployees := employeeRepo
	if wrap != nil {
		payrollEmployees = wrap(employeeRepo, payrollRepo)
	}
	attendanceRepo := memory.NewAttendanceRepository(store)
	hub := sse.NewHub()

	attendanceSvc := attendancesvc.NewAttendanceService(
		transactor,
		attendanceRepo,
		memory.NewRecomputeQueueRepository(store),
		employeeRepo,
		attendancesvc.NewAggregator(attendanceRepo),
		noopDispatcher{},
		cacheStore,
		time.Minute,
	)
	ledger := advancesvc.NewLedgerService(transactor, memory.NewAdvanceRepository(store), employeeRepo, cache.NewInvalidator(cacheStore))

	svc := NewPayrollService(
		transactor,
		payrollRepo,
		payrollEmployees,
		attendanceSvc,
		ledger,
		lock.NewLocalLocker(),
		cacheStore,
		hub,
		Settings{
			DefaultTDSRate: decimal.NewFromInt(5),
			CacheTTL:       time.Minute,
		},
	)

	emp := store.PutEmployee(employee.Profile{
		CompanyID:     companyID,
		EmployeeCode:  "E001",
		FullName:      "Asha Rao",
		Department:    "Operations",
		BasicSalary:   decimal.NewFromInt(30000),
		OTRatePerHour: decimal.NewFromInt(125),
		DateOfJoining: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	})

	return &payrollFixture{store: store, repo: payrollRepo, svc: svc, ledger: ledger, attendance: attendanceSvc, hub: hub, emp: emp}
}

// uploadMarch stores 28 present days, 5 OT hours and 20 late minutes against
// 30 working days for March 2024.
func (f *payrollFixture) uploadMarch(t *testing.T, employeeID string) {
	t.Helper()
	f.uploadMonth(t, employeeID, 3)
}

func (f *payrollFixture) uploadMonth(t *testing.T, employeeID string, month int) {
	t.Helper()
	workingDays := 30
	_, err := f.attendance.UpsertUploadedTotals(context.Background(), companyID, attendance.UploadTotalsRequest{
		Year:  2024,
		Month: month,
		Rows: []attendance.UploadedTotalsRow{{
			EmployeeID:       employeeID,
			PresentDays:      decimal.NewFromInt(28),
			OTHours:          decimal.NewFromInt(5),
			LateMinutes:      20,
			TotalWorkingDays: &workingDays,
		}},
	})
	require.NoError(t, err)
}

func (f *payrollFixture) addAdvance(t *testing.T, amount, date string) {
	t.Helper()
	_, err := f.ledger.CreateAdvance(context.Background(), companyID, advance.CreateAdvanceRequest{
		EmployeeID:  f.emp.ID,
		Amount:      decimal.RequireFromString(amount),
		AdvanceDate: date,
	})
	require.NoError(t, err)
}

func (f *payrollFixture) onlySalary(t *testing.T) payroll.SalaryResponse {
	t.Helper()
	return f.onlySalaryIn(t, 3)
}

func (f *payrollFixture) onlySalaryIn(t *testing.T, month int) payroll.SalaryResponse {
	t.Helper()
	salaries, err := f.svc.ListSalaries(context.Background(), companyID, 2024, month)
	require.NoError(t, err)
	require.Len(t, salaries, 1)
	return salaries[0]
}

func paidFlag(v bool) *bool { return &v }

func TestPayrollService_CalculateForPeriod_UploadedTotals(t *testing.T) {
	f := newPayrollFixture(t)
	f.uploadMarch(t, f.emp.ID)
	events, unsubscribe := f.hub.Subscribe(companyID)
	defer unsubscribe()

	report, err := f.svc.CalculateForPeriod(context.Background(), companyID, 2024, 3, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Equal(t, payroll.DataSourceUploaded, report.DataSource)

	sal := f.onlySalary(t)
	assert.Equal(t, "E001", sal.EmployeeCode)
	assert.Equal(t, 30, sal.TotalWorkingDays)
	assert.Equal(t, payroll.WorkingDaysFromUpload, sal.WorkingDaysSource)
	assert.Equal(t, string(attendance.SourceUploaded), sal.AttendanceSource)
	assertDecimal(t, "2", sal.AbsentDays, "absent_days")
	assertDecimal(t, "28583.33", sal.GrossSalary, "gross_salary")
	assertDecimal(t, "1429.17", sal.TDSAmount, "tds_amount")
	assertDecimal(t, "27154.17", sal.NetPayable, "net_payable")

	select {
	case ev := <-events:
		assert.Equal(t, EventCalculated, ev.Event)
	case <-time.After(time.Second):
		t.Fatal("expected a payroll.calculated event")
	}
}

func TestPayrollService_MarkPaid_AllocatesAdvanceOnce(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	f.addAdvance(t, "20000", "2024-01-05")
	f.addAdvance(t, "40000", "2024-02-05")

	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)

	sal := f.onlySalary(t)
	assertDecimal(t, "60000", sal.OutstandingAdvanceBalance, "outstanding_advance_balance")
	assertDecimal(t, "13577.08", sal.AdvanceDeductionAmount, "advance_deduction_amount")
	assertDecimal(t, "46422.92", sal.RemainingAdvanceBalance, "remaining_advance_balance")
	assertDecimal(t, "13577.09", sal.NetPayable, "net_payable")

	date := "2024-03-31"
	resp, err := f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID, sal.ID}, Paid: paidFlag(true), PaymentDate: &date})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Updated)
	assertDecimal(t, "13577.08", resp.AllocatedTotal, "allocated_total")

	ledger, err := f.ledger.ListAdvances(ctx, companyID, f.emp.ID)
	require.NoError(t, err)
	assertDecimal(t, "46422.92", ledger.OutstandingBalance, "outstanding")
	statuses := map[string]advance.Status{}
	for _, e := range ledger.Entries {
		statuses[e.AdvanceDate] = e.Status
	}
	assert.Equal(t, advance.StatusPartiallyPaid, statuses["2024-01-05"])
	assert.Equal(t, advance.StatusPending, statuses["2024-02-05"])

	// a second mark-paid is a no-op
	resp, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)
	assert.Zero(t, resp.Updated)
	assert.Equal(t, 1, resp.Unchanged)
	balance, err := f.ledger.OutstandingBalance(ctx, companyID, f.emp.ID)
	require.NoError(t, err)
	assertDecimal(t, "46422.92", balance, "outstanding after repeat")

	paid := f.onlySalary(t)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, date, *paid.PaymentDate)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(false)})
	assert.ErrorIs(t, err, payroll.ErrPaymentReversalForbidden)
	assert.True(t, f.onlySalary(t).IsPaid)
}

func TestPayrollService_MarkPaid_RefreshesDeductionAcrossPeriods(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMonth(t, f.emp.ID, 3)
	f.uploadMonth(t, f.emp.ID, 4)
	f.addAdvance(t, "10000", "2024-02-05")

	// both months are calculated before either is paid
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	_, err = f.svc.CalculateForPeriod(ctx, companyID, 2024, 4, false)
	require.NoError(t, err)
	march := f.onlySalaryIn(t, 3)
	april := f.onlySalaryIn(t, 4)
	assertDecimal(t, "10000", march.AdvanceDeductionAmount, "march advance_deduction_amount")
	assertDecimal(t, "10000", april.AdvanceDeductionAmount, "april advance_deduction_amount")

	resp, err := f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{march.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)
	assertDecimal(t, "10000", resp.AllocatedTotal, "march allocated_total")

	resp, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{april.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Updated)
	assertDecimal(t, "0", resp.AllocatedTotal, "april allocated_total")

	paidApril := f.onlySalaryIn(t, 4)
	assert.True(t, paidApril.IsPaid)
	assertDecimal(t, "0", paidApril.OutstandingAdvanceBalance, "april outstanding_advance_balance")
	assertDecimal(t, "0", paidApril.AdvanceDeductionAmount, "april advance_deduction_amount")
	assertDecimal(t, "0", paidApril.RemainingAdvanceBalance, "april remaining_advance_balance")
	assertDecimal(t, "27154.17", paidApril.NetPayable, "april net_payable")

	paidMarch := f.onlySalaryIn(t, 3)
	assertDecimal(t, "17154.17", paidMarch.NetPayable, "march net_payable")

	balance, err := f.ledger.OutstandingBalance(ctx, companyID, f.emp.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", balance, "outstanding")
}

func TestPayrollService_MarkPaid_RefreshKeepsOverride(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMonth(t, f.emp.ID, 3)
	f.uploadMonth(t, f.emp.ID, 4)
	f.addAdvance(t, "10000", "2024-02-05")

	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	_, err = f.svc.CalculateForPeriod(ctx, companyID, 2024, 4, false)
	require.NoError(t, err)
	march := f.onlySalaryIn(t, 3)
	april := f.onlySalaryIn(t, 4)

	override := decimal.NewFromInt(6000)
	_, err = f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, march.ID, &override)
	require.NoError(t, err)
	_, err = f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, april.ID, &override)
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{march.ID, april.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)

	// april's override is clamped to what march left behind
	paidApril := f.onlySalaryIn(t, 4)
	require.NotNil(t, paidApril.AdvanceDeductionOverride)
	assertDecimal(t, "6000", *paidApril.AdvanceDeductionOverride, "april advance_deduction_override")
	assertDecimal(t, "4000", paidApril.AdvanceDeductionAmount, "april advance_deduction_amount")

	balance, err := f.ledger.OutstandingBalance(ctx, companyID, f.emp.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", balance, "outstanding")
}

func TestPayrollService_MarkPaid_UnmarkWithoutDeduction(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)

	resp, err := f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(false)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Updated)

	unpaid := f.onlySalary(t)
	assert.False(t, unpaid.IsPaid)
	assert.Nil(t, unpaid.PaymentDate)
}

func TestPayrollService_MarkPaid_UnknownSalaryAppliesNothing(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	f.addAdvance(t, "1000", "2024-01-05")
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID, "sal-missing"}, Paid: paidFlag(true)})
	assert.ErrorIs(t, err, payroll.ErrSalaryNotFound)

	assert.False(t, f.onlySalary(t).IsPaid)
	balance, err := f.ledger.OutstandingBalance(ctx, companyID, f.emp.ID)
	require.NoError(t, err)
	assertDecimal(t, "1000", balance, "outstanding")

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}})
	assert.Error(t, err)
}

func TestPayrollService_CalculateForPeriod_SkipsPaidRows(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)
	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)

	// new figures must not touch the paid row
	workingDays := 30
	_, err = f.attendance.UpsertUploadedTotals(ctx, companyID, attendance.UploadTotalsRequest{
		Year:  2024,
		Month: 3,
		Rows:  []attendance.UploadedTotalsRow{{EmployeeID: f.emp.ID, PresentDays: decimal.NewFromInt(10), TotalWorkingDays: &workingDays}},
	})
	require.NoError(t, err)

	report, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, true)
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)

	after := f.onlySalary(t)
	assert.True(t, after.IsPaid)
	assertDecimal(t, "27154.17", after.NetPayable, "net_payable")
}

func TestPayrollService_LockedPeriod(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)

	period, err := f.svc.LockPeriod(ctx, companyID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStateLocked, period.State)
	require.NotNil(t, period.LockedAt)

	again, err := f.svc.LockPeriod(ctx, companyID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, period.LockedAt, again.LockedAt)

	_, err = f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)

	_, err = f.svc.UpdateIncentive(ctx, companyID, sal.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)
	_, err = f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, sal.ID, nil)
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)

	err = f.svc.DeletePeriod(ctx, companyID, 2024, 3)
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)

	report, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

// hookedEmployeeRepo runs afterList once the active employees are read, which
// lands between the period check and the per-employee loop.
type hookedEmployeeRepo struct {
	employee.EmployeeRepository
	afterList func(ctx context.Context)
}

func (r *hookedEmployeeRepo) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Profile, error) {
	employees, err := r.EmployeeRepository.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if r.afterList != nil {
		r.afterList(ctx)
	}
	return employees, nil
}

func TestPayrollService_CalculateForPeriod_LockedMidRun(t *testing.T) {
	hooked := &hookedEmployeeRepo{}
	f := newPayrollFixtureWith(t, func(employees employee.EmployeeRepository, repo payroll.PayrollRepository) employee.EmployeeRepository {
		hooked.EmployeeRepository = employees
		hooked.afterList = func(ctx context.Context) {
			period, err := repo.GetPeriod(ctx, companyID, 2024, 3)
			require.NoError(t, err)
			_, err = repo.LockPeriod(ctx, companyID, period.ID)
			require.NoError(t, err)
		}
		return hooked
	})
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)

	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)

	period, err := f.repo.GetPeriod(ctx, companyID, 2024, 3)
	require.NoError(t, err)
	assert.True(t, period.IsLocked)
	salaries, err := f.repo.ListSalariesByPeriod(ctx, companyID, period.ID)
	require.NoError(t, err)
	assert.Empty(t, salaries)

	// a forced run still writes into the locked period
	report, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

func TestPayrollService_LockPeriod_ConflictsWithRunningCalculation(t *testing.T) {
	hooked := &hookedEmployeeRepo{}
	f := newPayrollFixtureWith(t, func(employees employee.EmployeeRepository, _ payroll.PayrollRepository) employee.EmployeeRepository {
		hooked.EmployeeRepository = employees
		return hooked
	})
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)

	var lockErr error
	hooked.afterList = func(ctx context.Context) {
		lockCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, lockErr = f.svc.LockPeriod(lockCtx, companyID, 2024, 3)
	}

	report, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.ErrorIs(t, lockErr, lock.ErrNotObtained)

	hooked.afterList = nil
	period, err := f.svc.LockPeriod(ctx, companyID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStateLocked, period.State)
}

func TestPayrollService_CalculateForPeriod_PartialFailure(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)

	unpaid := f.store.PutEmployee(employee.Profile{
		CompanyID:     companyID,
		EmployeeCode:  "E002",
		FullName:      "No Salary",
		DateOfJoining: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	})
	f.store.PutEmployee(employee.Profile{
		CompanyID:     companyID,
		EmployeeCode:  "E003",
		FullName:      "Live Tracker",
		BasicSalary:   decimal.NewFromInt(20000),
		DateOfJoining: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	})

	report, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)

	var batch *payroll.PartialBatchFailure
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, unpaid.ID, report.Errors[0].EmployeeID)
	assert.Equal(t, payroll.DataSourceHybrid, report.DataSource)

	salaries, err := f.svc.ListSalaries(ctx, companyID, 2024, 3)
	require.NoError(t, err)
	require.Len(t, salaries, 2)
	assert.Equal(t, "E003", salaries[1].EmployeeCode)
	assert.Equal(t, payroll.WorkingDaysFromEmployee, salaries[1].WorkingDaysSource)
	assert.Equal(t, 31, salaries[1].TotalWorkingDays)
	assertDecimal(t, "0", salaries[1].GrossSalary, "gross_salary")
}

func TestPayrollService_Adjustments(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	f.addAdvance(t, "20000", "2024-01-05")
	f.addAdvance(t, "40000", "2024-02-05")
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)

	override := decimal.NewFromInt(1000)
	updated, err := f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, sal.ID, &override)
	require.NoError(t, err)
	assertDecimal(t, "1000", updated.AdvanceDeductionAmount, "advance_deduction_amount")
	assertDecimal(t, "26154.17", updated.NetPayable, "net_payable")

	// the override survives a recalculation
	_, err = f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	assertDecimal(t, "1000", f.onlySalary(t).AdvanceDeductionAmount, "advance after rerun")

	cleared, err := f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, sal.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.AdvanceDeductionOverride)
	assertDecimal(t, "13577.08", cleared.AdvanceDeductionAmount, "advance_deduction_amount")

	withIncentive, err := f.svc.UpdateIncentive(ctx, companyID, sal.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assertDecimal(t, "500", withIncentive.Incentive, "incentive")
	assertDecimal(t, "29083.33", withIncentive.GrossSalary, "gross_salary")

	negative := decimal.NewFromInt(-1)
	_, err = f.svc.UpdateAdvanceDeductionOverride(ctx, companyID, sal.ID, &negative)
	assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
	_, err = f.svc.UpdateIncentive(ctx, companyID, sal.ID, negative)
	assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
	_, err = f.svc.UpdateIncentive(ctx, companyID, "sal-missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, payroll.ErrSalaryNotFound)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateIncentive(ctx, companyID, sal.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, payroll.ErrSalaryAlreadyPaid)
}

func TestPayrollService_DeletePeriod(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)
	sal := f.onlySalary(t)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeletePeriod(ctx, companyID, 2024, 3), payroll.ErrPeriodHasPaidSalaries)

	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(false)})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeletePeriod(ctx, companyID, 2024, 3))

	_, err = f.svc.ListSalaries(ctx, companyID, 2024, 3)
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
	assert.ErrorIs(t, f.svc.DeletePeriod(ctx, companyID, 2024, 3), payroll.ErrPeriodNotFound)
}

func TestPayrollService_GetPeriodOverview_InvalidatedByPayment(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()
	f.uploadMarch(t, f.emp.ID)
	_, err := f.svc.CalculateForPeriod(ctx, companyID, 2024, 3, false)
	require.NoError(t, err)

	overview, err := f.svc.GetPeriodOverview(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, payroll.PeriodStateCalculated, overview[0].State)
	assert.Equal(t, 1, overview[0].EmployeeCount)
	assert.Zero(t, overview[0].PaidCount)
	assertDecimal(t, "27154.17", overview[0].TotalNet, "total_net")

	sal := f.onlySalary(t)
	_, err = f.svc.MarkPaid(ctx, companyID, payroll.MarkPaidRequest{SalaryIDs: []string{sal.ID}, Paid: paidFlag(true)})
	require.NoError(t, err)

	overview, err = f.svc.GetPeriodOverview(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 1, overview[0].PaidCount)
}

func TestPayrollService_RejectsBadInput(t *testing.T) {
	f := newPayrollFixture(t)
	ctx := context.Background()

	_, err := f.svc.CalculateForPeriod(ctx, "", 2024, 3, false)
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
	_, err = f.svc.CalculateForPeriod(ctx, companyID, 2024, 13, false)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	_, err = f.svc.LockPeriod(ctx, companyID, 2024, 3)
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
	_, err = f.svc.ListSalaries(ctx, companyID, 0, 3)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	_, err = f.svc.GetPeriodOverview(ctx, " ")
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}
