package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/dashboard"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

type DashboardServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	employeeRepo   employee.EmployeeRepository
	payrollRepo    payroll.PayrollRepository
	cacheStore     cache.Store
	cacheTTL       time.Duration
}

func NewDashboardService(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	cacheStore cache.Store,
	cacheTTL time.Duration,
) dashboard.DashboardService {
	return &DashboardServiceImpl{
		attendanceRepo: attendanceRepo,
		employeeRepo:   employeeRepo,
		payrollRepo:    payrollRepo,
		cacheStore:     cacheStore,
		cacheTTL:       cacheTTL,
	}
}

// GetAttendanceDashboard runs its three reads in parallel, one query each.
func (s *DashboardServiceImpl) GetAttendanceDashboard(ctx context.Context, companyID string, year, month int, department string) (dashboard.AttendanceDashboardResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return dashboard.AttendanceDashboardResponse{}, err
	}
	if !validator.IsValidPeriod(year, month) {
		return dashboard.AttendanceDashboardResponse{}, attendance.ErrInvalidPeriod
	}

	key := cache.Key{
		TenantID: companyID,
		Resource: cache.ResourceDashboard,
		Sub:      fmt.Sprintf("%04d-%02d:%s", year, month, department),
	}
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.cacheTTL, func(ctx context.Context) (dashboard.AttendanceDashboardResponse, error) {
		return s.load(ctx, companyID, year, month, department)
	})
}

func (s *DashboardServiceImpl) load(ctx context.Context, companyID string, year, month int, department string) (dashboard.AttendanceDashboardResponse, error) {
	var (
		departments []attendance.DepartmentAttendance
		active      int
		total       int
		totals      payroll.PeriodTotals
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Attendance per department
	g.Go(func() error {
		rows, err := s.attendanceRepo.GetDepartmentTotals(gCtx, companyID, year, month, department)
		if err != nil {
			return fmt.Errorf("failed to get department attendance: %w", err)
		}
		departments = rows
		return nil
	})

	// 2. Headcount
	g.Go(func() error {
		var err error
		active, total, err = s.employeeRepo.CountByDepartment(gCtx, companyID, department)
		if err != nil {
			return fmt.Errorf("failed to count employees: %w", err)
		}
		return nil
	})

	// 3. Payroll totals of the month
	g.Go(func() error {
		var err error
		totals, err = s.payrollRepo.GetPeriodTotals(gCtx, companyID, year, month)
		if err != nil {
			return fmt.Errorf("failed to get payroll totals: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return dashboard.AttendanceDashboardResponse{}, err
	}

	rows := make([]dashboard.DepartmentRowResponse, 0, len(departments))
	for _, d := range departments {
		rows = append(rows, dashboard.DepartmentRowResponse{
			Department:  d.Department,
			Employees:   d.Employees,
			PresentDays: d.PresentDays,
			OTHours:     d.OTHours,
			LateMinutes: d.LateMinutes,
		})
	}

	return dashboard.AttendanceDashboardResponse{
		Year:       year,
		Month:      month,
		Department: department,
		Headcount: dashboard.HeadcountResponse{
			Active:   active,
			Inactive: total - active,
		},
		Departments: rows,
		Payroll: dashboard.PayrollTotalsResponse{
			Calculated: totals.EmployeeCount,
			Paid:       totals.PaidCount,
			TotalGross: totals.TotalGross,
			TotalNet:   totals.TotalNet,
		},
	}, nil
}
