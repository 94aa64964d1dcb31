package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
)

type AttendanceServiceImpl struct {
	transactor     database.Transactor
	attendanceRepo attendance.AttendanceRepository
	queueRepo      attendance.RecomputeQueueRepository
	employeeRepo   employee.EmployeeRepository
	aggregator     attendance.Aggregator
	dispatcher     attendance.RecomputeDispatcher
	cacheStore     cache.Store
	invalidator    *cache.Invalidator
	cacheTTL       time.Duration
}

func NewAttendanceService(
	transactor database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	queueRepo attendance.RecomputeQueueRepository,
	employeeRepo employee.EmployeeRepository,
	aggregator attendance.Aggregator,
	dispatcher attendance.RecomputeDispatcher,
	cacheStore cache.Store,
	cacheTTL time.Duration,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		transactor:     transactor,
		attendanceRepo: attendanceRepo,
		queueRepo:      queueRepo,
		employeeRepo:   employeeRepo,
		aggregator:     aggregator,
		dispatcher:     dispatcher,
		cacheStore:     cacheStore,
		invalidator:    cache.NewInvalidator(cacheStore),
		cacheTTL:       cacheTTL,
	}
}

// UpsertEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) UpsertEvent(ctx context.Context, companyID string, req attendance.UpsertEventRequest) (attendance.EventResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return attendance.EventResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return attendance.EventResponse{}, err
	}

	profile, err := s.employeeRepo.GetByID(ctx, companyID, req.EmployeeID)
	if err != nil {
		return attendance.EventResponse{}, err
	}

	event := req.ToEvent(companyID)
	var (
		stored  attendance.DailyEvent
		summary attendance.MonthlySummary
	)
	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stored, err = s.attendanceRepo.UpsertEvent(txCtx, event)
		if err != nil {
			return fmt.Errorf("failed to upsert attendance event: %w", err)
		}
		summary, err = s.aggregator.Recompute(txCtx, companyID, stored.EmployeeID, stored.WorkDate.Year(), int(stored.WorkDate.Month()))
		return err
	})
	if err != nil {
		return attendance.EventResponse{}, err
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationAttendance); err != nil {
		return attendance.EventResponse{}, fmt.Errorf("failed to invalidate attendance caches: %w", err)
	}

	return attendance.EventResponse{
		EmployeeID:  stored.EmployeeID,
		Date:        stored.WorkDate.Format("2006-01-02"),
		Status:      stored.Status,
		OTHours:     stored.OTHours,
		LateMinutes: stored.LateMinutes,
		Summary:     summaryFromStored(profile, summary),
	}, nil
}

// BulkUpsert implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) BulkUpsert(ctx context.Context, companyID string, req attendance.BulkUpsertRequest) (attendance.BulkUpsertResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return attendance.BulkUpsertResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return attendance.BulkUpsertResponse{}, err
	}

	events := make([]attendance.DailyEvent, 0, len(req.Events))
	employees := make(map[string]struct{})
	seen := make(map[attendance.RecomputeKey]struct{})
	var keys []attendance.RecomputeKey
	for i := range req.Events {
		e := req.Events[i].ToEvent(companyID)
		events = append(events, e)
		employees[e.EmployeeID] = struct{}{}

		k := attendance.KeyFor(companyID, e.EmployeeID, e.WorkDate)
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	if err := s.requireEmployees(ctx, companyID, employees); err != nil {
		return attendance.BulkUpsertResponse{}, err
	}

	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.attendanceRepo.BulkUpsertEvents(txCtx, events); err != nil {
			return fmt.Errorf("failed to bulk upsert attendance events: %w", err)
		}
		if err := s.queueRepo.Enqueue(txCtx, keys); err != nil {
			return fmt.Errorf("failed to enqueue attendance recompute: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.BulkUpsertResponse{}, err
	}

	// The batch is committed; recompute failures are covered by the sweeper.
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, keys); err != nil {
			slog.Error("Failed to dispatch attendance recompute", "company_id", companyID, "keys", len(keys), "error", err)
		}
	}

	slog.Info("Bulk attendance upsert committed",
		"company_id", companyID,
		"events", len(events),
		"recompute_keys", len(keys),
	)

	return attendance.BulkUpsertResponse{
		Upserted:         len(events),
		RecomputeQueued:  len(keys),
		EmployeesTouched: len(employees),
	}, nil
}

// DeleteEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) DeleteEvent(ctx context.Context, companyID, employeeID, date string) error {
	if err := tenant.Require(companyID); err != nil {
		return err
	}
	day, ok := validator.IsValidDate(date)
	if !ok {
		var errs validator.ValidationErrors
		errs.Add("date", "date must be in YYYY-MM-DD format")
		return errs
	}
	if _, err := s.employeeRepo.GetByID(ctx, companyID, employeeID); err != nil {
		return err
	}

	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.attendanceRepo.DeleteEvent(txCtx, companyID, employeeID, day); err != nil {
			return err
		}
		_, err := s.aggregator.Recompute(txCtx, companyID, employeeID, day.Year(), int(day.Month()))
		return err
	})
	if err != nil {
		return err
	}

	return s.invalidator.Invalidate(ctx, companyID, cache.MutationAttendance)
}

// UpsertUploadedTotals implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) UpsertUploadedTotals(ctx context.Context, companyID string, req attendance.UploadTotalsRequest) (attendance.UploadTotalsResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return attendance.UploadTotalsResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return attendance.UploadTotalsResponse{}, err
	}

	employees := make(map[string]struct{}, len(req.Rows))
	rows := make([]attendance.UploadedTotals, 0, len(req.Rows))
	for _, r := range req.Rows {
		employees[r.EmployeeID] = struct{}{}
		rows = append(rows, attendance.UploadedTotals{
			CompanyID:        companyID,
			EmployeeID:       r.EmployeeID,
			Year:             req.Year,
			Month:            req.Month,
			PresentDays:      r.PresentDays,
			OTHours:          r.OTHours,
			LateMinutes:      r.LateMinutes,
			TotalWorkingDays: r.TotalWorkingDays,
		})
	}
	if err := s.requireEmployees(ctx, companyID, employees); err != nil {
		return attendance.UploadTotalsResponse{}, err
	}

	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.attendanceRepo.UpsertUploadedTotals(txCtx, rows)
	})
	if err != nil {
		return attendance.UploadTotalsResponse{}, fmt.Errorf("failed to store uploaded totals: %w", err)
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationAttendance); err != nil {
		return attendance.UploadTotalsResponse{}, fmt.Errorf("failed to invalidate attendance caches: %w", err)
	}
	return attendance.UploadTotalsResponse{Stored: len(rows)}, nil
}

// GetSummary implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetSummary(ctx context.Context, companyID, employeeID string, year, month int) (attendance.SummaryResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return attendance.SummaryResponse{}, err
	}
	if !validator.IsValidPeriod(year, month) {
		return attendance.SummaryResponse{}, attendance.ErrInvalidPeriod
	}

	key := cache.Key{
		TenantID: companyID,
		Resource: cache.ResourceAttendance,
		Sub:      fmt.Sprintf("summary:%s:%04d-%02d", employeeID, year, month),
	}
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.cacheTTL, func(ctx context.Context) (attendance.SummaryResponse, error) {
		profile, err := s.employeeRepo.GetByID(ctx, companyID, employeeID)
		if err != nil {
			return attendance.SummaryResponse{}, err
		}
		resolved, err := s.Resolve(ctx, profile, year, month)
		if err != nil {
			return attendance.SummaryResponse{}, err
		}

		workingDays := WorkingDays(profile, year, month)
		if resolved.TotalWorkingDays != nil {
			workingDays = *resolved.TotalWorkingDays
		}
		return attendance.SummaryResponse{
			EmployeeID:  employeeID,
			Year:        year,
			Month:       month,
			WorkingDays: workingDays,
			PresentDays: resolved.PresentDays,
			AbsentDays:  attendance.AbsentDays(workingDays, resolved.PresentDays),
			OTHours:     resolved.OTHours,
			LateMinutes: resolved.LateMinutes,
			Source:      resolved.Source,
			LastUpdated: resolved.LastUpdated,
		}, nil
	})
}

// GetWorkingDays implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetWorkingDays(ctx context.Context, companyID, employeeID string, year, month int) (attendance.WorkingDaysResponse, error) {
	if err := tenant.Require(companyID); err != nil {
		return attendance.WorkingDaysResponse{}, err
	}
	if !validator.IsValidPeriod(year, month) {
		return attendance.WorkingDaysResponse{}, attendance.ErrInvalidPeriod
	}

	profile, err := s.employeeRepo.GetByID(ctx, companyID, employeeID)
	if err != nil {
		return attendance.WorkingDaysResponse{}, err
	}

	return attendance.WorkingDaysResponse{
		EmployeeID:  employeeID,
		Year:        year,
		Month:       month,
		WorkingDays: WorkingDays(profile, year, month),
		DaysInMonth: DaysInMonth(year, month),
	}, nil
}

// Resolve implements attendance.AttendanceService. The first source that has
// a row for the month wins.
func (s *AttendanceServiceImpl) Resolve(ctx context.Context, profile employee.Profile, year, month int) (attendance.Resolved, error) {
	companyID, employeeID := profile.CompanyID, profile.ID

	uploaded, err := s.attendanceRepo.GetUploadedTotals(ctx, companyID, employeeID, year, month)
	if err == nil {
		uploadedAt := uploaded.UploadedAt
		return attendance.Resolved{
			Totals: attendance.Totals{
				PresentDays: uploaded.PresentDays,
				OTHours:     uploaded.OTHours,
				LateMinutes: uploaded.LateMinutes,
			},
			Source:           attendance.SourceUploaded,
			TotalWorkingDays: uploaded.TotalWorkingDays,
			LastUpdated:      &uploadedAt,
		}, nil
	}
	if !errors.Is(err, attendance.ErrUploadedTotalsNotFound) {
		return attendance.Resolved{}, fmt.Errorf("failed to get uploaded totals: %w", err)
	}

	summary, err := s.attendanceRepo.GetSummary(ctx, companyID, employeeID, year, month)
	if err == nil {
		lastUpdated := summary.LastUpdated
		return attendance.Resolved{
			Totals:      summary.Totals(),
			Source:      attendance.SourceSummary,
			LastUpdated: &lastUpdated,
		}, nil
	}
	if !errors.Is(err, attendance.ErrSummaryNotFound) {
		return attendance.Resolved{}, fmt.Errorf("failed to get attendance summary: %w", err)
	}

	legacy, err := s.attendanceRepo.GetLegacyAggregate(ctx, companyID, employeeID, year, month)
	if err == nil {
		return attendance.Resolved{
			Totals: attendance.Totals{
				PresentDays: legacy.PresentDays,
				OTHours:     legacy.OTHours,
				LateMinutes: legacy.LateMinutes,
			},
			Source: attendance.SourceLegacy,
		}, nil
	}
	if !errors.Is(err, attendance.ErrLegacyAggregateNotFound) {
		return attendance.Resolved{}, fmt.Errorf("failed to get legacy attendance: %w", err)
	}

	events, err := s.attendanceRepo.ListEventsForMonth(ctx, companyID, employeeID, year, month)
	if err != nil {
		return attendance.Resolved{}, fmt.Errorf("failed to list attendance events: %w", err)
	}
	return attendance.Resolved{
		Totals: Aggregate(events),
		Source: attendance.SourceDailyEvents,
	}, nil
}

func (s *AttendanceServiceImpl) requireEmployees(ctx context.Context, companyID string, ids map[string]struct{}) error {
	for id := range ids {
		if _, err := s.employeeRepo.GetByID(ctx, companyID, id); err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return fmt.Errorf("%w: %s", employee.ErrEmployeeNotFound, id)
			}
			return fmt.Errorf("failed to get employee: %w", err)
		}
	}
	return nil
}

func summaryFromStored(profile employee.Profile, summary attendance.MonthlySummary) attendance.SummaryResponse {
	workingDays := WorkingDays(profile, summary.Year, summary.Month)
	lastUpdated := summary.LastUpdated
	return attendance.SummaryResponse{
		EmployeeID:  summary.EmployeeID,
		Year:        summary.Year,
		Month:       summary.Month,
		WorkingDays: workingDays,
		PresentDays: summary.PresentDays,
		AbsentDays:  attendance.AbsentDays(workingDays, summary.PresentDays),
		OTHours:     summary.OTHours,
		LateMinutes: summary.LateMinutes,
		Source:      attendance.SourceSummary,
		LastUpdated: &lastUpdated,
	}
}
