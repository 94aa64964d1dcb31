package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepositoryImpl struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db}
}

// monthBounds returns [first day of month, first day of next month).
func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ========== DAILY EVENTS ==========

const upsertEventQuery = `
	INSERT INTO attendance_daily_events (company_id, employee_id, work_date, status, ot_hours, late_minutes)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (company_id, employee_id, work_date) DO UPDATE SET
		status = EXCLUDED.status,
		ot_hours = EXCLUDED.ot_hours,
		late_minutes = EXCLUDED.late_minutes,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// UpsertEvent implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpsertEvent(ctx context.Context, event attendance.DailyEvent) (attendance.DailyEvent, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx, upsertEventQuery,
		event.CompanyID,
		event.EmployeeID,
		event.WorkDate,
		event.Status,
		event.OTHours,
		event.LateMinutes,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return attendance.DailyEvent{}, fmt.Errorf("failed to upsert attendance event: %w", err)
	}
	return event, nil
}

// BulkUpsertEvents implements attendance.AttendanceRepository. The statements
// are pipelined in one batch; the caller's transaction makes them atomic.
func (r *attendanceRepositoryImpl) BulkUpsertEvents(ctx context.Context, events []attendance.DailyEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(upsertEventQuery, e.CompanyID, e.EmployeeID, e.WorkDate, e.Status, e.OTHours, e.LateMinutes)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert attendance event %d: %w", i, err)
		}
	}
	return results.Close()
}

// DeleteEvent implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) DeleteEvent(ctx context.Context, companyID, employeeID string, date time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM attendance_daily_events WHERE company_id = $1 AND employee_id = $2 AND work_date = $3`

	tag, err := q.Exec(ctx, query, companyID, employeeID, date)
	if err != nil {
		return fmt.Errorf("failed to delete attendance event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrEventNotFound
	}
	return nil
}

// ListEventsForMonth implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListEventsForMonth(ctx context.Context, companyID, employeeID string, year, month int) ([]attendance.DailyEvent, error) {
	q := GetQuerier(ctx, r.db)
	start, end := monthBounds(year, month)

	query := `
		SELECT id, company_id, employee_id, work_date, status, ot_hours, late_minutes, created_at, updated_at
		FROM attendance_daily_events
		WHERE company_id = $1
		  AND employee_id = $2
		  AND work_date >= $3
		  AND work_date < $4
		ORDER BY work_date
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance events: %w", err)
	}
	defer rows.Close()

	var events []attendance.DailyEvent
	for rows.Next() {
		var e attendance.DailyEvent
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.EmployeeID, &e.WorkDate, &e.Status,
			&e.OTHours, &e.LateMinutes, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance events: %w", err)
	}
	return events, nil
}

// ========== MONTHLY SUMMARIES ==========

// UpsertSummary implements attendance.AttendanceRepository. Every field is
// overwritten; summaries are never patched.
func (r *attendanceRepositoryImpl) UpsertSummary(ctx context.Context, summary attendance.MonthlySummary) (attendance.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_monthly_summaries (
			company_id, employee_id, year, month, present_days, ot_hours, late_minutes, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, employee_id, year, month) DO UPDATE SET
			present_days = EXCLUDED.present_days,
			ot_hours = EXCLUDED.ot_hours,
			late_minutes = EXCLUDED.late_minutes,
			last_updated = EXCLUDED.last_updated
		RETURNING id
	`

	err := q.QueryRow(ctx, query,
		summary.CompanyID,
		summary.EmployeeID,
		summary.Year,
		summary.Month,
		summary.PresentDays,
		summary.OTHours,
		summary.LateMinutes,
		summary.LastUpdated,
	).Scan(&summary.ID)
	if err != nil {
		return attendance.MonthlySummary{}, fmt.Errorf("failed to upsert attendance summary: %w", err)
	}
	return summary, nil
}

// GetSummary implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetSummary(ctx context.Context, companyID, employeeID string, year, month int) (attendance.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, employee_id, year, month, present_days, ot_hours, late_minutes, last_updated
		FROM attendance_monthly_summaries
		WHERE company_id = $1 AND employee_id = $2 AND year = $3 AND month = $4
	`

	var s attendance.MonthlySummary
	err := q.QueryRow(ctx, query, companyID, employeeID, year, month).Scan(
		&s.ID, &s.CompanyID, &s.EmployeeID, &s.Year, &s.Month,
		&s.PresentDays, &s.OTHours, &s.LateMinutes, &s.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.MonthlySummary{}, attendance.ErrSummaryNotFound
		}
		return attendance.MonthlySummary{}, fmt.Errorf("failed to get attendance summary: %w", err)
	}
	return s, nil
}

// ========== FALLBACK SOURCES ==========

// UpsertUploadedTotals implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpsertUploadedTotals(ctx context.Context, totals []attendance.UploadedTotals) error {
	if len(totals) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_uploaded_totals (
			company_id, employee_id, year, month, present_days, ot_hours, late_minutes, total_working_days, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (company_id, employee_id, year, month) DO UPDATE SET
			present_days = EXCLUDED.present_days,
			ot_hours = EXCLUDED.ot_hours,
			late_minutes = EXCLUDED.late_minutes,
			total_working_days = EXCLUDED.total_working_days,
			uploaded_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, t := range totals {
		batch.Queue(query, t.CompanyID, t.EmployeeID, t.Year, t.Month, t.PresentDays, t.OTHours, t.LateMinutes, t.TotalWorkingDays)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range totals {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert uploaded totals %d: %w", i, err)
		}
	}
	return results.Close()
}

// GetUploadedTotals implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetUploadedTotals(ctx context.Context, companyID, employeeID string, year, month int) (attendance.UploadedTotals, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, employee_id, year, month, present_days, ot_hours, late_minutes, total_working_days, uploaded_at
		FROM attendance_uploaded_totals
		WHERE company_id = $1 AND employee_id = $2 AND year = $3 AND month = $4
	`

	var t attendance.UploadedTotals
	err := q.QueryRow(ctx, query, companyID, employeeID, year, month).Scan(
		&t.CompanyID, &t.EmployeeID, &t.Year, &t.Month,
		&t.PresentDays, &t.OTHours, &t.LateMinutes, &t.TotalWorkingDays, &t.UploadedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.UploadedTotals{}, attendance.ErrUploadedTotalsNotFound
		}
		return attendance.UploadedTotals{}, fmt.Errorf("failed to get uploaded totals: %w", err)
	}
	return t, nil
}

// GetLegacyAggregate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetLegacyAggregate(ctx context.Context, companyID, employeeID string, year, month int) (attendance.LegacyAggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, employee_id, year, month, present_days, ot_hours, late_minutes
		FROM legacy_monthly_attendance
		WHERE company_id = $1 AND employee_id = $2 AND year = $3 AND month = $4
	`

	var a attendance.LegacyAggregate
	err := q.QueryRow(ctx, query, companyID, employeeID, year, month).Scan(
		&a.CompanyID, &a.EmployeeID, &a.Year, &a.Month, &a.PresentDays, &a.OTHours, &a.LateMinutes,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.LegacyAggregate{}, attendance.ErrLegacyAggregateNotFound
		}
		return attendance.LegacyAggregate{}, fmt.Errorf("failed to get legacy attendance: %w", err)
	}
	return a, nil
}

// ========== AGGREGATIONS ==========

// GetDepartmentTotals implements attendance.AttendanceRepository. Only active
// employees are counted; missing summaries count as zero.
func (r *attendanceRepositoryImpl) GetDepartmentTotals(ctx context.Context, companyID string, year, month int, department string) ([]attendance.DepartmentAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			e.department,
			COUNT(e.id),
			COALESCE(SUM(s.present_days), 0),
			COALESCE(SUM(s.ot_hours), 0),
			COALESCE(SUM(s.late_minutes), 0)
		FROM employees e
		LEFT JOIN attendance_monthly_summaries s
			ON s.employee_id = e.id
		   AND s.company_id = e.company_id
		   AND s.year = $2
		   AND s.month = $3
		WHERE e.company_id = $1
		  AND e.is_active = TRUE
		  AND ($4 = '' OR e.department = $4)
		GROUP BY e.department
		ORDER BY e.department
	`

	rows, err := q.Query(ctx, query, companyID, year, month, department)
	if err != nil {
		return nil, fmt.Errorf("failed to get department attendance: %w", err)
	}
	defer rows.Close()

	var out []attendance.DepartmentAttendance
	for rows.Next() {
		var d attendance.DepartmentAttendance
		if err := rows.Scan(&d.Department, &d.Employees, &d.PresentDays, &d.OTHours, &d.LateMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan department attendance: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate department attendance: %w", err)
	}
	return out, nil
}
