package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepositoryImpl struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepositoryImpl{db: db}
}

// ========== PERIODS ==========

const periodColumns = `
	id, company_id, year, month, data_source, is_locked, locked_at,
	working_days_in_month, tds_rate, created_at, updated_at
`

func scanPeriod(row pgx.Row) (payroll.Period, error) {
	var p payroll.Period
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Year, &p.Month, &p.DataSource, &p.IsLocked, &p.LockedAt,
		&p.WorkingDaysInMonth, &p.TDSRate, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *payrollRepositoryImpl) GetPeriod(ctx context.Context, companyID string, year, month int) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + periodColumns + ` FROM payroll_periods WHERE company_id = $1 AND year = $2 AND month = $3`

	p, err := scanPeriod(q.QueryRow(ctx, query, companyID, year, month))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Period{}, payroll.ErrPeriodNotFound
		}
		return payroll.Period{}, fmt.Errorf("failed to get payroll period: %w", err)
	}
	return p, nil
}

// GetPeriodForShare conflicts with the row lock taken by LockPeriod.
func (r *payrollRepositoryImpl) GetPeriodForShare(ctx context.Context, companyID, id string) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + periodColumns + ` FROM payroll_periods WHERE id = $1 AND company_id = $2 FOR SHARE`

	p, err := scanPeriod(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Period{}, payroll.ErrPeriodNotFound
		}
		return payroll.Period{}, fmt.Errorf("failed to get payroll period: %w", err)
	}
	return p, nil
}

// GetOrCreatePeriod inserts the period with the given defaults unless the
// month already exists, in which case the stored row is returned unchanged.
func (r *payrollRepositoryImpl) GetOrCreatePeriod(ctx context.Context, period payroll.Period) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_periods (company_id, year, month, data_source, working_days_in_month, tds_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, year, month) DO UPDATE SET company_id = EXCLUDED.company_id
		RETURNING ` + periodColumns

	p, err := scanPeriod(q.QueryRow(ctx, query,
		period.CompanyID,
		period.Year,
		period.Month,
		period.DataSource,
		period.WorkingDaysInMonth,
		period.TDSRate,
	))
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to get or create payroll period: %w", err)
	}
	return p, nil
}

func (r *payrollRepositoryImpl) UpdatePeriodDataSource(ctx context.Context, companyID, periodID string, source payroll.DataSource) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE payroll_periods SET data_source = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3`

	tag, err := q.Exec(ctx, query, source, periodID, companyID)
	if err != nil {
		return fmt.Errorf("failed to update period data source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPeriodNotFound
	}
	return nil
}

// LockPeriod sets is_locked once; locked_at keeps the first lock time. The
// UPDATE holds the row lock until the caller's transaction ends.
func (r *payrollRepositoryImpl) LockPeriod(ctx context.Context, companyID, periodID string) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_periods
		SET is_locked = TRUE,
			locked_at = COALESCE(locked_at, NOW()),
			updated_at = CASE WHEN is_locked THEN updated_at ELSE NOW() END
		WHERE id = $1 AND company_id = $2
		RETURNING ` + periodColumns

	p, err := scanPeriod(q.QueryRow(ctx, query, periodID, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Period{}, payroll.ErrPeriodNotFound
		}
		return payroll.Period{}, fmt.Errorf("failed to lock payroll period: %w", err)
	}
	return p, nil
}

// DeletePeriod removes the period; its salaries go with it by cascade.
func (r *payrollRepositoryImpl) DeletePeriod(ctx context.Context, companyID, periodID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_periods WHERE id = $1 AND company_id = $2`, periodID, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPeriodNotFound
	}
	return nil
}

func (r *payrollRepositoryImpl) ListPeriodOverviews(ctx context.Context, companyID string) ([]payroll.PeriodOverview, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			p.id, p.company_id, p.year, p.month, p.data_source, p.is_locked, p.locked_at,
			p.working_days_in_month, p.tds_rate, p.created_at, p.updated_at,
			COUNT(s.id),
			COUNT(s.id) FILTER (WHERE s.is_paid),
			COALESCE(SUM(s.gross_salary), 0),
			COALESCE(SUM(s.tds_amount), 0),
			COALESCE(SUM(s.advance_deduction_amount), 0),
			COALESCE(SUM(s.net_payable), 0)
		FROM payroll_periods p
		LEFT JOIN calculated_salaries s ON s.period_id = p.id AND s.company_id = p.company_id
		WHERE p.company_id = $1
		GROUP BY p.id
		ORDER BY p.year DESC, p.month DESC
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll periods: %w", err)
	}
	defer rows.Close()

	var out []payroll.PeriodOverview
	for rows.Next() {
		var ov payroll.PeriodOverview
		if err := rows.Scan(
			&ov.ID, &ov.CompanyID, &ov.Year, &ov.Month, &ov.DataSource, &ov.IsLocked, &ov.LockedAt,
			&ov.WorkingDaysInMonth, &ov.TDSRate, &ov.CreatedAt, &ov.UpdatedAt,
			&ov.EmployeeCount, &ov.PaidCount,
			&ov.TotalGross, &ov.TotalTDS, &ov.TotalAdvance, &ov.TotalNet,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll period: %w", err)
		}
		out = append(out, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll periods: %w", err)
	}
	return out, nil
}

// ========== CALCULATED SALARIES ==========

const salaryColumns = `
	s.id, s.company_id, s.period_id, s.employee_id,
	s.basic_salary, s.total_working_days, s.working_days_source, s.present_days, s.absent_days,
	s.ot_hours, s.late_minutes, s.employee_ot_rate, s.employee_tds_rate, s.period_tds_rate,
	s.incentive, s.outstanding_advance_balance, s.advance_deduction_override, s.attendance_source,
	s.salary_for_present_days, s.ot_charges, s.late_deduction, s.gross_salary, s.tds_rate,
	s.tds_amount, s.salary_after_tds, s.advance_deduction_amount, s.remaining_advance_balance,
	s.net_payable, s.is_paid, s.payment_date, s.payment_event_id::text, s.created_at, s.updated_at,
	e.employee_code, e.full_name, e.department
`

const salaryFrom = `
	FROM calculated_salaries s
	JOIN employees e ON e.id = s.employee_id
`

func scanSalary(row pgx.Row) (payroll.CalculatedSalary, error) {
	var s payroll.CalculatedSalary
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.PeriodID, &s.EmployeeID,
		&s.BasicSalary, &s.TotalWorkingDays, &s.WorkingDaysSource, &s.PresentDays, &s.AbsentDays,
		&s.OTHours, &s.LateMinutes, &s.EmployeeOTRate, &s.EmployeeTDSRate, &s.PeriodTDSRate,
		&s.Incentive, &s.OutstandingAdvanceBalance, &s.AdvanceDeductionOverride, &s.AttendanceSource,
		&s.SalaryForPresentDays, &s.OTCharges, &s.LateDeduction, &s.GrossSalary, &s.AppliedTDSRate,
		&s.TDSAmount, &s.SalaryAfterTDS, &s.AdvanceDeductionAmount, &s.RemainingAdvanceBalance,
		&s.NetPayable, &s.IsPaid, &s.PaymentDate, &s.PaymentEventID, &s.CreatedAt, &s.UpdatedAt,
		&s.EmployeeCode, &s.EmployeeName, &s.Department,
	)
	return s, err
}

func collectSalaries(rows pgx.Rows) ([]payroll.CalculatedSalary, error) {
	defer rows.Close()

	var out []payroll.CalculatedSalary
	for rows.Next() {
		s, err := scanSalary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculated salary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculated salaries: %w", err)
	}
	return out, nil
}

// UpsertSalary writes the snapshot and outputs. Payment columns are never
// touched here; they belong to SetPaymentStatus.
func (r *payrollRepositoryImpl) UpsertSalary(ctx context.Context, salary payroll.CalculatedSalary) (payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO calculated_salaries (
			company_id, period_id, employee_id,
			basic_salary, total_working_days, working_days_source, present_days, absent_days,
			ot_hours, late_minutes, employee_ot_rate, employee_tds_rate, period_tds_rate,
			incentive, outstanding_advance_balance, advance_deduction_override, attendance_source,
			salary_for_present_days, ot_charges, late_deduction, gross_salary, tds_rate,
			tds_amount, salary_after_tds, advance_deduction_amount, remaining_advance_balance, net_payable
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
		ON CONFLICT (company_id, period_id, employee_id) DO UPDATE SET
			basic_salary = EXCLUDED.basic_salary,
			total_working_days = EXCLUDED.total_working_days,
			working_days_source = EXCLUDED.working_days_source,
			present_days = EXCLUDED.present_days,
			absent_days = EXCLUDED.absent_days,
			ot_hours = EXCLUDED.ot_hours,
			late_minutes = EXCLUDED.late_minutes,
			employee_ot_rate = EXCLUDED.employee_ot_rate,
			employee_tds_rate = EXCLUDED.employee_tds_rate,
			period_tds_rate = EXCLUDED.period_tds_rate,
			incentive = EXCLUDED.incentive,
			outstanding_advance_balance = EXCLUDED.outstanding_advance_balance,
			advance_deduction_override = EXCLUDED.advance_deduction_override,
			attendance_source = EXCLUDED.attendance_source,
			salary_for_present_days = EXCLUDED.salary_for_present_days,
			ot_charges = EXCLUDED.ot_charges,
			late_deduction = EXCLUDED.late_deduction,
			gross_salary = EXCLUDED.gross_salary,
			tds_rate = EXCLUDED.tds_rate,
			tds_amount = EXCLUDED.tds_amount,
			salary_after_tds = EXCLUDED.salary_after_tds,
			advance_deduction_amount = EXCLUDED.advance_deduction_amount,
			remaining_advance_balance = EXCLUDED.remaining_advance_balance,
			net_payable = EXCLUDED.net_payable,
			updated_at = NOW()
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query,
		salary.CompanyID, salary.PeriodID, salary.EmployeeID,
		salary.BasicSalary, salary.TotalWorkingDays, salary.WorkingDaysSource, salary.PresentDays, salary.AbsentDays,
		salary.OTHours, salary.LateMinutes, salary.EmployeeOTRate, salary.EmployeeTDSRate, salary.PeriodTDSRate,
		salary.Incentive, salary.OutstandingAdvanceBalance, salary.AdvanceDeductionOverride, salary.AttendanceSource,
		salary.SalaryForPresentDays, salary.OTCharges, salary.LateDeduction, salary.GrossSalary, salary.AppliedTDSRate,
		salary.TDSAmount, salary.SalaryAfterTDS, salary.AdvanceDeductionAmount, salary.RemainingAdvanceBalance, salary.NetPayable,
	).Scan(&id)
	if err != nil {
		return payroll.CalculatedSalary{}, fmt.Errorf("failed to upsert calculated salary: %w", err)
	}

	return r.GetSalaryByID(ctx, salary.CompanyID, id)
}

func (r *payrollRepositoryImpl) GetSalaryByID(ctx context.Context, companyID, id string) (payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryColumns + salaryFrom + ` WHERE s.id = $1 AND s.company_id = $2`

	s, err := scanSalary(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.CalculatedSalary{}, payroll.ErrSalaryNotFound
		}
		return payroll.CalculatedSalary{}, fmt.Errorf("failed to get calculated salary: %w", err)
	}
	return s, nil
}

func (r *payrollRepositoryImpl) GetSalaryByEmployee(ctx context.Context, companyID, periodID, employeeID string) (payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryColumns + salaryFrom + `
		WHERE s.company_id = $1 AND s.period_id = $2 AND s.employee_id = $3
	`

	s, err := scanSalary(q.QueryRow(ctx, query, companyID, periodID, employeeID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.CalculatedSalary{}, payroll.ErrSalaryNotFound
		}
		return payroll.CalculatedSalary{}, fmt.Errorf("failed to get calculated salary: %w", err)
	}
	return s, nil
}

func (r *payrollRepositoryImpl) ListSalariesByPeriod(ctx context.Context, companyID, periodID string) ([]payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryColumns + salaryFrom + `
		WHERE s.company_id = $1 AND s.period_id = $2
		ORDER BY e.employee_code
	`

	rows, err := q.Query(ctx, query, companyID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculated salaries: %w", err)
	}
	return collectSalaries(rows)
}

// ListSalariesForUpdate locks rows in id order so concurrent payments cannot
// deadlock on each other.
func (r *payrollRepositoryImpl) ListSalariesForUpdate(ctx context.Context, companyID string, ids []string) ([]payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryColumns + salaryFrom + `
		WHERE s.company_id = $1 AND s.id::text = ANY($2)
		ORDER BY s.id
		FOR UPDATE OF s
	`

	rows, err := q.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock calculated salaries: %w", err)
	}
	return collectSalaries(rows)
}

func (r *payrollRepositoryImpl) SetPaymentStatus(ctx context.Context, companyID, id string, paid bool, paymentDate *time.Time, paymentEventID *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE calculated_salaries
		SET is_paid = $1, payment_date = $2, payment_event_id = $3::uuid, updated_at = NOW()
		WHERE id = $4 AND company_id = $5
	`

	tag, err := q.Exec(ctx, query, paid, paymentDate, paymentEventID, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrSalaryNotFound
	}
	return nil
}

func (r *payrollRepositoryImpl) CountPaidByPeriod(ctx context.Context, companyID, periodID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COUNT(*) FROM calculated_salaries WHERE company_id = $1 AND period_id = $2 AND is_paid = TRUE`

	var n int
	if err := q.QueryRow(ctx, query, companyID, periodID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count paid salaries: %w", err)
	}
	return n, nil
}

// ========== AGGREGATIONS ==========

func (r *payrollRepositoryImpl) GetPeriodTotals(ctx context.Context, companyID string, year, month int) (payroll.PeriodTotals, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(s.id),
			COUNT(s.id) FILTER (WHERE s.is_paid),
			COALESCE(SUM(s.gross_salary), 0),
			COALESCE(SUM(s.net_payable), 0)
		FROM payroll_periods p
		JOIN calculated_salaries s ON s.period_id = p.id
		WHERE p.company_id = $1 AND p.year = $2 AND p.month = $3
	`

	var t payroll.PeriodTotals
	err := q.QueryRow(ctx, query, companyID, year, month).Scan(&t.EmployeeCount, &t.PaidCount, &t.TotalGross, &t.TotalNet)
	if err != nil {
		return payroll.PeriodTotals{}, fmt.Errorf("failed to get payroll totals: %w", err)
	}
	return t, nil
}
