package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, company_id, employee_code, full_name, department,
	basic_salary, ot_rate_per_hour, tds_percent, weekly_off_days,
	date_of_joining, is_active, created_at, updated_at
`

func scanEmployee(row pgx.Row) (employee.Profile, error) {
	var p employee.Profile
	var offDays []bool
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.EmployeeCode, &p.FullName, &p.Department,
		&p.BasicSalary, &p.OTRatePerHour, &p.TDSPercent, &offDays,
		&p.DateOfJoining, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return employee.Profile{}, err
	}
	for i := 0; i < len(offDays) && i < len(p.WeeklyOffDays); i++ {
		p.WeeklyOffDays[i] = offDays[i]
	}
	return p, nil
}

func collectEmployees(rows pgx.Rows) ([]employee.Profile, error) {
	defer rows.Close()

	var out []employee.Profile
	for rows.Next() {
		p, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return out, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, companyID string, id string) (employee.Profile, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2`

	p, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return employee.Profile{}, employee.ErrEmployeeNotFound
		}
		return employee.Profile{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return p, nil
}

// GetActiveByCompanyID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Profile, error) {
	return r.List(ctx, companyID, employee.DirectoryFilter{ActiveOnly: true})
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context, companyID string, filter employee.DirectoryFilter) ([]employee.Profile, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Department != "" {
		query += fmt.Sprintf(" AND department = $%d", argIdx)
		args = append(args, filter.Department)
		argIdx++
	}
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY employee_code"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return collectEmployees(rows)
}

// CountByDepartment implements employee.EmployeeRepository. An empty
// department counts the whole company.
func (r *employeeRepositoryImpl) CountByDepartment(ctx context.Context, companyID string, department string) (int, int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*)
		FROM employees
		WHERE company_id = $1
		  AND ($2 = '' OR department = $2)
	`

	var active, total int
	if err := q.QueryRow(ctx, query, companyID, department).Scan(&active, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return active, total, nil
}

// SetActive implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) SetActive(ctx context.Context, companyID string, id string, active bool) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE employees SET is_active = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3`

	tag, err := q.Exec(ctx, query, active, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}
