package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type advanceRepositoryImpl struct {
	db *database.DB
}

func NewAdvanceRepository(db *database.DB) advance.AdvanceRepository {
	return &advanceRepositoryImpl{db: db}
}

const advanceEntryColumns = `
	id, company_id, employee_id, amount, remaining_balance, status,
	advance_date, for_month, note, created_at, updated_at
`

func collectAdvanceEntries(rows pgx.Rows) ([]advance.Entry, error) {
	defer rows.Close()

	var entries []advance.Entry
	for rows.Next() {
		var e advance.Entry
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.EmployeeID, &e.Amount, &e.RemainingBalance, &e.Status,
			&e.AdvanceDate, &e.ForMonth, &e.Note, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan advance entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advance entries: %w", err)
	}
	return entries, nil
}

// Create implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) Create(ctx context.Context, entry advance.Entry) (advance.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO advance_ledger_entries (
			company_id, employee_id, amount, remaining_balance, status, advance_date, for_month, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.CompanyID,
		entry.EmployeeID,
		entry.Amount,
		entry.RemainingBalance,
		entry.Status,
		entry.AdvanceDate,
		entry.ForMonth,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return advance.Entry{}, fmt.Errorf("failed to create advance entry: %w", err)
	}
	return entry, nil
}

// ListByEmployee implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) ListByEmployee(ctx context.Context, companyID, employeeID string) ([]advance.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + advanceEntryColumns + `
		FROM advance_ledger_entries
		WHERE company_id = $1 AND employee_id = $2
		ORDER BY advance_date, id
	`

	rows, err := q.Query(ctx, query, companyID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advance entries: %w", err)
	}
	return collectAdvanceEntries(rows)
}

// ListOpenForUpdate implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) ListOpenForUpdate(ctx context.Context, companyID, employeeID string) ([]advance.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + advanceEntryColumns + `
		FROM advance_ledger_entries
		WHERE company_id = $1
		  AND employee_id = $2
		  AND status IN ('PENDING', 'PARTIALLY_PAID')
		ORDER BY advance_date, id
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, companyID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock open advance entries: %w", err)
	}
	return collectAdvanceEntries(rows)
}

// UpdateBalance implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) UpdateBalance(ctx context.Context, entry advance.Entry) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_ledger_entries
		SET remaining_balance = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND company_id = $4
	`

	tag, err := q.Exec(ctx, query, entry.RemainingBalance, entry.Status, entry.ID, entry.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to update advance balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrAdvanceNotFound
	}
	return nil
}

// OutstandingBalance implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) OutstandingBalance(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(remaining_balance), 0)
		FROM advance_ledger_entries
		WHERE company_id = $1
		  AND employee_id = $2
		  AND status IN ('PENDING', 'PARTIALLY_PAID')
	`

	var balance decimal.Decimal
	if err := q.QueryRow(ctx, query, companyID, employeeID).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding advances: %w", err)
	}
	return balance, nil
}

// CreateAllocations implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) CreateAllocations(ctx context.Context, allocations []advance.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO advance_allocations (
			company_id, payment_event_id, salary_id, entry_id, amount, balance_before, balance_after, status_after
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, a := range allocations {
		batch.Queue(query, a.CompanyID, a.PaymentEventID, a.SalaryID, a.EntryID, a.Amount, a.BalanceBefore, a.BalanceAfter, a.StatusAfter)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range allocations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create advance allocation: %w", err)
		}
	}
	return results.Close()
}

// ListAllocationsByPaymentEvent implements advance.AdvanceRepository.
func (r *advanceRepositoryImpl) ListAllocationsByPaymentEvent(ctx context.Context, companyID, paymentEventID string) ([]advance.Allocation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, payment_event_id, COALESCE(salary_id::text, ''), entry_id,
			   amount, balance_before, balance_after, status_after, created_at
		FROM advance_allocations
		WHERE company_id = $1 AND payment_event_id = $2
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, companyID, paymentEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advance allocations: %w", err)
	}
	defer rows.Close()

	var out []advance.Allocation
	for rows.Next() {
		var a advance.Allocation
		if err := rows.Scan(
			&a.ID, &a.CompanyID, &a.PaymentEventID, &a.SalaryID, &a.EntryID,
			&a.Amount, &a.BalanceBefore, &a.BalanceAfter, &a.StatusAfter, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan advance allocation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advance allocations: %w", err)
	}
	return out, nil
}
