package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a connection to the integration test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. Tests
// are skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 5, MinConns: 1})
	require.NoError(t, err, "failed to connect to test database")

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "001_payroll_engine.sql"))
	require.NoError(t, err)
	_, err = db.Exec(ctx, string(schema))
	require.NoError(t, err, "failed to apply schema")

	s := &TestDatabaseSetup{DB: db}
	require.NoError(t, s.TruncateAllTables(ctx))
	t.Cleanup(s.Close)
	return s
}

// TruncateAllTables removes all rows from the payroll engine tables.
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"advance_allocations",
		"calculated_salaries",
		"payroll_periods",
		"advance_ledger_entries",
		"attendance_recompute_queue",
		"legacy_monthly_attendance",
		"attendance_uploaded_totals",
		"attendance_monthly_summaries",
		"attendance_daily_events",
		"employees",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// InsertEmployee adds an active employee with Sunday off and returns its id.
func (s *TestDatabaseSetup) InsertEmployee(t *testing.T, companyID, code, department string) string {
	t.Helper()

	var id string
	err := s.DB.QueryRow(context.Background(), `
		INSERT INTO employees (company_id, employee_code, full_name, department, basic_salary, ot_rate_per_hour, date_of_joining)
		VALUES ($1, $2, $3, $4, 30000, 125, '2022-01-10')
		RETURNING id
	`, companyID, code, "Employee "+code, department).Scan(&id)
	require.NoError(t, err)
	return id
}

func (s *TestDatabaseSetup) Close() {
	s.DB.Close()
}

func newCompanyID() string {
	return uuid.NewString()
}
