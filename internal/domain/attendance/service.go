package attendance

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
)

// Aggregator rebuilds one monthly summary from its daily events.
type Aggregator interface {
	Recompute(ctx context.Context, companyID, employeeID string, year, month int) (MonthlySummary, error)
}

// RecomputeDispatcher schedules background recomputation. Dispatch returns
// once caches are invalidated; the recompute itself happens later.
type RecomputeDispatcher interface {
	Dispatch(ctx context.Context, keys []RecomputeKey) error
}

// AttendanceService defines ingestion and read operations for attendance
type AttendanceService interface {
	// UpsertEvent writes one event and refreshes its summary synchronously
	UpsertEvent(ctx context.Context, companyID string, req UpsertEventRequest) (EventResponse, error)

	// BulkUpsert writes a batch atomically and dispatches background recomputation
	BulkUpsert(ctx context.Context, companyID string, req BulkUpsertRequest) (BulkUpsertResponse, error)

	// DeleteEvent removes one event and refreshes its summary synchronously
	DeleteEvent(ctx context.Context, companyID, employeeID, date string) error

	// UpsertUploadedTotals stores imported monthly totals
	UpsertUploadedTotals(ctx context.Context, companyID string, req UploadTotalsRequest) (UploadTotalsResponse, error)

	// GetSummary returns resolved monthly totals with working and absent days
	GetSummary(ctx context.Context, companyID, employeeID string, year, month int) (SummaryResponse, error)

	// GetWorkingDays returns the employee's working days in the month
	GetWorkingDays(ctx context.Context, companyID, employeeID string, year, month int) (WorkingDaysResponse, error)

	// Resolve walks the fallback chain: uploaded totals, summary, legacy
	// aggregate, then on-the-fly aggregation of daily events
	Resolve(ctx context.Context, profile employee.Profile, year, month int) (Resolved, error)
}
