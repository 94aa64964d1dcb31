package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access for daily events and the monthly
// aggregates derived from them. All methods are scoped by companyID.
type AttendanceRepository interface {
	// Daily events
	UpsertEvent(ctx context.Context, event DailyEvent) (DailyEvent, error)
	BulkUpsertEvents(ctx context.Context, events []DailyEvent) error
	DeleteEvent(ctx context.Context, companyID, employeeID string, date time.Time) error
	ListEventsForMonth(ctx context.Context, companyID, employeeID string, year, month int) ([]DailyEvent, error)

	// Monthly summaries
	UpsertSummary(ctx context.Context, summary MonthlySummary) (MonthlySummary, error)
	GetSummary(ctx context.Context, companyID, employeeID string, year, month int) (MonthlySummary, error)

	// Fallback sources
	UpsertUploadedTotals(ctx context.Context, totals []UploadedTotals) error
	GetUploadedTotals(ctx context.Context, companyID, employeeID string, year, month int) (UploadedTotals, error)
	GetLegacyAggregate(ctx context.Context, companyID, employeeID string, year, month int) (LegacyAggregate, error)

	// Aggregations
	GetDepartmentTotals(ctx context.Context, companyID string, year, month int, department string) ([]DepartmentAttendance, error)
}

// RecomputeQueueRepository is the durable outbox of pending recomputations.
type RecomputeQueueRepository interface {
	Enqueue(ctx context.Context, keys []RecomputeKey) error
	// ClaimStale returns keys enqueued before staleBefore that were not
	// attempted since, bumping their attempt counter.
	ClaimStale(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]RecomputeKey, error)
	// Complete removes the key's rows enqueued at or before enqueuedBefore.
	Complete(ctx context.Context, key RecomputeKey, enqueuedBefore time.Time) error
}
