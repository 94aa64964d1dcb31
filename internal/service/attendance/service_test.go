package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	keys []attendance.RecomputeKey
}

func (d *recordingDispatcher) Dispatch(_ context.Context, keys []attendance.RecomputeKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, keys...)
	return nil
}

type attendanceFixture struct {
	store      *memory.Store
	cache      *cache.MemoryStore
	dispatcher *recordingDispatcher
	svc        attendance.AttendanceService
	repo       attendance.AttendanceRepository
	emp        employee.Profile
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()

	store := memory.NewStore()
	repo := memory.NewAttendanceRepository(store)
	dispatcher := &recordingDispatcher{}
	cacheStore := cache.NewMemoryStore()

	var sundayOff employee.WeeklyOffDays
	sundayOff[time.Sunday] = true
	emp := store.PutEmployee(employee.Profile{
		CompanyID:     "company-1",
		EmployeeCode:  "E001",
		FullName:      "Asha Rao",
		Department:    "Operations",
		BasicSalary:   decimal.NewFromInt(30000),
		WeeklyOffDays: sundayOff,
		DateOfJoining: day("2022-01-10"),
		IsActive:      true,
	})

	svc := NewAttendanceService(
		memory.NewTransactor(store),
		repo,
		memory.NewRecomputeQueueRepository(store),
		memory.NewEmployeeRepository(store),
		NewAggregator(repo),
		dispatcher,
		cacheStore,
		time.Minute,
	)
	return &attendanceFixture{store: store, cache: cacheStore, dispatcher: dispatcher, svc: svc, repo: repo, emp: emp}
}

func TestAttendanceService_UpsertEvent_RefreshesSummary(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	resp, err := f.svc.UpsertEvent(ctx, "company-1", attendance.UpsertEventRequest{
		EmployeeID:  f.emp.ID,
		Date:        "2024-03-01",
		Status:      attendance.StatusPresent,
		OTHours:     decimal.NewFromInt(2),
		LateMinutes: 15,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", resp.Date)
	assert.True(t, resp.Summary.PresentDays.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 26, resp.Summary.WorkingDays)
	assert.True(t, resp.Summary.AbsentDays.Equal(decimal.NewFromInt(25)))

	summary, err := f.repo.GetSummary(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 15, summary.LateMinutes)
}

func TestAttendanceService_UpsertEvent_OffDayZeroesOvertime(t *testing.T) {
	f := newAttendanceFixture(t)

	resp, err := f.svc.UpsertEvent(context.Background(), "company-1", attendance.UpsertEventRequest{
		EmployeeID:  f.emp.ID,
		Date:        "2024-03-03",
		Status:      attendance.StatusOff,
		OTHours:     decimal.NewFromInt(4),
		LateMinutes: 30,
	})
	require.NoError(t, err)

	assert.True(t, resp.OTHours.IsZero())
	assert.Zero(t, resp.LateMinutes)
	assert.True(t, resp.Summary.OTHours.IsZero())
}

func TestAttendanceService_UpsertEvent_Errors(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	valid := attendance.UpsertEventRequest{EmployeeID: f.emp.ID, Date: "2024-03-01", Status: attendance.StatusPresent}

	_, err := f.svc.UpsertEvent(ctx, "", valid)
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)

	unknown := valid
	unknown.EmployeeID = "missing"
	_, err = f.svc.UpsertEvent(ctx, "company-1", unknown)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	// another tenant cannot see the employee
	_, err = f.svc.UpsertEvent(ctx, "company-2", valid)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	bad := valid
	bad.Status = "LATE"
	bad.LateMinutes = -1
	_, err = f.svc.UpsertEvent(ctx, "company-1", bad)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "status")
	assert.Contains(t, verrs.ToMap(), "late_minutes")
}

func TestAttendanceService_BulkUpsert_EnqueuesDistinctMonths(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	resp, err := f.svc.BulkUpsert(ctx, "company-1", attendance.BulkUpsertRequest{Events: []attendance.UpsertEventRequest{
		{EmployeeID: f.emp.ID, Date: "2024-03-01", Status: attendance.StatusPresent},
		{EmployeeID: f.emp.ID, Date: "2024-03-02", Status: attendance.StatusHalfDay},
		{EmployeeID: f.emp.ID, Date: "2024-04-01", Status: attendance.StatusAbsent},
	}})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Upserted)
	assert.Equal(t, 2, resp.RecomputeQueued)
	assert.Equal(t, 1, resp.EmployeesTouched)
	assert.Equal(t, 2, f.store.QueueLen())
	assert.ElementsMatch(t, []attendance.RecomputeKey{
		{CompanyID: "company-1", EmployeeID: f.emp.ID, Year: 2024, Month: 3},
		{CompanyID: "company-1", EmployeeID: f.emp.ID, Year: 2024, Month: 4},
	}, f.dispatcher.keys)

	events, err := f.repo.ListEventsForMonth(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAttendanceService_BulkUpsert_ValidationIsAllOrNothing(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.BulkUpsert(ctx, "company-1", attendance.BulkUpsertRequest{Events: []attendance.UpsertEventRequest{
		{EmployeeID: f.emp.ID, Date: "2024-03-01", Status: attendance.StatusPresent},
		{EmployeeID: f.emp.ID, Date: "2024-03-32", Status: attendance.StatusPresent},
	}})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "events[1].date")

	events, err := f.repo.ListEventsForMonth(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, f.store.QueueLen())
	assert.Empty(t, f.dispatcher.keys)
}

func TestAttendanceService_BulkUpsert_UnknownEmployee(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.BulkUpsert(context.Background(), "company-1", attendance.BulkUpsertRequest{Events: []attendance.UpsertEventRequest{
		{EmployeeID: "ghost", Date: "2024-03-01", Status: attendance.StatusPresent},
	}})

	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	assert.Zero(t, f.store.QueueLen())
}

func TestAttendanceService_DeleteEvent(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpsertEvent(ctx, "company-1", attendance.UpsertEventRequest{EmployeeID: f.emp.ID, Date: "2024-03-01", Status: attendance.StatusPresent})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvent(ctx, "company-1", f.emp.ID, "2024-03-01"))

	summary, err := f.repo.GetSummary(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.True(t, summary.PresentDays.IsZero())

	err = f.svc.DeleteEvent(ctx, "company-1", f.emp.ID, "2024-03-01")
	assert.ErrorIs(t, err, attendance.ErrEventNotFound)
}

func TestAttendanceService_Resolve_FallbackOrder(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	workingDays := 24

	// daily events only
	_, err := f.repo.UpsertEvent(ctx, attendance.DailyEvent{CompanyID: "company-1", EmployeeID: f.emp.ID, WorkDate: day("2024-03-01"), Status: attendance.StatusPresent, OTHours: decimal.Zero})
	require.NoError(t, err)
	resolved, err := f.svc.Resolve(ctx, f.emp, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceDailyEvents, resolved.Source)
	assert.True(t, resolved.PresentDays.Equal(decimal.NewFromInt(1)))

	// legacy aggregate beats daily events
	f.store.PutLegacyAggregate(attendance.LegacyAggregate{CompanyID: "company-1", EmployeeID: f.emp.ID, Year: 2024, Month: 3, PresentDays: decimal.NewFromInt(20), OTHours: decimal.Zero})
	resolved, err = f.svc.Resolve(ctx, f.emp, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceLegacy, resolved.Source)
	assert.True(t, resolved.PresentDays.Equal(decimal.NewFromInt(20)))

	// summary beats legacy
	_, err = f.repo.UpsertSummary(ctx, attendance.MonthlySummary{CompanyID: "company-1", EmployeeID: f.emp.ID, Year: 2024, Month: 3, PresentDays: decimal.NewFromInt(21), OTHours: decimal.Zero, LastUpdated: time.Now()})
	require.NoError(t, err)
	resolved, err = f.svc.Resolve(ctx, f.emp, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceSummary, resolved.Source)
	assert.NotNil(t, resolved.LastUpdated)

	// uploaded totals beat everything and carry their own working days
	_, err = f.svc.UpsertUploadedTotals(ctx, "company-1", attendance.UploadTotalsRequest{
		Year:  2024,
		Month: 3,
		Rows: []attendance.UploadedTotalsRow{
			{EmployeeID: f.emp.ID, PresentDays: decimal.NewFromInt(22), OTHours: decimal.NewFromInt(3), LateMinutes: 40, TotalWorkingDays: &workingDays},
		},
	})
	require.NoError(t, err)
	resolved, err = f.svc.Resolve(ctx, f.emp, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceUploaded, resolved.Source)
	assert.True(t, resolved.PresentDays.Equal(decimal.NewFromInt(22)))
	require.NotNil(t, resolved.TotalWorkingDays)
	assert.Equal(t, 24, *resolved.TotalWorkingDays)
}

func TestAttendanceService_GetSummary_InvalidatedByWrites(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetSummary(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.True(t, first.PresentDays.IsZero())
	assert.Equal(t, 1, f.cache.Len())

	_, err = f.svc.UpsertEvent(ctx, "company-1", attendance.UpsertEventRequest{EmployeeID: f.emp.ID, Date: "2024-03-04", Status: attendance.StatusHalfDay})
	require.NoError(t, err)
	assert.Zero(t, f.cache.Len())

	second, err := f.svc.GetSummary(ctx, "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)
	assert.True(t, second.PresentDays.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, attendance.SourceSummary, second.Source)

	// present + absent always adds up to working days
	assert.True(t, second.PresentDays.Add(second.AbsentDays).Equal(decimal.NewFromInt(int64(second.WorkingDays))))
}

func TestAttendanceService_GetSummary_InvalidPeriod(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.GetSummary(context.Background(), "company-1", f.emp.ID, 2024, 13)
	assert.ErrorIs(t, err, attendance.ErrInvalidPeriod)
}

func TestAttendanceService_GetWorkingDays(t *testing.T) {
	f := newAttendanceFixture(t)

	resp, err := f.svc.GetWorkingDays(context.Background(), "company-1", f.emp.ID, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, 26, resp.WorkingDays)
	assert.Equal(t, 31, resp.DaysInMonth)
}
