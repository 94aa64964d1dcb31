package recompute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/hris-payroll-engine/internal/service/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAggregator struct {
	mu    sync.Mutex
	calls map[attendance.RecomputeKey]int
	fail  bool
}

func newCountingAggregator() *countingAggregator {
	return &countingAggregator{calls: make(map[attendance.RecomputeKey]int)}
}

func (a *countingAggregator) Recompute(_ context.Context, companyID, employeeID string, year, month int) (attendance.MonthlySummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return attendance.MonthlySummary{}, errors.New("database unavailable")
	}
	a.calls[attendance.RecomputeKey{CompanyID: companyID, EmployeeID: employeeID, Year: year, Month: month}]++
	return attendance.MonthlySummary{
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Year:        year,
		Month:       month,
		PresentDays: decimal.NewFromInt(20),
		OTHours:     decimal.Zero,
	}, nil
}

func (a *countingAggregator) count(k attendance.RecomputeKey) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[k]
}

func key(employeeID string, month int) attendance.RecomputeKey {
	return attendance.RecomputeKey{CompanyID: "company-1", EmployeeID: employeeID, Year: 2024, Month: month}
}

func TestCoordinator_Dispatch_DeduplicatesPendingKeys(t *testing.T) {
	store := memory.NewStore()
	agg := newCountingAggregator()
	c := NewCoordinator(agg, memory.NewRecomputeQueueRepository(store), cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{Workers: 2})
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, []attendance.RecomputeKey{key("e1", 3), key("e1", 3), key("e2", 3)}))
	require.NoError(t, c.Dispatch(ctx, []attendance.RecomputeKey{key("e1", 3)}))
	assert.Equal(t, 2, c.Pending())

	c.Start(ctx)
	c.Stop()

	assert.Equal(t, 1, agg.count(key("e1", 3)))
	assert.Equal(t, 1, agg.count(key("e2", 3)))
	assert.Zero(t, c.Pending())
}

func TestCoordinator_Dispatch_InvalidatesBeforeWork(t *testing.T) {
	ctx := context.Background()
	cacheStore := cache.NewMemoryStore()
	require.NoError(t, cacheStore.Set(ctx, cache.Key{TenantID: "company-1", Resource: cache.ResourceAttendance, Sub: "summary:e1:2024-03"}, "stale", time.Minute))
	require.NoError(t, cacheStore.Set(ctx, cache.Key{TenantID: "company-1", Resource: cache.ResourceDashboard, Sub: "all"}, "stale", time.Minute))
	require.NoError(t, cacheStore.Set(ctx, cache.Key{TenantID: "company-2", Resource: cache.ResourceAttendance, Sub: "summary:e9:2024-03"}, "other tenant", time.Minute))

	agg := newCountingAggregator()
	c := NewCoordinator(agg, memory.NewRecomputeQueueRepository(memory.NewStore()), cache.NewInvalidator(cacheStore), sse.NewHub(), Options{})

	// workers not started: invalidation must not wait for the recompute
	require.NoError(t, c.Dispatch(ctx, []attendance.RecomputeKey{key("e1", 3)}))

	assert.Equal(t, 1, cacheStore.Len())
	assert.Zero(t, agg.count(key("e1", 3)))
	c.Stop()
}

func TestCoordinator_Dispatch_FullQueueLeavesOutboxRow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	t0 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return t0 })
	queueRepo := memory.NewRecomputeQueueRepository(store)

	agg := newCountingAggregator()
	c := NewCoordinator(agg, queueRepo, cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{QueueSize: 1, StaleAfter: time.Minute})
	c.now = func() time.Time { return t0.Add(5 * time.Minute) }

	keys := []attendance.RecomputeKey{key("e1", 3), key("e2", 3)}
	require.NoError(t, queueRepo.Enqueue(ctx, keys))
	require.NoError(t, c.Dispatch(ctx, keys))
	assert.Equal(t, 1, c.Pending())

	c.Start(ctx)
	c.Stop()
	assert.Equal(t, 1, agg.count(key("e1", 3)))
	assert.Zero(t, agg.count(key("e2", 3)))
	assert.Equal(t, 1, store.QueueLen())

	// the sweeper picks up what the full queue dropped
	c2 := NewCoordinator(agg, queueRepo, cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{StaleAfter: time.Minute})
	c2.now = c.now
	n, err := c2.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c2.Start(ctx)
	c2.Stop()
	assert.Equal(t, 1, agg.count(key("e2", 3)))
	assert.Zero(t, store.QueueLen())
}

func TestCoordinator_Run_PublishesAndCompletes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	queueRepo := memory.NewRecomputeQueueRepository(store)
	hub := sse.NewHub()
	events, unsubscribe := hub.Subscribe("company-1")
	defer unsubscribe()

	c := NewCoordinator(newCountingAggregator(), queueRepo, cache.NewInvalidator(cache.NewMemoryStore()), hub, Options{})
	require.NoError(t, queueRepo.Enqueue(ctx, []attendance.RecomputeKey{key("e1", 3), key("e1", 3)}))

	require.NoError(t, c.Run(ctx, key("e1", 3)))

	assert.Zero(t, store.QueueLen())
	select {
	case ev := <-events:
		assert.Equal(t, EventRecomputed, ev.Event)
		assert.Equal(t, "company-1", ev.TenantID)
	case <-time.After(time.Second):
		t.Fatal("expected a recompute event")
	}
}

func TestCoordinator_Run_FailureKeepsOutboxRow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	queueRepo := memory.NewRecomputeQueueRepository(store)
	agg := newCountingAggregator()
	agg.fail = true

	c := NewCoordinator(agg, queueRepo, cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{})
	require.NoError(t, queueRepo.Enqueue(ctx, []attendance.RecomputeKey{key("e1", 3)}))

	err := c.Run(ctx, key("e1", 3))

	assert.Error(t, err)
	assert.Equal(t, 1, store.QueueLen())
}

func TestCoordinator_Dispatch_AfterStopIsDropped(t *testing.T) {
	agg := newCountingAggregator()
	c := NewCoordinator(agg, memory.NewRecomputeQueueRepository(memory.NewStore()), cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{})
	c.Stop()

	assert.NoError(t, c.Dispatch(context.Background(), []attendance.RecomputeKey{key("e1", 3)}))
	assert.Zero(t, c.Pending())
}

// gatedAttendanceRepo holds the first month read until release is closed.
type gatedAttendanceRepo struct {
	attendance.AttendanceRepository

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedAttendanceRepo) ListEventsForMonth(ctx context.Context, companyID, employeeID string, year, month int) ([]attendance.DailyEvent, error) {
	events, err := r.AttendanceRepository.ListEventsForMonth(ctx, companyID, employeeID, year, month)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
	}
	return events, err
}

func presentOn(day int) attendance.DailyEvent {
	return attendance.DailyEvent{
		CompanyID:  "company-1",
		EmployeeID: "e1",
		WorkDate:   time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Status:     attendance.StatusPresent,
		OTHours:    decimal.Zero,
	}
}

func TestCoordinator_SameKeyRunsInOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	attendanceRepo := memory.NewAttendanceRepository(store)
	gated := &gatedAttendanceRepo{
		AttendanceRepository: attendanceRepo,
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	c := NewCoordinator(attendancesvc.NewAggregator(gated), memory.NewRecomputeQueueRepository(store), cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{Workers: 2})
	c.Start(ctx)

	_, err := attendanceRepo.UpsertEvent(ctx, presentOn(1))
	require.NoError(t, err)
	require.NoError(t, c.Dispatch(ctx, []attendance.RecomputeKey{key("e1", 3)}))
	<-gated.entered

	// second write lands while the first run still holds its stale read
	_, err = attendanceRepo.UpsertEvent(ctx, presentOn(2))
	require.NoError(t, err)
	require.NoError(t, c.Dispatch(ctx, []attendance.RecomputeKey{key("e1", 3)}))
	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)

	close(gated.release)
	c.Stop()

	summary, err := attendanceRepo.GetSummary(ctx, "company-1", "e1", 2024, 3)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(summary.PresentDays), "present days: %s", summary.PresentDays)
}

func TestCoordinator_Stop_DrainsQueueOnLiveContext(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	queueRepo := memory.NewRecomputeQueueRepository(store)
	agg := newCountingAggregator()
	c := NewCoordinator(agg, queueRepo, cache.NewInvalidator(cache.NewMemoryStore()), sse.NewHub(), Options{Workers: 1})

	keys := []attendance.RecomputeKey{key("e1", 3), key("e2", 3), key("e3", 3)}
	require.NoError(t, queueRepo.Enqueue(ctx, keys))
	require.NoError(t, c.Dispatch(ctx, keys))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	c.Start(workerCtx)
	c.Stop()
	cancelWorkers()

	for _, k := range keys {
		assert.Equal(t, 1, agg.count(k), k.String())
	}
	assert.Zero(t, store.QueueLen())
}
