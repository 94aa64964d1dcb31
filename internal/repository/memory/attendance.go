package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

type attendanceRepositoryImpl struct {
	store *Store
}

func NewAttendanceRepository(store *Store) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{store: store}
}

func keyOfEvent(e attendance.DailyEvent) eventKey {
	return eventKey{e.CompanyID, e.EmployeeID, e.WorkDate.Format("2006-01-02")}
}

// upsertEvent requires s.mu to be held.
func (r *attendanceRepositoryImpl) upsertEvent(e attendance.DailyEvent) attendance.DailyEvent {
	now := r.store.now()
	k := keyOfEvent(e)
	if existing, ok := r.store.st.events[k]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = r.store.nextID("evt")
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	r.store.st.events[k] = e
	return e
}

func (r *attendanceRepositoryImpl) UpsertEvent(ctx context.Context, event attendance.DailyEvent) (attendance.DailyEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.upsertEvent(event), nil
}

func (r *attendanceRepositoryImpl) BulkUpsertEvents(ctx context.Context, events []attendance.DailyEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range events {
		r.upsertEvent(e)
	}
	return nil
}

func (r *attendanceRepositoryImpl) DeleteEvent(ctx context.Context, companyID, employeeID string, date time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	k := eventKey{companyID, employeeID, date.Format("2006-01-02")}
	if _, ok := r.store.st.events[k]; !ok {
		return attendance.ErrEventNotFound
	}
	delete(r.store.st.events, k)
	return nil
}

func (r *attendanceRepositoryImpl) ListEventsForMonth(ctx context.Context, companyID, employeeID string, year, month int) ([]attendance.DailyEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []attendance.DailyEvent
	for _, e := range r.store.st.events {
		if e.CompanyID == companyID && e.EmployeeID == employeeID &&
			e.WorkDate.Year() == year && int(e.WorkDate.Month()) == month {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (r *attendanceRepositoryImpl) UpsertSummary(ctx context.Context, summary attendance.MonthlySummary) (attendance.MonthlySummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	k := monthKey{summary.CompanyID, summary.EmployeeID, summary.Year, summary.Month}
	if existing, ok := r.store.st.summaries[k]; ok {
		summary.ID = existing.ID
	} else {
		summary.ID = r.store.nextID("sum")
	}
	r.store.st.summaries[k] = summary
	return summary, nil
}

func (r *attendanceRepositoryImpl) GetSummary(ctx context.Context, companyID, employeeID string, year, month int) (attendance.MonthlySummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.st.summaries[monthKey{companyID, employeeID, year, month}]
	if !ok {
		return attendance.MonthlySummary{}, attendance.ErrSummaryNotFound
	}
	return s, nil
}

func (r *attendanceRepositoryImpl) UpsertUploadedTotals(ctx context.Context, totals []attendance.UploadedTotals) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	for _, t := range totals {
		t.UploadedAt = now
		r.store.st.uploaded[monthKey{t.CompanyID, t.EmployeeID, t.Year, t.Month}] = t
	}
	return nil
}

func (r *attendanceRepositoryImpl) GetUploadedTotals(ctx context.Context, companyID, employeeID string, year, month int) (attendance.UploadedTotals, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.st.uploaded[monthKey{companyID, employeeID, year, month}]
	if !ok {
		return attendance.UploadedTotals{}, attendance.ErrUploadedTotalsNotFound
	}
	return t, nil
}

func (r *attendanceRepositoryImpl) GetLegacyAggregate(ctx context.Context, companyID, employeeID string, year, month int) (attendance.LegacyAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	agg, ok := r.store.st.legacy[monthKey{companyID, employeeID, year, month}]
	if !ok {
		return attendance.LegacyAggregate{}, attendance.ErrLegacyAggregateNotFound
	}
	return agg, nil
}

func (r *attendanceRepositoryImpl) GetDepartmentTotals(ctx context.Context, companyID string, year, month int, department string) ([]attendance.DepartmentAttendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byDept := make(map[string]*attendance.DepartmentAttendance)
	for _, p := range r.store.st.employees {
		if p.CompanyID != companyID || !p.IsActive {
			continue
		}
		if department != "" && p.Department != department {
			continue
		}
		row, ok := byDept[p.Department]
		if !ok {
			row = &attendance.DepartmentAttendance{Department: p.Department, PresentDays: decimal.Zero, OTHours: decimal.Zero}
			byDept[p.Department] = row
		}
		row.Employees++
		if s, ok := r.store.st.summaries[monthKey{companyID, p.ID, year, month}]; ok {
			row.PresentDays = row.PresentDays.Add(s.PresentDays)
			row.OTHours = row.OTHours.Add(s.OTHours)
			row.LateMinutes += s.LateMinutes
		}
	}

	out := make([]attendance.DepartmentAttendance, 0, len(byDept))
	for _, row := range byDept {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, nil
}

type recomputeQueueRepositoryImpl struct {
	store *Store
}

func NewRecomputeQueueRepository(store *Store) attendance.RecomputeQueueRepository {
	return &recomputeQueueRepositoryImpl{store: store}
}

func (r *recomputeQueueRepositoryImpl) Enqueue(ctx context.Context, keys []attendance.RecomputeKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	for _, k := range keys {
		r.store.st.queue = append(r.store.st.queue, queueRow{key: k, enqueuedAt: now})
	}
	return nil
}

func (r *recomputeQueueRepositoryImpl) ClaimStale(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]attendance.RecomputeKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	seen := make(map[attendance.RecomputeKey]bool)
	var claimed []attendance.RecomputeKey
	for i := range r.store.st.queue {
		row := &r.store.st.queue[i]
		if !row.enqueuedAt.Before(staleBefore) || row.attempts >= maxAttempts {
			continue
		}
		if row.lastAttemptAt != nil && !row.lastAttemptAt.Before(staleBefore) {
			continue
		}
		if !seen[row.key] {
			if len(claimed) >= limit {
				continue
			}
			seen[row.key] = true
			claimed = append(claimed, row.key)
		}
		row.attempts++
		row.lastAttemptAt = &now
	}
	return claimed, nil
}

func (r *recomputeQueueRepositoryImpl) Complete(ctx context.Context, key attendance.RecomputeKey, enqueuedBefore time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.st.queue[:0]
	for _, row := range r.store.st.queue {
		if row.key == key && !row.enqueuedAt.After(enqueuedBefore) {
			continue
		}
		kept = append(kept, row)
	}
	r.store.st.queue = kept
	return nil
}
