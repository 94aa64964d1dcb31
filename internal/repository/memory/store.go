// Package memory holds in-process implementations of the repository
// interfaces. They back unit tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
)

type monthKey struct {
	companyID  string
	employeeID string
	year       int
	month      int
}

type eventKey struct {
	companyID  string
	employeeID string
	date       string
}

type queueRow struct {
	key           attendance.RecomputeKey
	enqueuedAt    time.Time
	attempts      int
	lastAttemptAt *time.Time
}

type state struct {
	employees   map[string]employee.Profile
	events      map[eventKey]attendance.DailyEvent
	summaries   map[monthKey]attendance.MonthlySummary
	uploaded    map[monthKey]attendance.UploadedTotals
	legacy      map[monthKey]attendance.LegacyAggregate
	queue       []queueRow
	advances    map[string]advance.Entry
	allocations []advance.Allocation
	periods     map[string]payroll.Period
	salaries    map[string]payroll.CalculatedSalary
}

func newState() state {
	return state{
		employees: make(map[string]employee.Profile),
		events:    make(map[eventKey]attendance.DailyEvent),
		summaries: make(map[monthKey]attendance.MonthlySummary),
		uploaded:  make(map[monthKey]attendance.UploadedTotals),
		legacy:    make(map[monthKey]attendance.LegacyAggregate),
		advances:  make(map[string]advance.Entry),
		periods:   make(map[string]payroll.Period),
		salaries:  make(map[string]payroll.CalculatedSalary),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.summaries {
		c.summaries[k] = v
	}
	for k, v := range s.uploaded {
		c.uploaded[k] = v
	}
	for k, v := range s.legacy {
		c.legacy[k] = v
	}
	c.queue = append(c.queue, s.queue...)
	for k, v := range s.advances {
		c.advances[k] = v
	}
	c.allocations = append(c.allocations, s.allocations...)
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.salaries {
		c.salaries[k] = v
	}
	return c
}

// Store is the shared state behind every memory repository.
type Store struct {
	mu  sync.Mutex
	st  state
	seq int
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the store's time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// nextID returns ids that sort in creation order. Callers hold s.mu.
func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%06d", prefix, s.seq)
}

// PutEmployee inserts or replaces an employee profile.
func (s *Store) PutEmployee(p employee.Profile) employee.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("emp")
	}
	s.st.employees[p.ID] = p
	return p
}

// PutLegacyAggregate seeds the legacy monthly attendance table.
func (s *Store) PutLegacyAggregate(agg attendance.LegacyAggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.legacy[monthKey{agg.CompanyID, agg.EmployeeID, agg.Year, agg.Month}] = agg
}

// QueueLen returns the number of outbox rows.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.queue)
}

type txKey struct{}

type transactor struct {
	store *Store
}

// NewTransactor returns a Transactor that restores the store's previous state
// when fn fails. Nested calls join the outer transaction.
func NewTransactor(store *Store) database.Transactor {
	return &transactor{store: store}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	t.store.mu.Lock()
	snapshot := t.store.st.clone()
	t.store.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.mu.Lock()
		t.store.st = snapshot
		t.store.mu.Unlock()
		return err
	}
	return nil
}
