package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/shopspring/decimal"
)

type advanceRepositoryImpl struct {
	store *Store
}

func NewAdvanceRepository(store *Store) advance.AdvanceRepository {
	return &advanceRepositoryImpl{store: store}
}

func (r *advanceRepositoryImpl) Create(ctx context.Context, entry advance.Entry) (advance.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	entry.ID = r.store.nextID("adv")
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.store.st.advances[entry.ID] = entry
	return entry, nil
}

func (r *advanceRepositoryImpl) list(companyID, employeeID string, openOnly bool) []advance.Entry {
	var out []advance.Entry
	for _, e := range r.store.st.advances {
		if e.CompanyID != companyID || e.EmployeeID != employeeID {
			continue
		}
		if openOnly && !e.IsOpen() {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AdvanceDate.Equal(out[j].AdvanceDate) {
			return out[i].AdvanceDate.Before(out[j].AdvanceDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *advanceRepositoryImpl) ListByEmployee(ctx context.Context, companyID, employeeID string) ([]advance.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.list(companyID, employeeID, false), nil
}

func (r *advanceRepositoryImpl) ListOpenForUpdate(ctx context.Context, companyID, employeeID string) ([]advance.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.list(companyID, employeeID, true), nil
}

func (r *advanceRepositoryImpl) UpdateBalance(ctx context.Context, entry advance.Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.st.advances[entry.ID]
	if !ok || existing.CompanyID != entry.CompanyID {
		return advance.ErrAdvanceNotFound
	}
	existing.RemainingBalance = entry.RemainingBalance
	existing.Status = entry.Status
	existing.UpdatedAt = r.store.now()
	r.store.st.advances[entry.ID] = existing
	return nil
}

func (r *advanceRepositoryImpl) OutstandingBalance(ctx context.Context, companyID, employeeID string) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	total := decimal.Zero
	for _, e := range r.list(companyID, employeeID, true) {
		total = total.Add(e.RemainingBalance)
	}
	return total, nil
}

func (r *advanceRepositoryImpl) CreateAllocations(ctx context.Context, allocations []advance.Allocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	for _, a := range allocations {
		a.ID = r.store.nextID("alloc")
		a.CreatedAt = now
		r.store.st.allocations = append(r.store.st.allocations, a)
	}
	return nil
}

func (r *advanceRepositoryImpl) ListAllocationsByPaymentEvent(ctx context.Context, companyID, paymentEventID string) ([]advance.Allocation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []advance.Allocation
	for _, a := range r.store.st.allocations {
		if a.CompanyID == companyID && a.PaymentEventID == paymentEventID {
			out = append(out, a)
		}
	}
	return out, nil
}
