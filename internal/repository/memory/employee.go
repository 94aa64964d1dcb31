package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
)

type employeeRepositoryImpl struct {
	store *Store
}

func NewEmployeeRepository(store *Store) employee.EmployeeRepository {
	return &employeeRepositoryImpl{store: store}
}

func (r *employeeRepositoryImpl) GetByID(ctx context.Context, companyID string, id string) (employee.Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.employees[id]
	if !ok || p.CompanyID != companyID {
		return employee.Profile{}, employee.ErrEmployeeNotFound
	}
	return p, nil
}

func (r *employeeRepositoryImpl) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Profile, error) {
	return r.List(ctx, companyID, employee.DirectoryFilter{ActiveOnly: true})
}

func (r *employeeRepositoryImpl) List(ctx context.Context, companyID string, filter employee.DirectoryFilter) ([]employee.Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []employee.Profile
	for _, p := range r.store.st.employees {
		if p.CompanyID != companyID {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Department != "" && p.Department != filter.Department {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}

func (r *employeeRepositoryImpl) CountByDepartment(ctx context.Context, companyID string, department string) (int, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	active, total := 0, 0
	for _, p := range r.store.st.employees {
		if p.CompanyID != companyID || (department != "" && p.Department != department) {
			continue
		}
		total++
		if p.IsActive {
			active++
		}
	}
	return active, total, nil
}

func (r *employeeRepositoryImpl) SetActive(ctx context.Context, companyID string, id string, active bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.employees[id]
	if !ok || p.CompanyID != companyID {
		return employee.ErrEmployeeNotFound
	}
	p.IsActive = active
	p.UpdatedAt = r.store.now()
	r.store.st.employees[id] = p
	return nil
}
