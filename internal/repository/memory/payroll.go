package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type payrollRepositoryImpl struct {
	store *Store
}

func NewPayrollRepository(store *Store) payroll.PayrollRepository {
	return &payrollRepositoryImpl{store: store}
}

func (r *payrollRepositoryImpl) findPeriod(companyID string, year, month int) (payroll.Period, bool) {
	for _, p := range r.store.st.periods {
		if p.CompanyID == companyID && p.Year == year && p.Month == month {
			return p, true
		}
	}
	return payroll.Period{}, false
}

// withEmployee fills the joined employee columns.
func (r *payrollRepositoryImpl) withEmployee(s payroll.CalculatedSalary) payroll.CalculatedSalary {
	if p, ok := r.store.st.employees[s.EmployeeID]; ok {
		s.EmployeeCode = p.EmployeeCode
		s.EmployeeName = p.FullName
		s.Department = p.Department
	}
	return s
}

func (r *payrollRepositoryImpl) GetPeriod(ctx context.Context, companyID string, year, month int) (payroll.Period, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.findPeriod(companyID, year, month)
	if !ok {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	return p, nil
}

func (r *payrollRepositoryImpl) GetPeriodForShare(ctx context.Context, companyID, id string) (payroll.Period, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.periods[id]
	if !ok || p.CompanyID != companyID {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	return p, nil
}

func (r *payrollRepositoryImpl) GetOrCreatePeriod(ctx context.Context, period payroll.Period) (payroll.Period, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if p, ok := r.findPeriod(period.CompanyID, period.Year, period.Month); ok {
		return p, nil
	}
	now := r.store.now()
	period.ID = r.store.nextID("period")
	period.CreatedAt = now
	period.UpdatedAt = now
	r.store.st.periods[period.ID] = period
	return period, nil
}

func (r *payrollRepositoryImpl) UpdatePeriodDataSource(ctx context.Context, companyID, periodID string, source payroll.DataSource) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.periods[periodID]
	if !ok || p.CompanyID != companyID {
		return payroll.ErrPeriodNotFound
	}
	p.DataSource = source
	p.UpdatedAt = r.store.now()
	r.store.st.periods[periodID] = p
	return nil
}

func (r *payrollRepositoryImpl) LockPeriod(ctx context.Context, companyID, periodID string) (payroll.Period, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.periods[periodID]
	if !ok || p.CompanyID != companyID {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	if !p.IsLocked {
		now := r.store.now()
		p.IsLocked = true
		p.LockedAt = &now
		p.UpdatedAt = now
		r.store.st.periods[periodID] = p
	}
	return p, nil
}

func (r *payrollRepositoryImpl) DeletePeriod(ctx context.Context, companyID, periodID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.st.periods[periodID]
	if !ok || p.CompanyID != companyID {
		return payroll.ErrPeriodNotFound
	}
	for id, s := range r.store.st.salaries {
		if s.PeriodID == periodID {
			delete(r.store.st.salaries, id)
		}
	}
	delete(r.store.st.periods, periodID)
	return nil
}

func (r *payrollRepositoryImpl) ListPeriodOverviews(ctx context.Context, companyID string) ([]payroll.PeriodOverview, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []payroll.PeriodOverview
	for _, p := range r.store.st.periods {
		if p.CompanyID != companyID {
			continue
		}
		ov := payroll.PeriodOverview{
			Period:       p,
			TotalGross:   decimal.Zero,
			TotalTDS:     decimal.Zero,
			TotalAdvance: decimal.Zero,
			TotalNet:     decimal.Zero,
		}
		for _, s := range r.store.st.salaries {
			if s.PeriodID != p.ID {
				continue
			}
			ov.EmployeeCount++
			if s.IsPaid {
				ov.PaidCount++
			}
			ov.TotalGross = ov.TotalGross.Add(s.GrossSalary)
			ov.TotalTDS = ov.TotalTDS.Add(s.TDSAmount)
			ov.TotalAdvance = ov.TotalAdvance.Add(s.AdvanceDeductionAmount)
			ov.TotalNet = ov.TotalNet.Add(s.NetPayable)
		}
		out = append(out, ov)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (r *payrollRepositoryImpl) UpsertSalary(ctx context.Context, salary payroll.CalculatedSalary) (payroll.CalculatedSalary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	for id, existing := range r.store.st.salaries {
		if existing.CompanyID == salary.CompanyID && existing.PeriodID == salary.PeriodID && existing.EmployeeID == salary.EmployeeID {
			salary.ID = id
			salary.CreatedAt = existing.CreatedAt
			salary.IsPaid = existing.IsPaid
			salary.PaymentDate = existing.PaymentDate
			salary.PaymentEventID = existing.PaymentEventID
			break
		}
	}
	if salary.ID == "" {
		salary.ID = r.store.nextID("sal")
		salary.CreatedAt = now
	}
	salary.UpdatedAt = now
	r.store.st.salaries[salary.ID] = salary
	return r.withEmployee(salary), nil
}

func (r *payrollRepositoryImpl) GetSalaryByID(ctx context.Context, companyID, id string) (payroll.CalculatedSalary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.st.salaries[id]
	if !ok || s.CompanyID != companyID {
		return payroll.CalculatedSalary{}, payroll.ErrSalaryNotFound
	}
	return r.withEmployee(s), nil
}

func (r *payrollRepositoryImpl) GetSalaryByEmployee(ctx context.Context, companyID, periodID, employeeID string) (payroll.CalculatedSalary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range r.store.st.salaries {
		if s.CompanyID == companyID && s.PeriodID == periodID && s.EmployeeID == employeeID {
			return r.withEmployee(s), nil
		}
	}
	return payroll.CalculatedSalary{}, payroll.ErrSalaryNotFound
}

func (r *payrollRepositoryImpl) ListSalariesByPeriod(ctx context.Context, companyID, periodID string) ([]payroll.CalculatedSalary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []payroll.CalculatedSalary
	for _, s := range r.store.st.salaries {
		if s.CompanyID == companyID && s.PeriodID == periodID {
			out = append(out, r.withEmployee(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}

func (r *payrollRepositoryImpl) ListSalariesForUpdate(ctx context.Context, companyID string, ids []string) ([]payroll.CalculatedSalary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []payroll.CalculatedSalary
	for _, id := range ids {
		if s, ok := r.store.st.salaries[id]; ok && s.CompanyID == companyID {
			out = append(out, r.withEmployee(s))
		}
	}
	return out, nil
}

func (r *payrollRepositoryImpl) SetPaymentStatus(ctx context.Context, companyID, id string, paid bool, paymentDate *time.Time, paymentEventID *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.st.salaries[id]
	if !ok || s.CompanyID != companyID {
		return payroll.ErrSalaryNotFound
	}
	s.IsPaid = paid
	s.PaymentDate = paymentDate
	s.PaymentEventID = paymentEventID
	s.UpdatedAt = r.store.now()
	r.store.st.salaries[id] = s
	return nil
}

func (r *payrollRepositoryImpl) CountPaidByPeriod(ctx context.Context, companyID, periodID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n := 0
	for _, s := range r.store.st.salaries {
		if s.CompanyID == companyID && s.PeriodID == periodID && s.IsPaid {
			n++
		}
	}
	return n, nil
}

func (r *payrollRepositoryImpl) GetPeriodTotals(ctx context.Context, companyID string, year, month int) (payroll.PeriodTotals, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	totals := payroll.PeriodTotals{TotalGross: decimal.Zero, TotalNet: decimal.Zero}
	p, ok := r.findPeriod(companyID, year, month)
	if !ok {
		return totals, nil
	}
	for _, s := range r.store.st.salaries {
		if s.PeriodID != p.ID {
			continue
		}
		totals.EmployeeCount++
		if s.IsPaid {
			totals.PaidCount++
		}
		totals.TotalGross = totals.TotalGross.Add(s.GrossSalary)
		totals.TotalNet = totals.TotalNet.Add(s.NetPayable)
	}
	return totals, nil
}
