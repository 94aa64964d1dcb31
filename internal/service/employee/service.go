package employee

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
)

type EmployeeServiceImpl struct {
	employeeRepo employee.EmployeeRepository
	cacheStore   cache.Store
	invalidator  *cache.Invalidator
	cacheTTL     time.Duration
}

func NewEmployeeService(employeeRepo employee.EmployeeRepository, cacheStore cache.Store, cacheTTL time.Duration) employee.EmployeeService {
	return &EmployeeServiceImpl{
		employeeRepo: employeeRepo,
		cacheStore:   cacheStore,
		invalidator:  cache.NewInvalidator(cacheStore),
		cacheTTL:     cacheTTL,
	}
}

// ListDirectory returns the tenant's employees, optionally narrowed by
// department and active flag.
func (s *EmployeeServiceImpl) ListDirectory(ctx context.Context, companyID string, filter employee.DirectoryFilter) ([]employee.DirectoryEntry, error) {
	if err := tenant.Require(companyID); err != nil {
		return nil, err
	}

	key := cache.Key{
		TenantID: companyID,
		Resource: cache.ResourceDirectory,
		Sub:      fmt.Sprintf("%s:%t", filter.Department, filter.ActiveOnly),
	}
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.cacheTTL, func(ctx context.Context) ([]employee.DirectoryEntry, error) {
		profiles, err := s.employeeRepo.List(ctx, companyID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list employees: %w", err)
		}
		entries := make([]employee.DirectoryEntry, 0, len(profiles))
		for _, p := range profiles {
			entries = append(entries, employee.ToDirectoryEntry(p))
		}
		return entries, nil
	})
}

// SetActiveStatus activates or deactivates an employee. Inactive employees
// are left out of payroll runs and dashboards.
func (s *EmployeeServiceImpl) SetActiveStatus(ctx context.Context, companyID string, employeeID string, active bool) error {
	if err := tenant.Require(companyID); err != nil {
		return err
	}

	profile, err := s.employeeRepo.GetByID(ctx, companyID, employeeID)
	if err != nil {
		return err
	}
	if profile.IsActive == active {
		if active {
			return employee.ErrEmployeeAlreadyActive
		}
		return employee.ErrEmployeeAlreadyInactive
	}

	if err := s.employeeRepo.SetActive(ctx, companyID, employeeID, active); err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}

	if err := s.invalidator.Invalidate(ctx, companyID, cache.MutationEmployeeStatus); err != nil {
		return fmt.Errorf("failed to invalidate employee caches: %w", err)
	}

	slog.Info("Employee status changed", "company_id", companyID, "employee_id", employeeID, "active", active)
	return nil
}
