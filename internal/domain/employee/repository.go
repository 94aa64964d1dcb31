package employee

import "context"

// EmployeeRepository reads employee master data. Every method is scoped by
// companyID to prevent cross-tenant access.
type EmployeeRepository interface {
	GetByID(ctx context.Context, companyID string, id string) (Profile, error)
	GetActiveByCompanyID(ctx context.Context, companyID string) ([]Profile, error)
	List(ctx context.Context, companyID string, filter DirectoryFilter) ([]Profile, error)
	CountByDepartment(ctx context.Context, companyID string, department string) (active int, total int, err error)
	SetActive(ctx context.Context, companyID string, id string, active bool) error
}
