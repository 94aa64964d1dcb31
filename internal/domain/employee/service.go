package employee

import "context"

type EmployeeService interface {
	ListDirectory(ctx context.Context, companyID string, filter DirectoryFilter) ([]DirectoryEntry, error)
	SetActiveStatus(ctx context.Context, companyID string, employeeID string, active bool) error
}
