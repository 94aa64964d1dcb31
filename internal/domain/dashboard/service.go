package dashboard

import "context"

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	// GetAttendanceDashboard returns headcount, department attendance and
	// payroll totals for a month, gathered concurrently
	GetAttendanceDashboard(ctx context.Context, companyID string, year, month int, department string) (AttendanceDashboardResponse, error)
}
