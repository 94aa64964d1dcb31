package user

type Permission string

const (
	// Attendance
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceWrite   Permission = "attendance.write"

	// Advances
	PermissionAdvanceView   Permission = "advance.view"
	PermissionAdvanceManage Permission = "advance.manage"

	// Payroll
	PermissionPayrollView             Permission = "payroll.view"
	PermissionPayrollCalculate        Permission = "payroll.calculate"
	PermissionPayrollForceRecalculate Permission = "payroll.force_recalculate"
	PermissionPayrollPay              Permission = "payroll.pay"
	PermissionPayrollLock             Permission = "payroll.lock"

	// Employees
	PermissionEmployeeViewAll Permission = "employee.view_all"
	PermissionEmployeeManage  Permission = "employee.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionAttendanceViewAll,
		PermissionAttendanceWrite,
		PermissionAdvanceView,
		PermissionAdvanceManage,
		PermissionPayrollView,
		PermissionPayrollCalculate,
		PermissionPayrollForceRecalculate,
		PermissionPayrollPay,
		PermissionPayrollLock,
		PermissionEmployeeViewAll,
		PermissionEmployeeManage,
	},
	RoleManager: {
		// Manager runs payroll but cannot reopen locked periods
		PermissionAttendanceViewAll,
		PermissionAttendanceWrite,
		PermissionAdvanceView,
		PermissionAdvanceManage,
		PermissionPayrollView,
		PermissionPayrollCalculate,
		PermissionPayrollPay,
		PermissionPayrollLock,
		PermissionEmployeeViewAll,
	},
	RoleEmployee: {
		// Employees only read their own data through other services
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
