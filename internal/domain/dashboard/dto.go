package dashboard

import "github.com/shopspring/decimal"

// AttendanceDashboardResponse is the month view of attendance and payroll,
// optionally narrowed to one department.
type AttendanceDashboardResponse struct {
	Year        int                     `json:"year"`
	Month       int                     `json:"month"`
	Department  string                  `json:"department,omitempty"`
	Headcount   HeadcountResponse       `json:"headcount"`
	Departments []DepartmentRowResponse `json:"departments"`
	Payroll     PayrollTotalsResponse   `json:"payroll"`
}

type HeadcountResponse struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type DepartmentRowResponse struct {
	Department  string          `json:"department"`
	Employees   int             `json:"employees"`
	PresentDays decimal.Decimal `json:"present_days"`
	OTHours     decimal.Decimal `json:"ot_hours"`
	LateMinutes int             `json:"late_minutes"`
}

type PayrollTotalsResponse struct {
	Calculated int             `json:"calculated"`
	Paid       int             `json:"paid"`
	TotalGross decimal.Decimal `json:"total_gross"`
	TotalNet   decimal.Decimal `json:"total_net_payable"`
}
