package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/dashboard"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
)

type DashboardHandler interface {
	GetAttendance(w http.ResponseWriter, r *http.Request)
}

type dashboardHandlerImpl struct {
	dashboardService dashboard.DashboardService
}

func NewDashboardHandler(dashboardService dashboard.DashboardService) DashboardHandler {
	return &dashboardHandlerImpl{dashboardService: dashboardService}
}

// GetAttendance handles GET /dashboard/attendance?year=&month=&department=
func (h *dashboardHandlerImpl) GetAttendance(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.dashboardService.GetAttendanceDashboard(r.Context(), middleware.CompanyID(r), year, month, r.URL.Query().Get("department"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
