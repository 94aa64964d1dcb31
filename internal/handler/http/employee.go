package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type EmployeeHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	SetStatus(w http.ResponseWriter, r *http.Request)
}

type employeeHandlerImpl struct {
	employeeService employee.EmployeeService
}

func NewEmployeeHandler(employeeService employee.EmployeeService) EmployeeHandler {
	return &employeeHandlerImpl{employeeService: employeeService}
}

// List implements EmployeeHandler.
func (h *employeeHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	var filter employee.DirectoryFilter
	filter.Department = r.URL.Query().Get("department")
	if a := r.URL.Query().Get("active_only"); a != "" {
		activeOnly, err := strconv.ParseBool(a)
		if err != nil {
			response.BadRequest(w, "active_only must be a boolean", nil)
			return
		}
		filter.ActiveOnly = activeOnly
	}

	result, err := h.employeeService.ListDirectory(r.Context(), middleware.CompanyID(r), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: int64(len(result))})
}

// SetStatus implements EmployeeHandler.
func (h *employeeHandlerImpl) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req employee.SetActiveStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.IsActive == nil {
		response.ValidationError(w, map[string]string{"is_active": "is required"})
		return
	}

	if err := h.employeeService.SetActiveStatus(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "id"), *req.IsActive); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Employee status updated", nil)
}
