package http

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Periods
	ListPeriods(w http.ResponseWriter, r *http.Request)
	Calculate(w http.ResponseWriter, r *http.Request)
	LockPeriod(w http.ResponseWriter, r *http.Request)
	DeletePeriod(w http.ResponseWriter, r *http.Request)
	ListSalaries(w http.ResponseWriter, r *http.Request)

	// Salaries
	MarkPaid(w http.ResponseWriter, r *http.Request)
	UpdateAdvanceDeduction(w http.ResponseWriter, r *http.Request)
	UpdateIncentive(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== PERIODS ==========

func (h *payrollHandlerImpl) ListPeriods(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.GetPeriodOverview(r.Context(), middleware.CompanyID(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req payroll.CalculateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.ForceRecalculate && !middleware.HasPermission(r, user.PermissionPayrollForceRecalculate) {
		response.Forbidden(w, "Insufficient permissions: required '"+string(user.PermissionPayrollForceRecalculate)+"'")
		return
	}

	report, err := h.payrollService.CalculateForPeriod(r.Context(), middleware.CompanyID(r), year, month, req.ForceRecalculate)
	if err != nil {
		var partial *payroll.PartialBatchFailure
		if errors.As(err, &partial) {
			response.MultiStatus(w, "Payroll calculated with failures", report)
			return
		}
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll calculated", report)
}

func (h *payrollHandlerImpl) LockPeriod(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.LockPeriod(r.Context(), middleware.CompanyID(r), year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll period locked", result)
}

func (h *payrollHandlerImpl) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.payrollService.DeletePeriod(r.Context(), middleware.CompanyID(r), year, month); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll period deleted", nil)
}

func (h *payrollHandlerImpl) ListSalaries(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.ListSalaries(r.Context(), middleware.CompanyID(r), year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== SALARIES ==========

func (h *payrollHandlerImpl) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req payroll.MarkPaidRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.MarkPaid(r.Context(), middleware.CompanyID(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdateAdvanceDeduction(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateAdvanceDeductionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.UpdateAdvanceDeductionOverride(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdateIncentive(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateIncentiveRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.UpdateIncentive(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
