package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/advance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AdvanceHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	ListByEmployee(w http.ResponseWriter, r *http.Request)
}

type advanceHandlerImpl struct {
	ledger advance.LedgerService
}

func NewAdvanceHandler(ledger advance.LedgerService) AdvanceHandler {
	return &advanceHandlerImpl{ledger: ledger}
}

func (h *advanceHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req advance.CreateAdvanceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.ledger.CreateAdvance(r.Context(), middleware.CompanyID(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Advance recorded", result)
}

func (h *advanceHandlerImpl) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.ListAdvances(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
