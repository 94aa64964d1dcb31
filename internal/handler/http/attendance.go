package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	UpsertEvent(w http.ResponseWriter, r *http.Request)
	BulkUpsert(w http.ResponseWriter, r *http.Request)
	DeleteEvent(w http.ResponseWriter, r *http.Request)
	UpsertUploadedTotals(w http.ResponseWriter, r *http.Request)
	GetSummary(w http.ResponseWriter, r *http.Request)
	GetWorkingDays(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// UpsertEvent implements AttendanceHandler.
func (h *attendanceHandlerImpl) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	var req attendance.UpsertEventRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.UpsertEvent(r.Context(), middleware.CompanyID(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance event saved", result)
}

// BulkUpsert implements AttendanceHandler.
func (h *attendanceHandlerImpl) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	var req attendance.BulkUpsertRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.BulkUpsert(r.Context(), middleware.CompanyID(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// summaries refresh in the background
	response.Accepted(w, "Attendance events saved, summaries are being recomputed", result)
}

// DeleteEvent implements AttendanceHandler.
func (h *attendanceHandlerImpl) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	date := chi.URLParam(r, "date")

	if err := h.attendanceService.DeleteEvent(r.Context(), middleware.CompanyID(r), employeeID, date); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance event deleted", nil)
}

// UpsertUploadedTotals implements AttendanceHandler.
func (h *attendanceHandlerImpl) UpsertUploadedTotals(w http.ResponseWriter, r *http.Request) {
	var req attendance.UploadTotalsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.UpsertUploadedTotals(r.Context(), middleware.CompanyID(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Uploaded totals stored", result)
}

// GetSummary implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.GetSummary(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "employeeID"), year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetWorkingDays implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetWorkingDays(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.GetWorkingDays(r.Context(), middleware.CompanyID(r), chi.URLParam(r, "employeeID"), year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
