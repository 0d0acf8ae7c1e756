package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/timeclock-backend-go/internal/domain/payroll"
	"github.com/shiftline/timeclock-backend-go/internal/handler/http/response"
	payrollService "github.com/shiftline/timeclock-backend-go/internal/service/payroll"
)

type PayrollHandler interface {
	// Line items
	GenerateLineItems(w http.ResponseWriter, r *http.Request)
	ListLineItems(w http.ResponseWriter, r *http.Request)
	UpdateLineItem(w http.ResponseWriter, r *http.Request)
	DeleteLineItem(w http.ResponseWriter, r *http.Request)

	// Export
	Export(w http.ResponseWriter, r *http.Request)

	// Expenses
	CreateExpenseType(w http.ResponseWriter, r *http.Request)
	ListExpenseTypes(w http.ResponseWriter, r *http.Request)
	CreateExpenseRecord(w http.ResponseWriter, r *http.Request)
	ListExpenseRecords(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payrollService.Service
}

func NewPayrollHandler(svc payrollService.Service) PayrollHandler {
	return &payrollHandlerImpl{payrollService: svc}
}

// ========== LINE ITEMS ==========

// GenerateLineItems handles POST /payroll/line-items/generate (manager only)
func (h *payrollHandlerImpl) GenerateLineItems(w http.ResponseWriter, r *http.Request) {
	var req payroll.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.GenerateLineItems(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Line items generated", result)
}

// ListLineItems handles GET /payroll/line-items?week_start=YYYY-MM-DD (manager only)
func (h *payrollHandlerImpl) ListLineItems(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListLineItems(r.Context(), r.URL.Query().Get("week_start"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateLineItem handles PUT /payroll/line-items/{lineItemID} (manager only)
func (h *payrollHandlerImpl) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	var update payroll.LineItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.UpdateLineItem(r.Context(), chi.URLParam(r, "lineItemID"), update)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Line item updated", result)
}

// DeleteLineItem handles DELETE /payroll/line-items/{lineItemID} (manager only)
func (h *payrollHandlerImpl) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	if err := h.payrollService.DeleteLineItem(r.Context(), chi.URLParam(r, "lineItemID")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Line item deleted", nil)
}

// ========== EXPORT ==========

// Export handles POST /payroll/export (manager only). The response body is
// the CSV file itself, not the JSON envelope.
func (h *payrollHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	var req payroll.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	file, err := h.payrollService.Export(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

// ========== EXPENSES ==========

// CreateExpenseType handles POST /payroll/expense-types (manager only)
func (h *payrollHandlerImpl) CreateExpenseType(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateExpenseTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateExpenseType(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Expense type created", result)
}

// ListExpenseTypes handles GET /payroll/expense-types (manager only)
func (h *payrollHandlerImpl) ListExpenseTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	result, err := h.payrollService.ListExpenseTypes(r.Context(), activeOnly)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateExpenseRecord handles POST /payroll/expenses (manager only)
func (h *payrollHandlerImpl) CreateExpenseRecord(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateExpenseRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateExpenseRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Expense record created", result)
}

// ListExpenseRecords handles GET /payroll/expenses?from=...&to=... (manager only)
func (h *payrollHandlerImpl) ListExpenseRecords(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListExpenseRecords(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
