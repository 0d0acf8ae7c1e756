package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/timeclock-backend-go/internal/domain/amendment"
	"github.com/shiftline/timeclock-backend-go/internal/handler/http/response"
	amendmentService "github.com/shiftline/timeclock-backend-go/internal/service/amendment"
)

type AmendmentHandler interface {
	RequestAmendment(w http.ResponseWriter, r *http.Request)
	ApproveAmendment(w http.ResponseWriter, r *http.Request)
	RejectAmendment(w http.ResponseWriter, r *http.Request)
	ListPendingAmendments(w http.ResponseWriter, r *http.Request)
	GetMyAmendments(w http.ResponseWriter, r *http.Request)
	GetSessionHistory(w http.ResponseWriter, r *http.Request)
}

type amendmentHandlerImpl struct {
	amendmentService amendmentService.Service
}

func NewAmendmentHandler(svc amendmentService.Service) AmendmentHandler {
	return &amendmentHandlerImpl{amendmentService: svc}
}

// RequestAmendment handles POST /amendments
func (h *amendmentHandlerImpl) RequestAmendment(w http.ResponseWriter, r *http.Request) {
	var req amendment.RequestAmendmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.amendmentService.RequestAmendment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Amendment requested", result)
}

// ApproveAmendment handles POST /amendments/{amendmentID}/approve (manager only)
func (h *amendmentHandlerImpl) ApproveAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProcessRequest(w, r)
	if !ok {
		return
	}

	result, err := h.amendmentService.ApproveAmendment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Amendment approved", result)
}

// RejectAmendment handles POST /amendments/{amendmentID}/reject (manager only)
func (h *amendmentHandlerImpl) RejectAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProcessRequest(w, r)
	if !ok {
		return
	}

	result, err := h.amendmentService.RejectAmendment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Amendment rejected", result)
}

func decodeProcessRequest(w http.ResponseWriter, r *http.Request) (amendment.ProcessAmendmentRequest, bool) {
	var req amendment.ProcessAmendmentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return req, false
		}
	}
	req.AmendmentID = chi.URLParam(r, "amendmentID")
	return req, true
}

// ListPendingAmendments handles GET /amendments/pending (manager only)
func (h *amendmentHandlerImpl) ListPendingAmendments(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	result, total, err := h.amendmentService.ListPendingAmendments(r.Context(), page, limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, listMeta(page, limit, total))
}

// GetMyAmendments handles GET /amendments/my
func (h *amendmentHandlerImpl) GetMyAmendments(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	result, total, err := h.amendmentService.GetMyAmendments(r.Context(), page, limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, listMeta(page, limit, total))
}

// GetSessionHistory handles GET /sessions/{sessionID}/history
func (h *amendmentHandlerImpl) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	result, err := h.amendmentService.GetSessionHistory(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func parsePagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}
