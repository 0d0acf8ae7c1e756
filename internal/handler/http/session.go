package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/handler/http/response"
	sessionService "github.com/shiftline/timeclock-backend-go/internal/service/session"
)

type SessionHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	GetMySessions(w http.ResponseWriter, r *http.Request)
	ListSessions(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	sessionService sessionService.Service
}

func NewSessionHandler(svc sessionService.Service) SessionHandler {
	return &sessionHandlerImpl{sessionService: svc}
}

// ClockIn handles POST /sessions/clock-in
func (h *sessionHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req session.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.sessionService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in", result)
}

// ClockOut handles POST /sessions/{sessionID}/clock-out
func (h *sessionHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req session.ClockOutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.SessionID = chi.URLParam(r, "sessionID")

	result, err := h.sessionService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out", result)
}

// GetMySessions handles GET /sessions/my
func (h *sessionHandlerImpl) GetMySessions(w http.ResponseWriter, r *http.Request) {
	filter := parseSessionFilter(r)

	result, total, err := h.sessionService.GetMySessions(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, listMeta(filter.Page, filter.Limit, total))
}

// ListSessions handles GET /sessions (manager only)
func (h *sessionHandlerImpl) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := parseSessionFilter(r)

	result, total, err := h.sessionService.ListSessions(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, listMeta(filter.Page, filter.Limit, total))
}

func parseSessionFilter(r *http.Request) session.Filter {
	q := r.URL.Query()

	filter := session.Filter{
		SortOrder: q.Get("sort_order"),
		OpenOnly:  q.Get("open_only") == "true",
	}
	if v := q.Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := q.Get("end_date"); v != "" {
		filter.EndDate = &v
	}
	if v := q.Get("worker_id"); v != "" {
		filter.WorkerID = &v
	}
	if v := q.Get("job_id"); v != "" {
		filter.JobID = &v
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	return filter
}

func listMeta(page, limit int, total int64) *response.Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &response.Meta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
