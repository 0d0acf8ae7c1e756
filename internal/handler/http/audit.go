package http

import (
	"net/http"
	"strconv"

	"github.com/shiftline/timeclock-backend-go/internal/domain/autoclose"
	"github.com/shiftline/timeclock-backend-go/internal/handler/http/response"
	autocloseService "github.com/shiftline/timeclock-backend-go/internal/service/autoclose"
)

type AuditHandler interface {
	ListAuditRecords(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	engine *autocloseService.Engine
}

func NewAuditHandler(engine *autocloseService.Engine) AuditHandler {
	return &auditHandlerImpl{engine: engine}
}

// ListAuditRecords handles GET /autoclose/audits (manager only)
func (h *auditHandlerImpl) ListAuditRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter autoclose.AuditFilter
	if v := q.Get("worker_id"); v != "" {
		filter.WorkerID = &v
	}
	if v := q.Get("reason"); v != "" {
		reason := autoclose.Reason(v)
		if !reason.Valid() {
			response.BadRequest(w, "Unknown reason code", nil)
			return
		}
		filter.Reason = &reason
	}
	if v := q.Get("performed"); v != "" {
		performed := v == "true"
		filter.Performed = &performed
	}
	if v := q.Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := q.Get("end_date"); v != "" {
		filter.EndDate = &v
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	result, total, err := h.engine.ListAuditRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, listMeta(filter.Page, filter.Limit, total))
}
