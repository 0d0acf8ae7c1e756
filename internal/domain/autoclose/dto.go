package autoclose

import "time"

type AuditRecordResponse struct {
	ID        string  `json:"id"`
	WorkerID  string  `json:"worker_id"`
	SessionID *string `json:"session_id,omitempty"`
	ShiftDate string  `json:"shift_date"`
	Reason    string  `json:"reason"`
	Performed bool    `json:"performed"`
	DecidedBy string  `json:"decided_by"`
	Note      *string `json:"note,omitempty"`
	DecidedAt string  `json:"decided_at"`
}

// NewAuditRecordResponse maps an audit record to its transport shape.
func NewAuditRecordResponse(rec AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:        rec.ID,
		WorkerID:  rec.WorkerID,
		SessionID: rec.SessionID,
		ShiftDate: rec.ShiftDate.Format("2006-01-02"),
		Reason:    string(rec.Reason),
		Performed: rec.Performed,
		DecidedBy: rec.DecidedBy,
		Note:      rec.Note,
		DecidedAt: rec.DecidedAt.UTC().Format(time.RFC3339),
	}
}
