package amendment

import (
	"time"

	"github.com/shiftline/timeclock-backend-go/internal/pkg/validator"
)

// ========================================
// AMENDMENT DTOs
// ========================================

type RequestAmendmentRequest struct {
	SessionID   string     `json:"session_id"`
	NewClockIn  *time.Time `json:"new_clock_in,omitempty"`
	NewClockOut *time.Time `json:"new_clock_out,omitempty"`
	Reason      string     `json:"reason"`
}

func (r *RequestAmendmentRequest) Validate() error {
	if validator.IsEmpty(r.SessionID) {
		return validator.ValidationErrors{{
			Field:   "session_id",
			Message: "session_id is required",
		}}
	}

	if validator.IsEmpty(r.Reason) {
		return ErrEmptyReason
	}

	if r.NewClockIn == nil && r.NewClockOut == nil {
		return ErrNoChangesRequested
	}

	return nil
}

type ProcessAmendmentRequest struct {
	AmendmentID   string  `json:"amendment_id"`
	ApproverNotes *string `json:"approver_notes,omitempty"`
}

func (r *ProcessAmendmentRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AmendmentID) {
		errs = append(errs, validator.ValidationError{
			Field:   "amendment_id",
			Message: "amendment_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ValidateForReject additionally requires approver notes: a rejection without
// an explanation gives the worker nothing to act on.
func (r *ProcessAmendmentRequest) ValidateForReject() error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.ApproverNotes == nil || validator.IsEmpty(*r.ApproverNotes) {
		return validator.ValidationErrors{{
			Field:   "approver_notes",
			Message: "approver_notes is required when rejecting",
		}}
	}

	return nil
}

type AmendmentResponse struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	WorkerID      string  `json:"worker_id"`
	WorkerName    *string `json:"worker_name,omitempty"`
	NewClockIn    *string `json:"new_clock_in,omitempty"`
	NewClockOut   *string `json:"new_clock_out,omitempty"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	ApproverID    *string `json:"approver_id,omitempty"`
	ApproverNotes *string `json:"approver_notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}

// NewAmendmentResponse maps the entity to its transport shape.
func NewAmendmentResponse(a Amendment) AmendmentResponse {
	resp := AmendmentResponse{
		ID:            a.ID,
		SessionID:     a.SessionID,
		WorkerID:      a.WorkerID,
		WorkerName:    a.WorkerName,
		Reason:        a.Reason,
		Status:        string(a.Status),
		ApproverID:    a.ApproverID,
		ApproverNotes: a.ApproverNotes,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.NewClockIn != nil {
		v := a.NewClockIn.UTC().Format(time.RFC3339)
		resp.NewClockIn = &v
	}
	if a.NewClockOut != nil {
		v := a.NewClockOut.UTC().Format(time.RFC3339)
		resp.NewClockOut = &v
	}
	if a.ProcessedAt != nil {
		v := a.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &v
	}
	return resp
}

type HistoryEntryResponse struct {
	ID              string  `json:"id"`
	SessionID       string  `json:"session_id"`
	AmendmentID     *string `json:"amendment_id,omitempty"`
	OldClockIn      string  `json:"old_clock_in"`
	OldClockOut     *string `json:"old_clock_out,omitempty"`
	OldDurationMins *int    `json:"old_duration_minutes,omitempty"`
	NewClockIn      string  `json:"new_clock_in"`
	NewClockOut     *string `json:"new_clock_out,omitempty"`
	NewDurationMins *int    `json:"new_duration_minutes,omitempty"`
	ChangedBy       string  `json:"changed_by"`
	ChangedAt       string  `json:"changed_at"`
}

// NewHistoryEntryResponse maps a history snapshot to its transport shape.
func NewHistoryEntryResponse(h HistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		ID:              h.ID,
		SessionID:       h.SessionID,
		AmendmentID:     h.AmendmentID,
		OldClockIn:      h.OldClockIn.UTC().Format(time.RFC3339),
		OldDurationMins: h.OldDurationMins,
		NewClockIn:      h.NewClockIn.UTC().Format(time.RFC3339),
		NewDurationMins: h.NewDurationMins,
		ChangedBy:       h.ChangedBy,
		ChangedAt:       h.ChangedAt.UTC().Format(time.RFC3339),
	}
	if h.OldClockOut != nil {
		v := h.OldClockOut.UTC().Format(time.RFC3339)
		resp.OldClockOut = &v
	}
	if h.NewClockOut != nil {
		v := h.NewClockOut.UTC().Format(time.RFC3339)
		resp.NewClockOut = &v
	}
	return resp
}
