package session

import (
	"time"

	"github.com/shiftline/timeclock-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// SESSION DTOs
// ========================================

type ClockInRequest struct {
	JobID     string   `json:"job_id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ProofURL  *string  `json:"proof_url,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.JobID) {
		errs = append(errs, validator.ValidationError{
			Field:   "job_id",
			Message: "job_id is required",
		})
	}

	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockOutRequest struct {
	SessionID string `json:"session_id"`
	// At defaults to now when omitted.
	At *time.Time `json:"at,omitempty"`
	// OverrideHours turns the clock-out into a manual entry: the supplied
	// duration wins over the live timestamps.
	OverrideHours *decimal.Decimal `json:"override_hours,omitempty"`
	Latitude      *float64         `json:"latitude,omitempty"`
	Longitude     *float64         `json:"longitude,omitempty"`
	ProofURL      *string          `json:"proof_url,omitempty"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs = append(errs, validator.ValidationError{
			Field:   "session_id",
			Message: "session_id is required",
		})
	}

	if r.OverrideHours != nil && r.OverrideHours.Sign() <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "override_hours",
			Message: "override_hours must be positive",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SessionResponse struct {
	ID              string   `json:"id"`
	WorkerID        string   `json:"worker_id"`
	WorkerName      *string  `json:"worker_name,omitempty"`
	JobID           string   `json:"job_id"`
	JobName         *string  `json:"job_name,omitempty"`
	ClockIn         string   `json:"clock_in"`
	ClockOut        *string  `json:"clock_out,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Origin          string   `json:"origin"`
	OvertimeStatus  string   `json:"overtime_status"`
	Open            bool     `json:"open"`
	ClockInProofURL *string  `json:"clock_in_proof_url,omitempty"`
	ClockInLat      *float64 `json:"clock_in_latitude,omitempty"`
	ClockInLng      *float64 `json:"clock_in_longitude,omitempty"`
}

// NewSessionResponse maps the entity to its transport shape.
func NewSessionResponse(s ClockSession) SessionResponse {
	resp := SessionResponse{
		ID:              s.ID,
		WorkerID:        s.WorkerID,
		WorkerName:      s.WorkerName,
		JobID:           s.JobID,
		JobName:         s.JobName,
		ClockIn:         s.ClockIn.UTC().Format(time.RFC3339),
		DurationMinutes: s.DurationMinutes,
		Origin:          string(s.Origin),
		OvertimeStatus:  string(s.OvertimeStatus),
		Open:            s.IsOpen(),
		ClockInProofURL: s.ClockInProofURL,
		ClockInLat:      s.ClockInLatitude,
		ClockInLng:      s.ClockInLongitude,
	}
	if s.ClockOut != nil {
		out := s.ClockOut.UTC().Format(time.RFC3339)
		resp.ClockOut = &out
	}
	return resp
}
