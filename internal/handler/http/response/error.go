package response

import (
	"errors"
	"net/http"

	"github.com/shiftline/timeclock-backend-go/internal/domain/amendment"
	"github.com/shiftline/timeclock-backend-go/internal/domain/payroll"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/domain/worker"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Session domain errors
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, session.ErrDuplicateOpenSession):
		Conflict(w, "Worker already has an open session")
	case errors.Is(err, session.ErrSessionAlreadyClosed):
		Conflict(w, "Session is already closed")
	case errors.Is(err, session.ErrDuplicateDayEntry):
		Conflict(w, "Worker already has a session on this date")
	case errors.Is(err, session.ErrInvalidTimeRange):
		BadRequest(w, "Clock-out must be after clock-in", nil)
	case errors.Is(err, session.ErrWorkerInactive):
		Forbidden(w, "Worker is not active")
	case errors.Is(err, session.ErrUnauthorized):
		Forbidden(w, "Not allowed to access this session")

	// Worker domain errors
	case errors.Is(err, worker.ErrWorkerNotFound):
		NotFound(w, "Worker not found")

	// Amendment domain errors
	case errors.Is(err, amendment.ErrAmendmentNotFound):
		NotFound(w, "Amendment not found")
	case errors.Is(err, amendment.ErrSessionNotClosed):
		BadRequest(w, "Session must be closed before it can be amended", nil)
	case errors.Is(err, amendment.ErrEmptyReason):
		BadRequest(w, "Amendment reason is required", nil)
	case errors.Is(err, amendment.ErrNoChangesRequested):
		BadRequest(w, "Amendment must request a new clock-in or clock-out", nil)
	case errors.Is(err, amendment.ErrInvalidAmendedRange):
		BadRequest(w, "Amended clock-out must be after amended clock-in", nil)
	case errors.Is(err, amendment.ErrAmendmentPending):
		Conflict(w, "Session already has a pending amendment")
	case errors.Is(err, amendment.ErrAlreadyProcessed):
		Conflict(w, "Amendment has already been processed")
	case errors.Is(err, amendment.ErrResubmitCooldown):
		Conflict(w, "A rejected amendment on this session is still in its cooldown period")
	case errors.Is(err, amendment.ErrUnauthorized):
		Forbidden(w, "Not allowed to access this amendment")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrLineItemNotFound):
		NotFound(w, "Line item not found")
	case errors.Is(err, payroll.ErrExpenseTypeNotFound):
		NotFound(w, "Expense type not found")
	case errors.Is(err, payroll.ErrExpenseTypeInactive):
		BadRequest(w, "Expense type is not active", nil)
	case errors.Is(err, payroll.ErrConfirmationRequired):
		Conflict(w, "Regenerating will discard manual edits; set confirm to proceed")
	case errors.Is(err, payroll.ErrNoLineItems):
		BadRequest(w, "No line items to export for this week", nil)
	case errors.Is(err, payroll.ErrWeekMisaligned):
		BadRequest(w, "Week start does not fall on the configured weekday", nil)
	case errors.Is(err, payroll.ErrInvalidFormat):
		BadRequest(w, "Unknown export format", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
