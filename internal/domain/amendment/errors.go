package amendment

import "errors"

// Amendment domain errors
var (
	ErrSessionNotClosed    = errors.New("cannot amend a session that is still open")
	ErrEmptyReason         = errors.New("amendment reason is required")
	ErrNoChangesRequested  = errors.New("amendment must request a new clock-in or clock-out")
	ErrAmendmentPending    = errors.New("session already has a pending amendment")
	ErrResubmitCooldown    = errors.New("a rejected amendment on this session is still in its cooldown period")
	ErrAlreadyProcessed    = errors.New("amendment has already been approved or rejected")
	ErrAmendmentNotFound   = errors.New("amendment not found")
	ErrUnauthorized        = errors.New("unauthorized to access this amendment")
	ErrInvalidAmendedRange = errors.New("amended clock-out must be after amended clock-in")
)
