package session

import "errors"

// Session domain errors
var (
	// State machine errors
	ErrDuplicateOpenSession = errors.New("worker already has an open session")
	ErrSessionAlreadyClosed = errors.New("session is already closed")
	ErrInvalidTimeRange     = errors.New("clock-out time must be after clock-in time")
	ErrDuplicateDayEntry    = errors.New("worker already has a session on this date")

	// General errors
	ErrSessionNotFound = errors.New("clock session not found")
	ErrWorkerInactive  = errors.New("worker is not active")
	ErrUnauthorized    = errors.New("unauthorized to access this session")
)
