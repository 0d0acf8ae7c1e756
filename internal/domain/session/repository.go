package session

import (
	"context"
	"time"
)

// Repository defines data access for clock sessions. All methods take the tx
// from the context when one is present, so the state machine can wrap
// check-then-act sequences in a single transaction.
type Repository interface {
	// Create inserts a new session. Returns ErrDuplicateOpenSession when the
	// partial unique index on open sessions rejects the insert.
	Create(ctx context.Context, s ClockSession) (ClockSession, error)

	// GetByID retrieves a session with org isolation.
	GetByID(ctx context.Context, id string, orgID string) (ClockSession, error)

	// GetOpenByWorker returns the worker's open session, or ErrSessionNotFound.
	GetOpenByWorker(ctx context.Context, workerID string) (ClockSession, error)

	// Close sets clock-out, duration and origin on a still-open session.
	// Returns false when the session was no longer open (lost race).
	Close(ctx context.Context, id string, clockOut time.Time, durationMinutes int, origin Origin, evidence CloseEvidence) (bool, error)

	// ApplyAmendedTimes overwrites a closed session's times and duration.
	ApplyAmendedTimes(ctx context.Context, id string, clockIn time.Time, clockOut time.Time, durationMinutes int) error

	// HasOtherSessionOnDate reports whether the worker has any session other
	// than excludeID starting on the given calendar date.
	HasOtherSessionOnDate(ctx context.Context, workerID string, date time.Time, excludeID string) (bool, error)

	// ListOpenOlderThan returns open sessions whose clock-in is before cutoff.
	// Feed for the auto clock-out sweep.
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]ClockSession, error)

	// ListMySessions retrieves sessions for one worker.
	ListMySessions(ctx context.Context, workerID string, filter Filter, orgID string) ([]ClockSession, int64, error)

	// List retrieves sessions across the organization.
	List(ctx context.Context, filter Filter, orgID string) ([]ClockSession, int64, error)
}

// CloseEvidence carries the optional clock-out evidence references.
type CloseEvidence struct {
	Latitude  *float64
	Longitude *float64
	ProofURL  *string
}

// Filter narrows session listings.
type Filter struct {
	StartDate *string
	EndDate   *string
	WorkerID  *string
	JobID     *string
	OpenOnly  bool
	SortOrder string
	Page      int
	Limit     int
}
