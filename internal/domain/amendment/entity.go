package amendment

import (
	"time"
)

// Status is the amendment lifecycle state. Approved and Rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Amendment is a worker-initiated request to change a closed session's times.
// It never mutates the session until approved.
type Amendment struct {
	ID            string
	SessionID     string
	OrgID         string
	WorkerID      string
	NewClockIn    *time.Time
	NewClockOut   *time.Time
	Reason        string
	Status        Status
	ApproverID    *string
	ApproverNotes *string
	CreatedAt     time.Time
	ProcessedAt   *time.Time

	// DTO
	WorkerName *string
}

// HistoryEntry is an immutable before/after snapshot of a session, written at
// the moment a change is applied. Rows are never edited or deleted.
type HistoryEntry struct {
	ID              string
	SessionID       string
	AmendmentID     *string
	OldClockIn      time.Time
	OldClockOut     *time.Time
	OldDurationMins *int
	NewClockIn      time.Time
	NewClockOut     *time.Time
	NewDurationMins *int
	ChangedBy       string
	ChangedAt       time.Time
}
