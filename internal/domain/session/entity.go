package session

import (
	"time"
)

// Origin records how a session's times came to be.
type Origin string

const (
	OriginInteractive Origin = "interactive"
	OriginManual      Origin = "manual"
	OriginSystem      Origin = "system"
)

// OvertimeStatus tracks approval of a session's overtime portion. Sessions
// whose overtime is pending or rejected are excluded from payroll aggregation.
type OvertimeStatus string

const (
	OvertimeNone     OvertimeStatus = "none"
	OvertimePending  OvertimeStatus = "pending"
	OvertimeApproved OvertimeStatus = "approved"
	OvertimeRejected OvertimeStatus = "rejected"
)

// ClockSession is one clock-in record. A session with a nil ClockOut is Open;
// at most one session per worker may be Open at any instant.
type ClockSession struct {
	ID              string
	OrgID           string
	WorkerID        string
	JobID           string
	ClockIn         time.Time
	ClockOut        *time.Time
	DurationMinutes *int
	Origin          Origin
	OvertimeStatus  OvertimeStatus

	// Evidence references are opaque to the core.
	ClockInLatitude   *float64
	ClockInLongitude  *float64
	ClockInProofURL   *string
	ClockOutLatitude  *float64
	ClockOutLongitude *float64
	ClockOutProofURL  *string

	CreatedAt time.Time
	UpdatedAt time.Time

	// DTO
	WorkerName *string
	JobName    *string
}

// IsOpen reports whether the session has no clock-out yet.
func (s ClockSession) IsOpen() bool {
	return s.ClockOut == nil
}
