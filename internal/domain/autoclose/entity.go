package autoclose

import (
	"time"
)

// Reason is the closed set of auto clock-out decision outcomes. Every
// evaluation resolves to exactly one of these; OK is the only one that
// performs a close.
type Reason string

const (
	ReasonOK                Reason = "OK"
	ReasonAlreadyClockedOut Reason = "ALREADY_CLOCKED_OUT"
	ReasonNoClockIn         Reason = "NO_CLOCK_IN"
	ReasonNoShift           Reason = "NO_SHIFT"
	ReasonCapMonth          Reason = "CAP_MONTH"
	ReasonCapRolling14      Reason = "CAP_ROLLING14"
	ReasonConsecutiveBlock  Reason = "CONSECUTIVE_BLOCK"
	ReasonUnknown           Reason = "UNKNOWN"
)

// AllReasons returns every defined reason code.
func AllReasons() []Reason {
	return []Reason{
		ReasonOK,
		ReasonAlreadyClockedOut,
		ReasonNoClockIn,
		ReasonNoShift,
		ReasonCapMonth,
		ReasonCapRolling14,
		ReasonConsecutiveBlock,
		ReasonUnknown,
	}
}

// Valid reports whether r is a defined reason code.
func (r Reason) Valid() bool {
	switch r {
	case ReasonOK, ReasonAlreadyClockedOut, ReasonNoClockIn, ReasonNoShift,
		ReasonCapMonth, ReasonCapRolling14, ReasonConsecutiveBlock, ReasonUnknown:
		return true
	}
	return false
}

// Counter is the per-worker automatic-close bookkeeping row. Only the
// decision engine writes it, always inside the closing transaction. The
// trailing-14-day count is derived from the audit trail instead of being
// stored, since aged-out closes cannot be subtracted from a plain counter.
type Counter struct {
	WorkerID string
	// MonthCount is the number of automatic closes since MonthAnchor.
	MonthCount  int
	MonthAnchor time.Time
	// ConsecutiveDays is the current run of consecutive calendar days that
	// each ended in an automatic close.
	ConsecutiveDays int
	LastAutoAt      *time.Time
	// LastAutoWorkday is the calendar date (midnight UTC) of the most
	// recently auto-closed shift.
	LastAutoWorkday *time.Time
	UpdatedAt       time.Time
}

// AuditRecord is one row of the append-only decision trail. A record is
// written for every evaluated session, acted on or not; skip reasons are the
// signal that tells a schedule problem apart from a bug.
type AuditRecord struct {
	ID        string
	WorkerID  string
	SessionID *string
	ShiftDate time.Time
	Reason    Reason
	Performed bool
	DecidedBy string
	Note      *string
	DecidedAt time.Time
}

// DeciderSystem identifies the engine in audit records.
const DeciderSystem = "system"

// Decision is the outcome of evaluating one stale session.
type Decision struct {
	WorkerID  string
	SessionID string
	Reason    Reason
	Performed bool
	Note      string
}
