package autoclose

import (
	"context"
	"time"
)

// CounterRepository persists per-worker auto-close counters.
type CounterRepository interface {
	// GetForUpdate loads the worker's counter row with a row lock, creating
	// a zero row first when none exists. Must run inside a transaction.
	GetForUpdate(ctx context.Context, workerID string) (Counter, error)

	// Save writes the counter back.
	Save(ctx context.Context, c Counter) error
}

// AuditRepository persists the append-only decision trail.
type AuditRepository interface {
	// Create appends one audit record.
	Create(ctx context.Context, rec AuditRecord) (AuditRecord, error)

	// CountPerformedSince counts the worker's performed closes after the
	// given instant. Backs the rolling-window cap.
	CountPerformedSince(ctx context.Context, workerID string, since time.Time) (int, error)

	// List retrieves audit records for review, newest first.
	List(ctx context.Context, filter AuditFilter) ([]AuditRecord, int64, error)
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	WorkerID  *string
	Reason    *Reason
	Performed *bool
	StartDate *string
	EndDate   *string
	Page      int
	Limit     int
}
