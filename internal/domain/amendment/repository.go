package amendment

import (
	"context"
	"time"
)

// Repository defines data access for amendments.
type Repository interface {
	// Create inserts a pending amendment. Returns ErrAmendmentPending when
	// the partial unique index on pending amendments rejects the insert.
	Create(ctx context.Context, a Amendment) (Amendment, error)

	// GetByID retrieves an amendment with org isolation.
	GetByID(ctx context.Context, id string, orgID string) (Amendment, error)

	// MarkProcessed conditionally moves a pending amendment to a terminal
	// status. Returns false when the amendment was no longer pending.
	MarkProcessed(ctx context.Context, id string, status Status, approverID string, notes *string, processedAt time.Time) (bool, error)

	// LatestRejectedAt returns the processed-at time of the session's most
	// recent rejected amendment, or nil when there is none.
	LatestRejectedAt(ctx context.Context, sessionID string) (*time.Time, error)

	// ListPending retrieves pending amendments for an organization.
	ListPending(ctx context.Context, orgID string, page, limit int) ([]Amendment, int64, error)

	// ListByWorker retrieves a worker's amendments, newest first.
	ListByWorker(ctx context.Context, workerID string, orgID string, page, limit int) ([]Amendment, int64, error)
}

// HistoryRepository appends session history snapshots. There is deliberately
// no update or delete.
type HistoryRepository interface {
	Create(ctx context.Context, h HistoryEntry) (HistoryEntry, error)
	ListBySession(ctx context.Context, sessionID string, orgID string) ([]HistoryEntry, error)
}
