package worker

import (
	"context"
	"errors"
	"time"
)

// Worker is the minimal worker record the core needs. Identity resolution is
// an external collaborator; the core only checks existence and activity.
type Worker struct {
	ID        string
	OrgID     string
	FullName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrWorkerNotFound = errors.New("worker not found")

// Repository defines data access for workers. Aggregation filters on
// activity in SQL, so existence plus the active flag is all the core reads.
type Repository interface {
	GetByID(ctx context.Context, id string, orgID string) (Worker, error)
}
