package schedule

import (
	"context"
	"time"
)

// ShiftRepository answers whether a worker has a scheduled shift on a date.
// The decision engine treats this as an external source of truth; the
// postgres implementation reads a weekly pattern table but anything that can
// answer the question fits.
type ShiftRepository interface {
	HasShiftOn(ctx context.Context, workerID string, date time.Time) (bool, error)
}
