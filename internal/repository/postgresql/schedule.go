package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/shiftline/timeclock-backend-go/internal/domain/schedule"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) schedule.ShiftRepository {
	return &shiftRepository{db: db}
}

// HasShiftOn implements schedule.ShiftRepository over the weekly pattern
// table: a worker has a shift on a date when a pattern row covers that
// weekday and the date falls inside the pattern's validity range.
func (r *shiftRepository) HasShiftOn(ctx context.Context, workerID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM shift_patterns
			WHERE worker_id = $1
			  AND weekday = EXTRACT(DOW FROM $2::date)
			  AND effective_from <= $2::date
			  AND (effective_to IS NULL OR effective_to >= $2::date)
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, workerID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check shift pattern: %w", err)
	}

	return exists, nil
}
