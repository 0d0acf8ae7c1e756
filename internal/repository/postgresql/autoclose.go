package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/shiftline/timeclock-backend-go/internal/domain/autoclose"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
)

type counterRepository struct {
	db *database.DB
}

func NewCounterRepository(db *database.DB) autoclose.CounterRepository {
	return &counterRepository{db: db}
}

// GetForUpdate implements autoclose.CounterRepository. The insert-then-lock
// sequence means every worker has exactly one counter row once the engine has
// looked at them.
func (r *counterRepository) GetForUpdate(ctx context.Context, workerID string) (autoclose.Counter, error) {
	q := GetQuerier(ctx, r.db)

	insert := `
		INSERT INTO autoclose_counters (worker_id, month_count, month_anchor, consecutive_days)
		VALUES ($1, 0, date_trunc('month', NOW()), 0)
		ON CONFLICT (worker_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, insert, workerID); err != nil {
		return autoclose.Counter{}, fmt.Errorf("failed to ensure counter row: %w", err)
	}

	query := `
		SELECT worker_id, month_count, month_anchor, consecutive_days,
			   last_auto_at, last_auto_workday, updated_at
		FROM autoclose_counters
		WHERE worker_id = $1
		FOR UPDATE
	`

	var c autoclose.Counter
	err := q.QueryRow(ctx, query, workerID).Scan(
		&c.WorkerID, &c.MonthCount, &c.MonthAnchor, &c.ConsecutiveDays,
		&c.LastAutoAt, &c.LastAutoWorkday, &c.UpdatedAt,
	)
	if err != nil {
		return autoclose.Counter{}, fmt.Errorf("failed to lock counter row: %w", err)
	}

	return c, nil
}

// Save implements autoclose.CounterRepository.
func (r *counterRepository) Save(ctx context.Context, c autoclose.Counter) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE autoclose_counters
		SET month_count = $2,
			month_anchor = $3,
			consecutive_days = $4,
			last_auto_at = $5,
			last_auto_workday = $6,
			updated_at = NOW()
		WHERE worker_id = $1
	`

	tag, err := q.Exec(ctx, query,
		c.WorkerID, c.MonthCount, c.MonthAnchor, c.ConsecutiveDays,
		c.LastAutoAt, c.LastAutoWorkday,
	)
	if err != nil {
		return fmt.Errorf("failed to save counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("counter row for worker %s disappeared", c.WorkerID)
	}

	return nil
}

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) autoclose.AuditRepository {
	return &auditRepository{db: db}
}

// Create implements autoclose.AuditRepository.
func (r *auditRepository) Create(ctx context.Context, rec autoclose.AuditRecord) (autoclose.AuditRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO decision_audit_records (
			id, worker_id, session_id, shift_date, reason, performed, decided_by, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING decided_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID, rec.WorkerID, rec.SessionID, rec.ShiftDate,
		rec.Reason, rec.Performed, rec.DecidedBy, rec.Note,
	).Scan(&rec.DecidedAt)
	if err != nil {
		return autoclose.AuditRecord{}, fmt.Errorf("failed to create audit record: %w", err)
	}

	return rec, nil
}

// CountPerformedSince implements autoclose.AuditRepository.
func (r *auditRepository) CountPerformedSince(ctx context.Context, workerID string, since time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM decision_audit_records
		WHERE worker_id = $1
		  AND performed = TRUE
		  AND decided_at > $2
	`

	var count int
	if err := q.QueryRow(ctx, query, workerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count performed closes: %w", err)
	}

	return count, nil
}

// List implements autoclose.AuditRepository.
func (r *auditRepository) List(ctx context.Context, filter autoclose.AuditFilter) ([]autoclose.AuditRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.WorkerID != nil && *filter.WorkerID != "" {
		baseWhere += fmt.Sprintf(" AND worker_id = $%d", argIdx)
		args = append(args, *filter.WorkerID)
		argIdx++
	}
	if filter.Reason != nil {
		baseWhere += fmt.Sprintf(" AND reason = $%d", argIdx)
		args = append(args, string(*filter.Reason))
		argIdx++
	}
	if filter.Performed != nil {
		baseWhere += fmt.Sprintf(" AND performed = $%d", argIdx)
		args = append(args, *filter.Performed)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM decision_audit_records WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, worker_id, session_id, shift_date, reason, performed, decided_by, note, decided_at
		FROM decision_audit_records
		WHERE %s
		ORDER BY decided_at DESC
		LIMIT $%d OFFSET $%d
	`, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []autoclose.AuditRecord
	for rows.Next() {
		var rec autoclose.AuditRecord
		err := rows.Scan(
			&rec.ID, &rec.WorkerID, &rec.SessionID, &rec.ShiftDate,
			&rec.Reason, &rec.Performed, &rec.DecidedBy, &rec.Note, &rec.DecidedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}

	return records, total, rows.Err()
}
