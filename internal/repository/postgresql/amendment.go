package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shiftline/timeclock-backend-go/internal/domain/amendment"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
)

type amendmentRepository struct {
	db *database.DB
}

func NewAmendmentRepository(db *database.DB) amendment.Repository {
	return &amendmentRepository{db: db}
}

// Create implements amendment.Repository.
func (r *amendmentRepository) Create(ctx context.Context, a amendment.Amendment) (amendment.Amendment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO amendments (
			id, session_id, org_id, worker_id, new_clock_in, new_clock_out, reason, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		a.ID, a.SessionID, a.OrgID, a.WorkerID,
		a.NewClockIn, a.NewClockOut, a.Reason, a.Status,
	).Scan(&a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "uq_amendments_pending") {
			return amendment.Amendment{}, amendment.ErrAmendmentPending
		}
		return amendment.Amendment{}, fmt.Errorf("failed to create amendment: %w", err)
	}

	return a, nil
}

// GetByID implements amendment.Repository.
func (r *amendmentRepository) GetByID(ctx context.Context, id string, orgID string) (amendment.Amendment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT a.id, a.session_id, a.org_id, a.worker_id,
			   a.new_clock_in, a.new_clock_out, a.reason, a.status,
			   a.approver_id, a.approver_notes, a.created_at, a.processed_at,
			   w.full_name AS worker_name
		FROM amendments a
		LEFT JOIN workers w ON w.id = a.worker_id
		WHERE a.id = $1 AND a.org_id = $2
	`

	var a amendment.Amendment
	err := q.QueryRow(ctx, query, id, orgID).Scan(
		&a.ID, &a.SessionID, &a.OrgID, &a.WorkerID,
		&a.NewClockIn, &a.NewClockOut, &a.Reason, &a.Status,
		&a.ApproverID, &a.ApproverNotes, &a.CreatedAt, &a.ProcessedAt,
		&a.WorkerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return amendment.Amendment{}, amendment.ErrAmendmentNotFound
		}
		return amendment.Amendment{}, fmt.Errorf("failed to get amendment by ID: %w", err)
	}

	return a, nil
}

// MarkProcessed implements amendment.Repository. The status = 'pending' guard
// is the critical-section check: a concurrent approve and reject cannot both
// succeed.
func (r *amendmentRepository) MarkProcessed(ctx context.Context, id string, status amendment.Status, approverID string, notes *string, processedAt time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE amendments
		SET status = $2,
			approver_id = $3,
			approver_notes = $4,
			processed_at = $5
		WHERE id = $1
		  AND status = 'pending'
	`

	tag, err := q.Exec(ctx, query, id, status, approverID, notes, processedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark amendment processed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// LatestRejectedAt implements amendment.Repository.
func (r *amendmentRepository) LatestRejectedAt(ctx context.Context, sessionID string) (*time.Time, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT processed_at
		FROM amendments
		WHERE session_id = $1
		  AND status = 'rejected'
		ORDER BY processed_at DESC
		LIMIT 1
	`

	var at *time.Time
	err := q.QueryRow(ctx, query, sessionID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest rejection: %w", err)
	}

	return at, nil
}

// ListPending implements amendment.Repository.
func (r *amendmentRepository) ListPending(ctx context.Context, orgID string, page, limit int) ([]amendment.Amendment, int64, error) {
	return r.list(ctx, "a.org_id = $1 AND a.status = 'pending'", []interface{}{orgID}, page, limit)
}

// ListByWorker implements amendment.Repository.
func (r *amendmentRepository) ListByWorker(ctx context.Context, workerID string, orgID string, page, limit int) ([]amendment.Amendment, int64, error) {
	return r.list(ctx, "a.org_id = $1 AND a.worker_id = $2", []interface{}{orgID, workerID}, page, limit)
}

func (r *amendmentRepository) list(ctx context.Context, where string, args []interface{}, page, limit int) ([]amendment.Amendment, int64, error) {
	q := GetQuerier(ctx, r.db)

	countQuery := "SELECT COUNT(*) FROM amendments a WHERE " + where
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count amendments: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`
		SELECT a.id, a.session_id, a.org_id, a.worker_id,
			   a.new_clock_in, a.new_clock_out, a.reason, a.status,
			   a.approver_id, a.approver_notes, a.created_at, a.processed_at,
			   w.full_name AS worker_name
		FROM amendments a
		LEFT JOIN workers w ON w.id = a.worker_id
		WHERE %s
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list amendments: %w", err)
	}
	defer rows.Close()

	var amendments []amendment.Amendment
	for rows.Next() {
		var a amendment.Amendment
		err := rows.Scan(
			&a.ID, &a.SessionID, &a.OrgID, &a.WorkerID,
			&a.NewClockIn, &a.NewClockOut, &a.Reason, &a.Status,
			&a.ApproverID, &a.ApproverNotes, &a.CreatedAt, &a.ProcessedAt,
			&a.WorkerName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan amendment: %w", err)
		}
		amendments = append(amendments, a)
	}

	return amendments, total, rows.Err()
}

type historyRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) amendment.HistoryRepository {
	return &historyRepository{db: db}
}

// Create implements amendment.HistoryRepository. Insert only; the table has
// no update or delete path anywhere in the codebase.
func (r *historyRepository) Create(ctx context.Context, h amendment.HistoryEntry) (amendment.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO session_history (
			id, session_id, amendment_id,
			old_clock_in, old_clock_out, old_duration_minutes,
			new_clock_in, new_clock_out, new_duration_minutes,
			changed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING changed_at
	`

	err := q.QueryRow(ctx, query,
		h.ID, h.SessionID, h.AmendmentID,
		h.OldClockIn, h.OldClockOut, h.OldDurationMins,
		h.NewClockIn, h.NewClockOut, h.NewDurationMins,
		h.ChangedBy,
	).Scan(&h.ChangedAt)
	if err != nil {
		return amendment.HistoryEntry{}, fmt.Errorf("failed to create history entry: %w", err)
	}

	return h, nil
}

// ListBySession implements amendment.HistoryRepository.
func (r *historyRepository) ListBySession(ctx context.Context, sessionID string, orgID string) ([]amendment.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT h.id, h.session_id, h.amendment_id,
			   h.old_clock_in, h.old_clock_out, h.old_duration_minutes,
			   h.new_clock_in, h.new_clock_out, h.new_duration_minutes,
			   h.changed_by, h.changed_at
		FROM session_history h
		JOIN clock_sessions s ON s.id = h.session_id
		WHERE h.session_id = $1 AND s.org_id = $2
		ORDER BY h.changed_at ASC
	`

	rows, err := q.Query(ctx, query, sessionID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	defer rows.Close()

	var entries []amendment.HistoryEntry
	for rows.Next() {
		var h amendment.HistoryEntry
		err := rows.Scan(
			&h.ID, &h.SessionID, &h.AmendmentID,
			&h.OldClockIn, &h.OldClockOut, &h.OldDurationMins,
			&h.NewClockIn, &h.NewClockOut, &h.NewDurationMins,
			&h.ChangedBy, &h.ChangedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, h)
	}

	return entries, rows.Err()
}
