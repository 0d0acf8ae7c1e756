package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
)

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) session.Repository {
	return &sessionRepository{db: db}
}

const sessionColumns = `
	s.id, s.org_id, s.worker_id, s.job_id,
	s.clock_in, s.clock_out, s.duration_minutes, s.origin, s.overtime_status,
	s.clock_in_latitude, s.clock_in_longitude, s.clock_in_proof_url,
	s.clock_out_latitude, s.clock_out_longitude, s.clock_out_proof_url,
	s.created_at, s.updated_at`

func scanSession(row pgx.Row) (session.ClockSession, error) {
	var s session.ClockSession
	err := row.Scan(
		&s.ID, &s.OrgID, &s.WorkerID, &s.JobID,
		&s.ClockIn, &s.ClockOut, &s.DurationMinutes, &s.Origin, &s.OvertimeStatus,
		&s.ClockInLatitude, &s.ClockInLongitude, &s.ClockInProofURL,
		&s.ClockOutLatitude, &s.ClockOutLongitude, &s.ClockOutProofURL,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create implements session.Repository.
func (r *sessionRepository) Create(ctx context.Context, newSession session.ClockSession) (session.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO clock_sessions (
			id, org_id, worker_id, job_id, clock_in, origin, overtime_status,
			clock_in_latitude, clock_in_longitude, clock_in_proof_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newSession.ID,
		newSession.OrgID,
		newSession.WorkerID,
		newSession.JobID,
		newSession.ClockIn,
		newSession.Origin,
		newSession.OvertimeStatus,
		newSession.ClockInLatitude,
		newSession.ClockInLongitude,
		newSession.ClockInProofURL,
	).Scan(&newSession.ID, &newSession.CreatedAt, &newSession.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "uq_clock_sessions_open") {
			return session.ClockSession{}, session.ErrDuplicateOpenSession
		}
		return session.ClockSession{}, fmt.Errorf("failed to create clock session: %w", err)
	}

	return newSession, nil
}

// GetByID implements session.Repository.
func (r *sessionRepository) GetByID(ctx context.Context, id string, orgID string) (session.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `,
			w.full_name AS worker_name,
			j.name AS job_name
		FROM clock_sessions s
		LEFT JOIN workers w ON w.id = s.worker_id
		LEFT JOIN jobs j ON j.id = s.job_id
		WHERE s.id = $1 AND s.org_id = $2
	`

	var s session.ClockSession
	err := q.QueryRow(ctx, query, id, orgID).Scan(
		&s.ID, &s.OrgID, &s.WorkerID, &s.JobID,
		&s.ClockIn, &s.ClockOut, &s.DurationMinutes, &s.Origin, &s.OvertimeStatus,
		&s.ClockInLatitude, &s.ClockInLongitude, &s.ClockInProofURL,
		&s.ClockOutLatitude, &s.ClockOutLongitude, &s.ClockOutProofURL,
		&s.CreatedAt, &s.UpdatedAt,
		&s.WorkerName, &s.JobName,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.ClockSession{}, session.ErrSessionNotFound
		}
		return session.ClockSession{}, fmt.Errorf("failed to get clock session by ID: %w", err)
	}

	return s, nil
}

// GetOpenByWorker implements session.Repository.
func (r *sessionRepository) GetOpenByWorker(ctx context.Context, workerID string) (session.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM clock_sessions s
		WHERE s.worker_id = $1
		  AND s.clock_out IS NULL
		ORDER BY s.clock_in DESC
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.ClockSession{}, session.ErrSessionNotFound
		}
		return session.ClockSession{}, fmt.Errorf("failed to get open session: %w", err)
	}

	return s, nil
}

// Close implements session.Repository. The WHERE clock_out IS NULL guard is
// what makes concurrent manual and automatic closes lose cleanly.
func (r *sessionRepository) Close(ctx context.Context, id string, clockOut time.Time, durationMinutes int, origin session.Origin, evidence session.CloseEvidence) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE clock_sessions
		SET clock_out = $2,
			duration_minutes = $3,
			origin = $4,
			clock_out_latitude = $5,
			clock_out_longitude = $6,
			clock_out_proof_url = $7,
			updated_at = NOW()
		WHERE id = $1
		  AND clock_out IS NULL
	`

	tag, err := q.Exec(ctx, query, id, clockOut, durationMinutes, origin,
		evidence.Latitude, evidence.Longitude, evidence.ProofURL)
	if err != nil {
		return false, fmt.Errorf("failed to close clock session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ApplyAmendedTimes implements session.Repository.
func (r *sessionRepository) ApplyAmendedTimes(ctx context.Context, id string, clockIn time.Time, clockOut time.Time, durationMinutes int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE clock_sessions
		SET clock_in = $2,
			clock_out = $3,
			duration_minutes = $4,
			updated_at = NOW()
		WHERE id = $1
		  AND clock_out IS NOT NULL
	`

	tag, err := q.Exec(ctx, query, id, clockIn, clockOut, durationMinutes)
	if err != nil {
		return fmt.Errorf("failed to apply amended times: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}

	return nil
}

// HasOtherSessionOnDate implements session.Repository.
func (r *sessionRepository) HasOtherSessionOnDate(ctx context.Context, workerID string, date time.Time, excludeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM clock_sessions
			WHERE worker_id = $1
			  AND clock_in::date = $2::date
			  AND id <> $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, workerID, date, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check sessions on date: %w", err)
	}

	return exists, nil
}

// ListOpenOlderThan implements session.Repository.
func (r *sessionRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]session.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM clock_sessions s
		WHERE s.clock_out IS NULL
		  AND s.clock_in < $1
		ORDER BY s.clock_in ASC
	`

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.ClockSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ListMySessions implements session.Repository.
func (r *sessionRepository) ListMySessions(ctx context.Context, workerID string, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	worker := workerID
	filter.WorkerID = &worker
	return r.List(ctx, filter, orgID)
}

// List implements session.Repository.
func (r *sessionRepository) List(ctx context.Context, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "s.org_id = $1"
	args := []interface{}{orgID}
	argIdx := 2

	if filter.WorkerID != nil && *filter.WorkerID != "" {
		baseWhere += fmt.Sprintf(" AND s.worker_id = $%d", argIdx)
		args = append(args, *filter.WorkerID)
		argIdx++
	}
	if filter.JobID != nil && *filter.JobID != "" {
		baseWhere += fmt.Sprintf(" AND s.job_id = $%d", argIdx)
		args = append(args, *filter.JobID)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND s.clock_in::date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND s.clock_in::date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.OpenOnly {
		baseWhere += " AND s.clock_out IS NULL"
	}

	// Count total
	countQuery := "SELECT COUNT(*) FROM clock_sessions s WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clock sessions: %w", err)
	}

	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	selectQuery := fmt.Sprintf(`
		SELECT `+sessionColumns+`,
			w.full_name AS worker_name,
			j.name AS job_name
		FROM clock_sessions s
		LEFT JOIN workers w ON w.id = s.worker_id
		LEFT JOIN jobs j ON j.id = s.job_id
		WHERE %s
		ORDER BY s.clock_in %s
		LIMIT $%d OFFSET $%d
	`, baseWhere, sortOrder, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clock sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.ClockSession
	for rows.Next() {
		var s session.ClockSession
		err := rows.Scan(
			&s.ID, &s.OrgID, &s.WorkerID, &s.JobID,
			&s.ClockIn, &s.ClockOut, &s.DurationMinutes, &s.Origin, &s.OvertimeStatus,
			&s.ClockInLatitude, &s.ClockInLongitude, &s.ClockInProofURL,
			&s.ClockOutLatitude, &s.ClockOutLongitude, &s.ClockOutProofURL,
			&s.CreatedAt, &s.UpdatedAt,
			&s.WorkerName, &s.JobName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan clock session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, total, rows.Err()
}
