package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shiftline/timeclock-backend-go/internal/domain/payroll"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.Repository {
	return &payrollRepository{db: db}
}

// ========== AGGREGATION INPUTS ==========

// ListWindowSessions implements payroll.Repository. Overtime pending or
// rejected excludes the whole session until approved.
func (r *payrollRepository) ListWindowSessions(ctx context.Context, orgID string, weekStart time.Time) ([]payroll.WindowSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT s.id, s.worker_id, w.full_name, s.job_id, j.name,
			   s.clock_in::date, s.duration_minutes
		FROM clock_sessions s
		JOIN workers w ON w.id = s.worker_id AND w.is_active = TRUE
		JOIN jobs j ON j.id = s.job_id
		WHERE s.org_id = $1
		  AND s.clock_out IS NOT NULL
		  AND s.clock_in >= $2
		  AND s.clock_in < $3
		  AND s.overtime_status NOT IN ('pending', 'rejected')
		ORDER BY s.clock_in ASC
	`

	rows, err := q.Query(ctx, query, orgID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("failed to list window sessions: %w", err)
	}
	defer rows.Close()

	var sessions []payroll.WindowSession
	for rows.Next() {
		var s payroll.WindowSession
		if err := rows.Scan(&s.SessionID, &s.WorkerID, &s.WorkerName, &s.JobID, &s.JobName, &s.Date, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan window session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// ListWindowExpenses implements payroll.Repository. Untyped expenses default
// to flat mode.
func (r *payrollRepository) ListWindowExpenses(ctx context.Context, orgID string, weekStart time.Time) ([]payroll.WindowExpense, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.id, e.worker_id, w.full_name, e.session_id,
			   t.name, COALESCE(t.mode, 'flat'), e.amount, e.date
		FROM expense_records e
		JOIN workers w ON w.id = e.worker_id AND w.is_active = TRUE
		LEFT JOIN expense_types t ON t.id = e.expense_type_id
		WHERE e.org_id = $1
		  AND e.date >= $2::date
		  AND e.date < $3::date
		ORDER BY e.date ASC
	`

	rows, err := q.Query(ctx, query, orgID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("failed to list window expenses: %w", err)
	}
	defer rows.Close()

	var expenses []payroll.WindowExpense
	for rows.Next() {
		var e payroll.WindowExpense
		if err := rows.Scan(&e.ExpenseID, &e.WorkerID, &e.WorkerName, &e.SessionID, &e.TypeName, &e.Mode, &e.Amount, &e.Date); err != nil {
			return nil, fmt.Errorf("failed to scan window expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// ========== LINE ITEMS ==========

func (r *payrollRepository) CountLineItems(ctx context.Context, orgID string, weekStart time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var count int64
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM payroll_line_items WHERE org_id = $1 AND week_start = $2::date`,
		orgID, weekStart,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count line items: %w", err)
	}

	return count, nil
}

// ReplaceLineItems implements payroll.Repository.
func (r *payrollRepository) ReplaceLineItems(ctx context.Context, orgID string, weekStart time.Time, items []payroll.LineItem) ([]payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx,
		`DELETE FROM payroll_line_items WHERE org_id = $1 AND week_start = $2::date`,
		orgID, weekStart,
	); err != nil {
		return nil, fmt.Errorf("failed to clear line items: %w", err)
	}

	query := `
		INSERT INTO payroll_line_items (
			id, org_id, week_start, worker_id, job_id, kind, description,
			quantity, unit_amount, account, tax_code, total, manually_edited
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE)
		RETURNING created_at, updated_at
	`

	out := make([]payroll.LineItem, 0, len(items))
	for _, item := range items {
		err := q.QueryRow(ctx, query,
			item.ID, orgID, weekStart, item.WorkerID, item.JobID, item.Kind,
			item.Description, item.Quantity, item.UnitAmount, item.Account,
			item.TaxCode, item.Total,
		).Scan(&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert line item: %w", err)
		}
		item.OrgID = orgID
		item.WeekStart = weekStart
		out = append(out, item)
	}

	return out, nil
}

func (r *payrollRepository) ListLineItems(ctx context.Context, orgID string, weekStart time.Time) ([]payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT i.id, i.org_id, i.week_start, i.worker_id, i.job_id, i.kind,
			   i.description, i.quantity, i.unit_amount, i.account, i.tax_code,
			   i.total, i.manually_edited, i.created_at, i.updated_at,
			   w.full_name AS worker_name, j.name AS job_name
		FROM payroll_line_items i
		LEFT JOIN workers w ON w.id = i.worker_id
		LEFT JOIN jobs j ON j.id = i.job_id
		WHERE i.org_id = $1 AND i.week_start = $2::date
		ORDER BY w.full_name, i.kind, i.description
	`

	rows, err := q.Query(ctx, query, orgID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []payroll.LineItem
	for rows.Next() {
		var item payroll.LineItem
		err := rows.Scan(
			&item.ID, &item.OrgID, &item.WeekStart, &item.WorkerID, &item.JobID, &item.Kind,
			&item.Description, &item.Quantity, &item.UnitAmount, &item.Account, &item.TaxCode,
			&item.Total, &item.ManuallyEdited, &item.CreatedAt, &item.UpdatedAt,
			&item.WorkerName, &item.JobName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *payrollRepository) GetLineItem(ctx context.Context, id string, orgID string) (payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, org_id, week_start, worker_id, job_id, kind, description,
			   quantity, unit_amount, account, tax_code, total, manually_edited,
			   created_at, updated_at
		FROM payroll_line_items
		WHERE id = $1 AND org_id = $2
	`

	var item payroll.LineItem
	err := q.QueryRow(ctx, query, id, orgID).Scan(
		&item.ID, &item.OrgID, &item.WeekStart, &item.WorkerID, &item.JobID, &item.Kind,
		&item.Description, &item.Quantity, &item.UnitAmount, &item.Account, &item.TaxCode,
		&item.Total, &item.ManuallyEdited, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.LineItem{}, payroll.ErrLineItemNotFound
		}
		return payroll.LineItem{}, fmt.Errorf("failed to get line item: %w", err)
	}

	return item, nil
}

func (r *payrollRepository) UpdateLineItem(ctx context.Context, item payroll.LineItem) (payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_line_items
		SET description = $3,
			quantity = $4,
			unit_amount = $5,
			account = $6,
			tax_code = $7,
			total = $8,
			manually_edited = TRUE,
			updated_at = NOW()
		WHERE id = $1 AND org_id = $2
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		item.ID, item.OrgID, item.Description, item.Quantity,
		item.UnitAmount, item.Account, item.TaxCode, item.Total,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.LineItem{}, payroll.ErrLineItemNotFound
		}
		return payroll.LineItem{}, fmt.Errorf("failed to update line item: %w", err)
	}
	item.ManuallyEdited = true

	return item, nil
}

func (r *payrollRepository) DeleteLineItem(ctx context.Context, id string, orgID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM payroll_line_items WHERE id = $1 AND org_id = $2`,
		id, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrLineItemNotFound
	}

	return nil
}

// ========== INVOICE NUMBERING ==========

// NextInvoiceNumber implements payroll.Repository. The row lock taken by
// UPDATE serializes concurrent exports; a rolled-back transaction releases
// the number unused, a committed one can never hand it out again.
func (r *payrollRepository) NextInvoiceNumber(ctx context.Context, orgID string, workerID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	insert := `
		INSERT INTO invoice_counters (org_id, worker_id, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (org_id, worker_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, insert, orgID, workerID); err != nil {
		return 0, fmt.Errorf("failed to ensure invoice counter: %w", err)
	}

	var number int64
	err := q.QueryRow(ctx, `
		UPDATE invoice_counters
		SET next_number = next_number + 1
		WHERE org_id = $1 AND worker_id = $2
		RETURNING next_number - 1
	`, orgID, workerID).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	return number, nil
}

// ========== EXPENSES ==========

func (r *payrollRepository) CreateExpenseType(ctx context.Context, t payroll.ExpenseType) (payroll.ExpenseType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO expense_types (id, org_id, name, unit_amount, mode, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		t.ID, t.OrgID, t.Name, t.UnitAmount, t.Mode, t.IsActive,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return payroll.ExpenseType{}, fmt.Errorf("failed to create expense type: %w", err)
	}

	return t, nil
}

func (r *payrollRepository) GetExpenseType(ctx context.Context, id string, orgID string) (payroll.ExpenseType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, org_id, name, unit_amount, mode, is_active, created_at, updated_at
		FROM expense_types
		WHERE id = $1 AND org_id = $2
	`

	var t payroll.ExpenseType
	err := q.QueryRow(ctx, query, id, orgID).Scan(
		&t.ID, &t.OrgID, &t.Name, &t.UnitAmount, &t.Mode, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ExpenseType{}, payroll.ErrExpenseTypeNotFound
		}
		return payroll.ExpenseType{}, fmt.Errorf("failed to get expense type: %w", err)
	}

	return t, nil
}

func (r *payrollRepository) ListExpenseTypes(ctx context.Context, orgID string, activeOnly bool) ([]payroll.ExpenseType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, org_id, name, unit_amount, mode, is_active, created_at, updated_at
		FROM expense_types
		WHERE org_id = $1
	`
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY name"

	rows, err := q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense types: %w", err)
	}
	defer rows.Close()

	var types []payroll.ExpenseType
	for rows.Next() {
		var t payroll.ExpenseType
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.UnitAmount, &t.Mode, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense type: %w", err)
		}
		types = append(types, t)
	}

	return types, rows.Err()
}

func (r *payrollRepository) CreateExpenseRecord(ctx context.Context, e payroll.ExpenseRecord) (payroll.ExpenseRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO expense_records (id, org_id, worker_id, amount, expense_type_id, session_id, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		e.ID, e.OrgID, e.WorkerID, e.Amount, e.ExpenseTypeID, e.SessionID, e.Date,
	).Scan(&e.CreatedAt)
	if err != nil {
		return payroll.ExpenseRecord{}, fmt.Errorf("failed to create expense record: %w", err)
	}

	return e, nil
}

func (r *payrollRepository) ListExpenseRecords(ctx context.Context, orgID string, from, to time.Time) ([]payroll.ExpenseRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.id, e.org_id, e.worker_id, e.amount, e.expense_type_id, e.session_id, e.date, e.created_at,
			   t.name, t.mode, t.unit_amount, w.full_name
		FROM expense_records e
		LEFT JOIN expense_types t ON t.id = e.expense_type_id
		LEFT JOIN workers w ON w.id = e.worker_id
		WHERE e.org_id = $1
		  AND e.date >= $2::date
		  AND e.date < $3::date
		ORDER BY e.date ASC
	`

	rows, err := q.Query(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense records: %w", err)
	}
	defer rows.Close()

	var records []payroll.ExpenseRecord
	for rows.Next() {
		var e payroll.ExpenseRecord
		err := rows.Scan(
			&e.ID, &e.OrgID, &e.WorkerID, &e.Amount, &e.ExpenseTypeID, &e.SessionID, &e.Date, &e.CreatedAt,
			&e.TypeName, &e.TypeMode, &e.TypeUnitAmount, &e.WorkerName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense record: %w", err)
		}
		records = append(records, e)
	}

	return records, rows.Err()
}
