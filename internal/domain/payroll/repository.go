package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines data access for payroll aggregation, line items and
// export numbering.
type Repository interface {
	// ListWindowSessions returns closed sessions of active workers in
	// [weekStart, weekStart+7d) whose overtime is not pending or rejected.
	ListWindowSessions(ctx context.Context, orgID string, weekStart time.Time) ([]WindowSession, error)

	// ListWindowExpenses returns expense records in the window with their
	// type's calculation mode resolved (flat when untyped).
	ListWindowExpenses(ctx context.Context, orgID string, weekStart time.Time) ([]WindowExpense, error)

	// CountLineItems counts persisted line items for org+week.
	CountLineItems(ctx context.Context, orgID string, weekStart time.Time) (int64, error)

	// ReplaceLineItems deletes the week's line items and inserts the new set
	// in one statement sequence. Callers wrap it in a transaction.
	ReplaceLineItems(ctx context.Context, orgID string, weekStart time.Time, items []LineItem) ([]LineItem, error)

	// ListLineItems returns the persisted line items for org+week.
	ListLineItems(ctx context.Context, orgID string, weekStart time.Time) ([]LineItem, error)

	// GetLineItem retrieves one line item with org isolation.
	GetLineItem(ctx context.Context, id string, orgID string) (LineItem, error)

	// UpdateLineItem applies a hand edit and marks the row manually edited.
	UpdateLineItem(ctx context.Context, item LineItem) (LineItem, error)

	// DeleteLineItem removes one line item.
	DeleteLineItem(ctx context.Context, id string, orgID string) error

	// NextInvoiceNumber serializes the per-worker invoice counter and
	// returns the next number. Must run inside the export transaction so a
	// committed allocation is never handed out twice.
	NextInvoiceNumber(ctx context.Context, orgID string, workerID string) (int64, error)

	// ========== EXPENSES ==========

	CreateExpenseType(ctx context.Context, t ExpenseType) (ExpenseType, error)
	GetExpenseType(ctx context.Context, id string, orgID string) (ExpenseType, error)
	ListExpenseTypes(ctx context.Context, orgID string, activeOnly bool) ([]ExpenseType, error)
	CreateExpenseRecord(ctx context.Context, e ExpenseRecord) (ExpenseRecord, error)
	ListExpenseRecords(ctx context.Context, orgID string, from, to time.Time) ([]ExpenseRecord, error)
}

// LineItemUpdate carries the hand-editable fields.
type LineItemUpdate struct {
	Description *string          `json:"description,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitAmount  *decimal.Decimal `json:"unit_amount,omitempty"`
	Account     *string          `json:"account,omitempty"`
	TaxCode     *string          `json:"tax_code,omitempty"`
}
