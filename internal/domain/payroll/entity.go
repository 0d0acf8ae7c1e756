package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationMode is the policy for turning an expense's unit amount into a
// payroll quantity.
type CalculationMode string

const (
	// ModeFlat adds the amount once.
	ModeFlat CalculationMode = "flat"
	// ModeHourlyMultiplied multiplies the amount by the aggregated hours of
	// the group the expense is attributed to.
	ModeHourlyMultiplied CalculationMode = "hourly_multiplied"
)

// ExpenseType defines a reusable expense policy.
type ExpenseType struct {
	ID         string
	OrgID      string
	Name       string
	UnitAmount decimal.Decimal
	Mode       CalculationMode
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExpenseRecord is one incurred expense. SessionID links it to a specific
// clock session; unlinked expenses land in the worker's unassigned bucket.
type ExpenseRecord struct {
	ID            string
	OrgID         string
	WorkerID      string
	Amount        decimal.Decimal
	ExpenseTypeID *string
	SessionID     *string
	Date          time.Time
	CreatedAt     time.Time

	// DTO, populated by joins
	TypeName       *string
	TypeMode       *CalculationMode
	TypeUnitAmount *decimal.Decimal
	WorkerName     *string
}

// LineItemKind distinguishes labour rows from expense rows.
type LineItemKind string

const (
	KindLabour  LineItemKind = "labour"
	KindExpense LineItemKind = "expense"
)

// LineItem is one exportable payroll row, persisted per org+week so a
// reviewer can hand-edit it before export without losing the edits to a
// recompute they did not ask for.
type LineItem struct {
	ID             string
	OrgID          string
	WeekStart      time.Time
	WorkerID       string
	JobID          *string
	Kind           LineItemKind
	Description    string
	Quantity       decimal.Decimal
	UnitAmount     decimal.Decimal
	Account        string
	TaxCode        string
	Total          decimal.Decimal
	ManuallyEdited bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// DTO
	WorkerName *string
	JobName    *string
}

// ExportFormat selects the CSV dialect.
type ExportFormat string

const (
	FormatLedger     ExportFormat = "ledger"
	FormatAccounting ExportFormat = "accounting"
)

// ExportFile is the rendered export: bytes plus a filename. Delivery is the
// caller's concern.
type ExportFile struct {
	Filename string
	Content  []byte
}

// WorkWindow are the aggregation inputs read from storage.

// WindowSession is a closed session eligible for aggregation.
type WindowSession struct {
	SessionID       string
	WorkerID        string
	WorkerName      string
	JobID           string
	JobName         string
	Date            time.Time
	DurationMinutes int
}

// WindowExpense is an expense record in the window with its type resolved.
type WindowExpense struct {
	ExpenseID  string
	WorkerID   string
	WorkerName string
	SessionID  *string
	TypeName   *string
	Mode       CalculationMode
	Amount     decimal.Decimal
	Date       time.Time
}
