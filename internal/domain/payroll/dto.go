package payroll

import (
	"github.com/shiftline/timeclock-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// PAYROLL DTOs
// ========================================

type GenerateRequest struct {
	WeekStart string `json:"week_start"`
	// Confirm acknowledges that existing line items, including hand edits,
	// will be discarded.
	Confirm bool `json:"confirm"`
}

func (r *GenerateRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidDate(r.WeekStart); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "week_start",
			Message: "week_start must be a valid date (YYYY-MM-DD)",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ExportRequest struct {
	WeekStart string `json:"week_start"`
	Format    string `json:"format"`
}

func (r *ExportRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidDate(r.WeekStart); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "week_start",
			Message: "week_start must be a valid date (YYYY-MM-DD)",
		})
	}

	switch ExportFormat(r.Format) {
	case FormatLedger, FormatAccounting:
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "format",
			Message: "format must be ledger or accounting",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateExpenseTypeRequest struct {
	Name       string          `json:"name"`
	UnitAmount decimal.Decimal `json:"unit_amount"`
	Mode       string          `json:"mode"`
}

func (r *CreateExpenseTypeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	if r.UnitAmount.Sign() < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "unit_amount",
			Message: "unit_amount must not be negative",
		})
	}

	switch CalculationMode(r.Mode) {
	case ModeFlat, ModeHourlyMultiplied:
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "mode",
			Message: "mode must be flat or hourly_multiplied",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateExpenseRecordRequest struct {
	WorkerID      string          `json:"worker_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExpenseTypeID *string         `json:"expense_type_id,omitempty"`
	SessionID     *string         `json:"session_id,omitempty"`
	Date          string          `json:"date"`
}

func (r *CreateExpenseRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	if r.Amount.Sign() <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "amount",
			Message: "amount must be positive",
		})
	}

	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be a valid date (YYYY-MM-DD)",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LineItemResponse struct {
	ID             string          `json:"id"`
	WeekStart      string          `json:"week_start"`
	WorkerID       string          `json:"worker_id"`
	WorkerName     *string         `json:"worker_name,omitempty"`
	JobID          *string         `json:"job_id,omitempty"`
	JobName        *string         `json:"job_name,omitempty"`
	Kind           string          `json:"kind"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	Account        string          `json:"account"`
	TaxCode        string          `json:"tax_code"`
	Total          decimal.Decimal `json:"total"`
	ManuallyEdited bool            `json:"manually_edited"`
}

// NewLineItemResponse maps the entity to its transport shape.
func NewLineItemResponse(item LineItem) LineItemResponse {
	return LineItemResponse{
		ID:             item.ID,
		WeekStart:      item.WeekStart.Format("2006-01-02"),
		WorkerID:       item.WorkerID,
		WorkerName:     item.WorkerName,
		JobID:          item.JobID,
		JobName:        item.JobName,
		Kind:           string(item.Kind),
		Description:    item.Description,
		Quantity:       item.Quantity,
		UnitAmount:     item.UnitAmount,
		Account:        item.Account,
		TaxCode:        item.TaxCode,
		Total:          item.Total,
		ManuallyEdited: item.ManuallyEdited,
	}
}
