package payroll

import "errors"

// Payroll domain errors
var (
	ErrConfirmationRequired = errors.New("regenerating will discard manual edits; confirmation required")
	ErrNoLineItems          = errors.New("no line items to export for this week")
	ErrLineItemNotFound     = errors.New("payroll line item not found")
	ErrExpenseTypeNotFound  = errors.New("expense type not found")
	ErrExpenseTypeInactive  = errors.New("expense type is not active")
	ErrWeekMisaligned       = errors.New("week start does not fall on the configured weekday")
	ErrInvalidFormat        = errors.New("unknown export format")
)
