package payroll

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/payroll"
)

// Export implements Service. It renders the persisted line items for the
// week into the requested CSV dialect. Invoice numbers come from the durable
// per-worker counter inside the export transaction: a failed render rolls
// the allocation back, a committed one is never handed out again.
func (s *PayrollServiceImpl) Export(ctx context.Context, req payroll.ExportRequest) (payroll.ExportFile, error) {
	if err := req.Validate(); err != nil {
		return payroll.ExportFile{}, err
	}

	week, err := s.parseWeekStart(req.WeekStart)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	orgID, requesterID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ExportFile{}, err
	}

	format := payroll.ExportFormat(req.Format)

	var file payroll.ExportFile
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		items, err := s.payrollRepo.ListLineItems(txCtx, orgID, week)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return payroll.ErrNoLineItems
		}

		invoices := make(map[string]string)
		for _, workerID := range distinctWorkers(items) {
			n, err := s.payrollRepo.NextInvoiceNumber(txCtx, orgID, workerID)
			if err != nil {
				return fmt.Errorf("failed to allocate invoice number: %w", err)
			}
			invoices[workerID] = formatInvoiceNumber(workerID, n)
		}

		content, err := renderCSV(format, week, items, invoices)
		if err != nil {
			return err
		}

		file = payroll.ExportFile{
			Filename: fmt.Sprintf("payroll_%s_%s.csv", format, week.Format("2006-01-02")),
			Content:  content,
		}
		return nil
	})
	if err != nil {
		return payroll.ExportFile{}, err
	}

	s.notifyExported(ctx, orgID, requesterID, week, file.Filename)

	return file, nil
}

// formatInvoiceNumber builds a per-worker invoice reference. The counter is
// per worker, so the worker prefix keeps references unique across workers.
func formatInvoiceNumber(workerID string, n int64) string {
	prefix := workerID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("INV-%s-%06d", prefix, n)
}

func renderCSV(format payroll.ExportFormat, week time.Time, items []payroll.LineItem, invoices map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch format {
	case payroll.FormatLedger:
		if err := writeLedger(w, week, items, invoices); err != nil {
			return nil, err
		}
	case payroll.FormatAccounting:
		if err := writeAccounting(w, week, items, invoices); err != nil {
			return nil, err
		}
	default:
		return nil, payroll.ErrInvalidFormat
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// writeLedger renders the generic ledger dialect: one self-describing row
// per line item.
func writeLedger(w *csv.Writer, week time.Time, items []payroll.LineItem, invoices map[string]string) error {
	header := []string{
		"invoice_number", "week_start", "worker", "job", "kind",
		"description", "quantity", "unit_amount", "total", "account", "tax_code",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	weekLabel := week.Format("2006-01-02")
	for _, item := range items {
		workerLabel := item.WorkerID
		if item.WorkerName != nil {
			workerLabel = *item.WorkerName
		}
		jobLabel := ""
		if item.JobName != nil {
			jobLabel = *item.JobName
		}
		row := []string{
			invoices[item.WorkerID],
			weekLabel,
			workerLabel,
			jobLabel,
			string(item.Kind),
			item.Description,
			item.Quantity.String(),
			item.UnitAmount.String(),
			item.Total.String(),
			item.Account,
			item.TaxCode,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// writeAccounting renders the accounting-system import dialect: invoice
// header columns repeated per row, dates in the importer's expected shape.
func writeAccounting(w *csv.Writer, week time.Time, items []payroll.LineItem, invoices map[string]string) error {
	header := []string{
		"*ContactName", "*InvoiceNumber", "*InvoiceDate", "*DueDate",
		"Description", "*Quantity", "*UnitAmount", "*AccountCode", "*TaxType", "LineAmount",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	invoiceDate := week.AddDate(0, 0, 6).Format("02/01/2006")
	dueDate := week.AddDate(0, 0, 13).Format("02/01/2006")
	for _, item := range items {
		contact := item.WorkerID
		if item.WorkerName != nil {
			contact = *item.WorkerName
		}
		row := []string{
			contact,
			invoices[item.WorkerID],
			invoiceDate,
			dueDate,
			item.Description,
			item.Quantity.String(),
			item.UnitAmount.String(),
			item.Account,
			item.TaxCode,
			item.Total.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *PayrollServiceImpl) notifyExported(ctx context.Context, orgID, requesterID string, week time.Time, filename string) {
	if s.notifier == nil || requesterID == "" {
		return
	}
	err := s.notifier.Queue(ctx, notification.CreateNotificationRequest{
		OrgID:       orgID,
		RecipientID: requesterID,
		Type:        notification.TypeExportCompleted,
		Title:       "Payroll export ready",
		Message:     fmt.Sprintf("Payroll export for week of %s has been generated.", week.Format("2006-01-02")),
		Data:        map[string]interface{}{"filename": filename},
	})
	if err != nil {
		slog.Warn("Failed to queue export notification", "week_start", week.Format("2006-01-02"), "error", err)
	}
}
