package payroll

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/config"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/payroll"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

// Service is the weekly payroll aggregator. Line items are persisted per
// org+week so hand edits survive until the caller explicitly regenerates;
// export renders what is persisted, never a fresh recomputation.
type Service interface {
	GenerateLineItems(ctx context.Context, req payroll.GenerateRequest) ([]payroll.LineItemResponse, error)
	ListLineItems(ctx context.Context, weekStart string) ([]payroll.LineItemResponse, error)
	UpdateLineItem(ctx context.Context, id string, update payroll.LineItemUpdate) (payroll.LineItemResponse, error)
	DeleteLineItem(ctx context.Context, id string) error
	Export(ctx context.Context, req payroll.ExportRequest) (payroll.ExportFile, error)

	CreateExpenseType(ctx context.Context, req payroll.CreateExpenseTypeRequest) (payroll.ExpenseType, error)
	ListExpenseTypes(ctx context.Context, activeOnly bool) ([]payroll.ExpenseType, error)
	CreateExpenseRecord(ctx context.Context, req payroll.CreateExpenseRecordRequest) (payroll.ExpenseRecord, error)
	ListExpenseRecords(ctx context.Context, from, to string) ([]payroll.ExpenseRecord, error)
}

type PayrollServiceImpl struct {
	db          database.TxManager
	payrollRepo payroll.Repository
	notifier    notification.Service
	cfg         config.PayrollConfig
}

func NewPayrollService(
	db database.TxManager,
	payrollRepo payroll.Repository,
	notifier notification.Service,
	cfg config.PayrollConfig,
) Service {
	return &PayrollServiceImpl{
		db:          db,
		payrollRepo: payrollRepo,
		notifier:    notifier,
		cfg:         cfg,
	}
}

func getClaimsFromContext(ctx context.Context) (orgID, workerID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	orgID, ok := claims["org_id"].(string)
	if !ok || orgID == "" {
		return "", "", fmt.Errorf("org_id claim is missing or invalid")
	}

	workerID, _ = claims["worker_id"].(string)

	return orgID, workerID, nil
}

func (s *PayrollServiceImpl) parseWeekStart(raw string) (time.Time, error) {
	week, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse week start: %w", err)
	}
	if week.Weekday() != s.cfg.WeekStartDay {
		return time.Time{}, payroll.ErrWeekMisaligned
	}
	return week, nil
}

// GenerateLineItems implements Service. Recomputing replaces the week's
// persisted items wholesale, so existing items demand explicit confirmation.
func (s *PayrollServiceImpl) GenerateLineItems(ctx context.Context, req payroll.GenerateRequest) ([]payroll.LineItemResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	week, err := s.parseWeekStart(req.WeekStart)
	if err != nil {
		return nil, err
	}

	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var persisted []payroll.LineItem
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.payrollRepo.CountLineItems(txCtx, orgID, week)
		if err != nil {
			return err
		}
		if count > 0 && !req.Confirm {
			return payroll.ErrConfirmationRequired
		}

		sessions, err := s.payrollRepo.ListWindowSessions(txCtx, orgID, week)
		if err != nil {
			return err
		}
		expenses, err := s.payrollRepo.ListWindowExpenses(txCtx, orgID, week)
		if err != nil {
			return err
		}

		items := s.buildLineItems(orgID, week, sessions, expenses)

		persisted, err = s.payrollRepo.ReplaceLineItems(txCtx, orgID, week, items)
		return err
	})
	if err != nil {
		return nil, err
	}

	return toResponses(persisted), nil
}

type labourGroup struct {
	workerID   string
	workerName string
	jobID      string
	jobName    string
	minutes    int
}

// buildLineItems runs the aggregation over the window snapshot: one labour
// item per (worker, job), one item per expense. A session-linked expense
// attributes to its session's (worker, job, date) group; hourly-multiplied
// types scale by that day-group's hours, not the whole week's. Unlinked
// expenses land in the worker's unassigned bucket, where an hourly-multiplied
// type scales by the worker's total hours in the window.
func (s *PayrollServiceImpl) buildLineItems(orgID string, week time.Time, sessions []payroll.WindowSession, expenses []payroll.WindowExpense) []payroll.LineItem {
	weekLabel := week.Format("2006-01-02")

	groups := make(map[string]*labourGroup)
	sessionGroup := make(map[string]string)
	sessionDay := make(map[string]string)
	dayMinutes := make(map[string]int)
	workerMinutes := make(map[string]int)
	var order []string

	for _, sess := range sessions {
		key := sess.WorkerID + "|" + sess.JobID
		g, ok := groups[key]
		if !ok {
			g = &labourGroup{
				workerID:   sess.WorkerID,
				workerName: sess.WorkerName,
				jobID:      sess.JobID,
				jobName:    sess.JobName,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.minutes += sess.DurationMinutes
		sessionGroup[sess.SessionID] = key

		dayKey := key + "|" + sess.Date.Format("2006-01-02")
		dayMinutes[dayKey] += sess.DurationMinutes
		sessionDay[sess.SessionID] = dayKey

		workerMinutes[sess.WorkerID] += sess.DurationMinutes
	}

	var items []payroll.LineItem
	for _, key := range order {
		g := groups[key]
		jobID := g.jobID
		items = append(items, payroll.LineItem{
			ID:          uuid.Must(uuid.NewV7()).String(),
			OrgID:       orgID,
			WeekStart:   week,
			WorkerID:    g.workerID,
			JobID:       &jobID,
			Kind:        payroll.KindLabour,
			Description: fmt.Sprintf("%s - %s labour, week of %s", g.workerName, g.jobName, weekLabel),
			Quantity:    minutesToHours(g.minutes),
			UnitAmount:  decimal.Zero,
			Account:     s.cfg.LabourAccount,
			TaxCode:     s.cfg.TaxCode,
			Total:       decimal.Zero,
		})
	}

	for _, exp := range expenses {
		typeName := "expense"
		if exp.TypeName != nil {
			typeName = *exp.TypeName
		}

		var jobID *string
		hours := decimal.Zero
		target := "unassigned"
		if exp.SessionID != nil {
			if key, ok := sessionGroup[*exp.SessionID]; ok {
				g := groups[key]
				id := g.jobID
				jobID = &id
				hours = minutesToHours(dayMinutes[sessionDay[*exp.SessionID]])
				target = g.jobName
			}
		}
		if jobID == nil {
			hours = minutesToHours(workerMinutes[exp.WorkerID])
		}

		quantity := decimal.NewFromInt(1)
		if exp.Mode == payroll.ModeHourlyMultiplied {
			quantity = hours
		}

		items = append(items, payroll.LineItem{
			ID:          uuid.Must(uuid.NewV7()).String(),
			OrgID:       orgID,
			WeekStart:   week,
			WorkerID:    exp.WorkerID,
			JobID:       jobID,
			Kind:        payroll.KindExpense,
			Description: fmt.Sprintf("%s - %s (%s), week of %s", exp.WorkerName, typeName, target, weekLabel),
			Quantity:    quantity,
			UnitAmount:  exp.Amount,
			Account:     s.cfg.ExpenseAccount,
			TaxCode:     s.cfg.TaxCode,
			Total:       quantity.Mul(exp.Amount),
		})
	}

	return items
}

// ListLineItems implements Service.
func (s *PayrollServiceImpl) ListLineItems(ctx context.Context, weekStart string) ([]payroll.LineItemResponse, error) {
	week, err := s.parseWeekStart(weekStart)
	if err != nil {
		return nil, err
	}

	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.payrollRepo.ListLineItems(ctx, orgID, week)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}

	return toResponses(items), nil
}

// UpdateLineItem implements Service. Edits recompute the total and mark the
// row manually edited so a later regeneration cannot discard them silently.
func (s *PayrollServiceImpl) UpdateLineItem(ctx context.Context, id string, update payroll.LineItemUpdate) (payroll.LineItemResponse, error) {
	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.LineItemResponse{}, err
	}

	item, err := s.payrollRepo.GetLineItem(ctx, id, orgID)
	if err != nil {
		return payroll.LineItemResponse{}, err
	}

	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.Quantity != nil {
		item.Quantity = *update.Quantity
	}
	if update.UnitAmount != nil {
		item.UnitAmount = *update.UnitAmount
	}
	if update.Account != nil {
		item.Account = *update.Account
	}
	if update.TaxCode != nil {
		item.TaxCode = *update.TaxCode
	}
	item.Total = item.Quantity.Mul(item.UnitAmount)

	updated, err := s.payrollRepo.UpdateLineItem(ctx, item)
	if err != nil {
		return payroll.LineItemResponse{}, err
	}

	return payroll.NewLineItemResponse(updated), nil
}

// DeleteLineItem implements Service.
func (s *PayrollServiceImpl) DeleteLineItem(ctx context.Context, id string) error {
	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return err
	}

	return s.payrollRepo.DeleteLineItem(ctx, id, orgID)
}

// CreateExpenseType implements Service.
func (s *PayrollServiceImpl) CreateExpenseType(ctx context.Context, req payroll.CreateExpenseTypeRequest) (payroll.ExpenseType, error) {
	if err := req.Validate(); err != nil {
		return payroll.ExpenseType{}, err
	}

	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ExpenseType{}, err
	}

	return s.payrollRepo.CreateExpenseType(ctx, payroll.ExpenseType{
		ID:         uuid.Must(uuid.NewV7()).String(),
		OrgID:      orgID,
		Name:       req.Name,
		UnitAmount: req.UnitAmount,
		Mode:       payroll.CalculationMode(req.Mode),
		IsActive:   true,
	})
}

// ListExpenseTypes implements Service.
func (s *PayrollServiceImpl) ListExpenseTypes(ctx context.Context, activeOnly bool) ([]payroll.ExpenseType, error) {
	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return s.payrollRepo.ListExpenseTypes(ctx, orgID, activeOnly)
}

// CreateExpenseRecord implements Service.
func (s *PayrollServiceImpl) CreateExpenseRecord(ctx context.Context, req payroll.CreateExpenseRecordRequest) (payroll.ExpenseRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.ExpenseRecord{}, err
	}

	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ExpenseRecord{}, err
	}

	if req.ExpenseTypeID != nil {
		t, err := s.payrollRepo.GetExpenseType(ctx, *req.ExpenseTypeID, orgID)
		if err != nil {
			return payroll.ExpenseRecord{}, err
		}
		if !t.IsActive {
			return payroll.ExpenseRecord{}, payroll.ErrExpenseTypeInactive
		}
	}

	date, _ := time.ParseInLocation("2006-01-02", req.Date, time.UTC)

	return s.payrollRepo.CreateExpenseRecord(ctx, payroll.ExpenseRecord{
		ID:            uuid.Must(uuid.NewV7()).String(),
		OrgID:         orgID,
		WorkerID:      req.WorkerID,
		Amount:        req.Amount,
		ExpenseTypeID: req.ExpenseTypeID,
		SessionID:     req.SessionID,
		Date:          date,
	})
}

// ListExpenseRecords implements Service.
func (s *PayrollServiceImpl) ListExpenseRecords(ctx context.Context, from, to string) ([]payroll.ExpenseRecord, error) {
	orgID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fromDate, err := time.ParseInLocation("2006-01-02", from, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse from date: %w", err)
	}
	toDate, err := time.ParseInLocation("2006-01-02", to, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse to date: %w", err)
	}

	return s.payrollRepo.ListExpenseRecords(ctx, orgID, fromDate, toDate)
}

func minutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

func toResponses(items []payroll.LineItem) []payroll.LineItemResponse {
	responses := make([]payroll.LineItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, payroll.NewLineItemResponse(item))
	}
	return responses
}

func distinctWorkers(items []payroll.LineItem) []string {
	seen := make(map[string]struct{})
	var workers []string
	for _, item := range items {
		if _, ok := seen[item.WorkerID]; !ok {
			seen[item.WorkerID] = struct{}{}
			workers = append(workers, item.WorkerID)
		}
	}
	sort.Strings(workers)
	return workers
}
