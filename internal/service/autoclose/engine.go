package autoclose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/config"
	"github.com/shiftline/timeclock-backend-go/internal/domain/autoclose"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/schedule"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
	"golang.org/x/sync/errgroup"
)

const rollingWindow = 14 * 24 * time.Hour

// Engine is the auto clock-out decision engine. It runs as a periodic sweep
// rather than per-event timers: the caps it enforces depend on wall-clock
// elapsed time, and a sweep holds no in-memory state across restarts.
//
// Every evaluated session yields exactly one audit record, acted on or not.
// The close, the counter update and the audit row for a performed close
// commit in one transaction, so re-running the sweep can never double-count.
type Engine struct {
	db       database.TxManager
	sessions session.Repository
	counters autoclose.CounterRepository
	audits   autoclose.AuditRepository
	shifts   schedule.ShiftRepository
	notifier notification.Service
	policy   config.AutoCloseConfig

	now func() time.Time
}

func NewEngine(
	db database.TxManager,
	sessions session.Repository,
	counters autoclose.CounterRepository,
	audits autoclose.AuditRepository,
	shifts schedule.ShiftRepository,
	notifier notification.Service,
	policy config.AutoCloseConfig,
) *Engine {
	return &Engine{
		db:       db,
		sessions: sessions,
		counters: counters,
		audits:   audits,
		shifts:   shifts,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// Sweep evaluates every session open longer than the maximum shift duration.
// Workers are processed concurrently up to the configured limit; a failure
// for one worker never aborts the batch.
func (e *Engine) Sweep(ctx context.Context) error {
	cutoff := e.now().UTC().Add(-e.policy.MaxShiftDuration)

	stale, err := e.sessions.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale open sessions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	done := make(chan autoclose.Decision, len(stale))

	var g errgroup.Group
	g.SetLimit(e.policy.SweepConcurrency)
	for _, sess := range stale {
		sess := sess
		g.Go(func() error {
			done <- e.evaluateSession(ctx, sess)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	performed := 0
	for d := range done {
		if d.Performed {
			performed++
		}
	}

	slog.Info("Auto clock-out sweep finished", "evaluated", len(stale), "closed", performed)
	return nil
}

// evaluateSession runs the decision for one worker's stale session and always
// records an audit row. Unexpected errors become UNKNOWN and the session is
// left open for manual intervention.
func (e *Engine) evaluateSession(ctx context.Context, stale session.ClockSession) autoclose.Decision {
	wctx, cancel := context.WithTimeout(ctx, e.policy.WorkerTimeout)
	defer cancel()

	var decision autoclose.Decision
	err := e.db.WithinTransaction(wctx, func(txCtx context.Context) error {
		d, err := e.decide(txCtx, stale)
		if err != nil {
			return err
		}
		decision = d
		return e.writeAudit(txCtx, stale, d)
	})
	if err != nil {
		decision = autoclose.Decision{
			WorkerID:  stale.WorkerID,
			SessionID: stale.ID,
			Reason:    autoclose.ReasonUnknown,
			Performed: false,
			Note:      fmt.Sprintf("evaluation failed: %v", err),
		}
		slog.Error("Auto clock-out evaluation failed", "worker_id", stale.WorkerID, "session_id", stale.ID, "error", err)
		// The transaction rolled back, so the audit row goes in on its own.
		if auditErr := e.writeAudit(ctx, stale, decision); auditErr != nil {
			slog.Error("Failed to record UNKNOWN decision", "worker_id", stale.WorkerID, "error", auditErr)
		}
		return decision
	}

	if decision.Performed {
		e.notifyClosed(ctx, stale)
	}

	return decision
}

// decide applies the decision ladder in order. It runs inside the sweep
// transaction; when it closes the session it also updates the counters.
func (e *Engine) decide(ctx context.Context, stale session.ClockSession) (autoclose.Decision, error) {
	now := e.now().UTC()
	skip := func(reason autoclose.Reason, note string) autoclose.Decision {
		return autoclose.Decision{
			WorkerID:  stale.WorkerID,
			SessionID: stale.ID,
			Reason:    reason,
			Performed: false,
			Note:      note,
		}
	}

	// 1-2. Re-check state under the transaction; a manual clock-out may have
	// won the race since the sweep listed this session.
	cur, err := e.sessions.GetByID(ctx, stale.ID, stale.OrgID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return skip(autoclose.ReasonNoClockIn, "session no longer exists"), nil
		}
		return autoclose.Decision{}, err
	}
	if !cur.IsOpen() {
		return skip(autoclose.ReasonAlreadyClockedOut, "session was closed before evaluation"), nil
	}
	if _, err := e.sessions.GetOpenByWorker(ctx, stale.WorkerID); err != nil {
		if err == session.ErrSessionNotFound {
			return skip(autoclose.ReasonNoClockIn, "no open session for worker"), nil
		}
		return autoclose.Decision{}, err
	}

	// 3. No scheduled shift means the overrun is a scheduling problem, not a
	// forgotten clock-out.
	shiftDate := dateOf(cur.ClockIn)
	hasShift, err := e.shifts.HasShiftOn(ctx, cur.WorkerID, shiftDate)
	if err != nil {
		return autoclose.Decision{}, err
	}
	if !hasShift {
		return skip(autoclose.ReasonNoShift, "no shift scheduled for this day"), nil
	}

	// 4-6. Cap checks under the counter row lock.
	counter, err := e.counters.GetForUpdate(ctx, cur.WorkerID)
	if err != nil {
		return autoclose.Decision{}, err
	}
	if counter.MonthAnchor.Year() != now.Year() || counter.MonthAnchor.Month() != now.Month() {
		counter.MonthCount = 0
		counter.MonthAnchor = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if counter.MonthCount+1 > e.policy.MonthlyCap {
		return skip(autoclose.ReasonCapMonth,
			fmt.Sprintf("monthly cap reached (%d/%d)", counter.MonthCount, e.policy.MonthlyCap)), nil
	}

	rolling, err := e.audits.CountPerformedSince(ctx, cur.WorkerID, now.Add(-rollingWindow))
	if err != nil {
		return autoclose.Decision{}, err
	}
	if rolling+1 > e.policy.Rolling14Cap {
		return skip(autoclose.ReasonCapRolling14,
			fmt.Sprintf("rolling 14-day cap reached (%d/%d)", rolling, e.policy.Rolling14Cap)), nil
	}

	prevDay := shiftDate.AddDate(0, 0, -1)
	if counter.LastAutoWorkday != nil && sameDate(*counter.LastAutoWorkday, prevDay) &&
		counter.ConsecutiveDays >= e.policy.ConsecutiveBlockDays {
		return skip(autoclose.ReasonConsecutiveBlock,
			fmt.Sprintf("auto-closed on %d consecutive workdays", counter.ConsecutiveDays)), nil
	}

	// 7. Close at the maximum-shift boundary, not "now".
	closeAt := cur.ClockIn.Add(e.policy.MaxShiftDuration)
	durationMinutes := int(e.policy.MaxShiftDuration.Minutes())
	ok, err := e.sessions.Close(ctx, cur.ID, closeAt, durationMinutes, session.OriginSystem, session.CloseEvidence{})
	if err != nil {
		return autoclose.Decision{}, err
	}
	if !ok {
		return skip(autoclose.ReasonAlreadyClockedOut, "lost race against manual clock-out"), nil
	}

	counter.MonthCount++
	if counter.LastAutoWorkday != nil && sameDate(*counter.LastAutoWorkday, prevDay) {
		counter.ConsecutiveDays++
	} else {
		counter.ConsecutiveDays = 1
	}
	counter.LastAutoAt = &now
	counter.LastAutoWorkday = &shiftDate
	if err := e.counters.Save(ctx, counter); err != nil {
		return autoclose.Decision{}, err
	}

	return autoclose.Decision{
		WorkerID:  cur.WorkerID,
		SessionID: cur.ID,
		Reason:    autoclose.ReasonOK,
		Performed: true,
		Note:      fmt.Sprintf("closed at shift boundary %s", closeAt.Format(time.RFC3339)),
	}, nil
}

func (e *Engine) writeAudit(ctx context.Context, stale session.ClockSession, d autoclose.Decision) error {
	sessionID := d.SessionID
	note := d.Note
	_, err := e.audits.Create(ctx, autoclose.AuditRecord{
		ID:        uuid.Must(uuid.NewV7()).String(),
		WorkerID:  d.WorkerID,
		SessionID: &sessionID,
		ShiftDate: dateOf(stale.ClockIn),
		Reason:    d.Reason,
		Performed: d.Performed,
		DecidedBy: autoclose.DeciderSystem,
		Note:      &note,
	})
	return err
}

func (e *Engine) notifyClosed(ctx context.Context, sess session.ClockSession) {
	if e.notifier == nil {
		return
	}
	err := e.notifier.Queue(ctx, notification.CreateNotificationRequest{
		OrgID:       sess.OrgID,
		RecipientID: sess.WorkerID,
		Type:        notification.TypeSessionAutoClosed,
		Title:       "Shift closed automatically",
		Message:     "Your open shift exceeded the maximum duration and was closed at the shift boundary.",
		Data:        map[string]interface{}{"session_id": sess.ID},
	})
	if err != nil {
		slog.Warn("Failed to queue auto-close notification", "worker_id", sess.WorkerID, "error", err)
	}
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// ListAuditRecords returns the decision trail for review, newest first.
func (e *Engine) ListAuditRecords(ctx context.Context, filter autoclose.AuditFilter) ([]autoclose.AuditRecordResponse, int64, error) {
	records, total, err := e.audits.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}

	responses := make([]autoclose.AuditRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, autoclose.NewAuditRecordResponse(rec))
	}
	return responses, total, nil
}
