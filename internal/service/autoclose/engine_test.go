package autoclose

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/config"
	"github.com/shiftline/timeclock-backend-go/internal/domain/autoclose"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== FAKES ==========

type fakeTxManager struct{}

func (f *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSessionRepo struct {
	sessions map[string]*session.ClockSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*session.ClockSession)}
}

func (f *fakeSessionRepo) add(s session.ClockSession) {
	copied := s
	f.sessions[s.ID] = &copied
}

func (f *fakeSessionRepo) Create(ctx context.Context, s session.ClockSession) (session.ClockSession, error) {
	f.add(s)
	return s, nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string, orgID string) (session.ClockSession, error) {
	s, ok := f.sessions[id]
	if !ok || s.OrgID != orgID {
		return session.ClockSession{}, session.ErrSessionNotFound
	}
	return *s, nil
}

func (f *fakeSessionRepo) GetOpenByWorker(ctx context.Context, workerID string) (session.ClockSession, error) {
	for _, s := range f.sessions {
		if s.WorkerID == workerID && s.ClockOut == nil {
			return *s, nil
		}
	}
	return session.ClockSession{}, session.ErrSessionNotFound
}

func (f *fakeSessionRepo) Close(ctx context.Context, id string, clockOut time.Time, durationMinutes int, origin session.Origin, evidence session.CloseEvidence) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.ClockOut != nil {
		return false, nil
	}
	s.ClockOut = &clockOut
	s.DurationMinutes = &durationMinutes
	s.Origin = origin
	return true, nil
}

func (f *fakeSessionRepo) ApplyAmendedTimes(ctx context.Context, id string, clockIn time.Time, clockOut time.Time, durationMinutes int) error {
	s := f.sessions[id]
	s.ClockIn = clockIn
	s.ClockOut = &clockOut
	s.DurationMinutes = &durationMinutes
	return nil
}

func (f *fakeSessionRepo) HasOtherSessionOnDate(ctx context.Context, workerID string, date time.Time, excludeID string) (bool, error) {
	return false, nil
}

func (f *fakeSessionRepo) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]session.ClockSession, error) {
	var out []session.ClockSession
	for _, s := range f.sessions {
		if s.ClockOut == nil && s.ClockIn.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) ListMySessions(ctx context.Context, workerID string, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	return nil, 0, nil
}

func (f *fakeSessionRepo) List(ctx context.Context, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	return nil, 0, nil
}

type fakeCounterRepo struct {
	counters map[string]autoclose.Counter
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: make(map[string]autoclose.Counter)}
}

func (f *fakeCounterRepo) GetForUpdate(ctx context.Context, workerID string) (autoclose.Counter, error) {
	c, ok := f.counters[workerID]
	if !ok {
		c = autoclose.Counter{
			WorkerID:    workerID,
			MonthAnchor: time.Now().UTC(),
		}
		f.counters[workerID] = c
	}
	return c, nil
}

func (f *fakeCounterRepo) Save(ctx context.Context, c autoclose.Counter) error {
	f.counters[c.WorkerID] = c
	return nil
}

type fakeAuditRepo struct {
	records []autoclose.AuditRecord
}

func (f *fakeAuditRepo) Create(ctx context.Context, rec autoclose.AuditRecord) (autoclose.AuditRecord, error) {
	rec.DecidedAt = time.Now().UTC()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAuditRepo) CountPerformedSince(ctx context.Context, workerID string, since time.Time) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.WorkerID == workerID && rec.Performed && rec.DecidedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filter autoclose.AuditFilter) ([]autoclose.AuditRecord, int64, error) {
	return f.records, int64(len(f.records)), nil
}

type fakeShiftRepo struct {
	hasShift bool
}

func (f *fakeShiftRepo) HasShiftOn(ctx context.Context, workerID string, date time.Time) (bool, error) {
	return f.hasShift, nil
}

type fakeNotifier struct {
	queued []notification.CreateNotificationRequest
}

func (f *fakeNotifier) Queue(ctx context.Context, req notification.CreateNotificationRequest) error {
	f.queued = append(f.queued, req)
	return nil
}

func (f *fakeNotifier) Stop() {}

// ========== HELPERS ==========

func testPolicy() config.AutoCloseConfig {
	return config.AutoCloseConfig{
		MaxShiftDuration:     12 * time.Hour,
		MonthlyCap:           10,
		Rolling14Cap:         3,
		ConsecutiveBlockDays: 3,
		SweepConcurrency:     4,
		WorkerTimeout:        10 * time.Second,
	}
}

type engineFixture struct {
	engine   *Engine
	sessions *fakeSessionRepo
	counters *fakeCounterRepo
	audits   *fakeAuditRepo
	shifts   *fakeShiftRepo
	notifier *fakeNotifier
}

func newEngineFixture(policy config.AutoCloseConfig, now time.Time) *engineFixture {
	f := &engineFixture{
		sessions: newFakeSessionRepo(),
		counters: newFakeCounterRepo(),
		audits:   &fakeAuditRepo{},
		shifts:   &fakeShiftRepo{hasShift: true},
		notifier: &fakeNotifier{},
	}
	f.engine = NewEngine(&fakeTxManager{}, f.sessions, f.counters, f.audits, f.shifts, f.notifier, policy)
	f.engine.now = func() time.Time { return now }
	return f
}

func openSession(workerID string, clockIn time.Time) session.ClockSession {
	return session.ClockSession{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrgID:          uuid.Must(uuid.NewV7()).String(),
		WorkerID:       workerID,
		JobID:          uuid.Must(uuid.NewV7()).String(),
		ClockIn:        clockIn,
		Origin:         session.OriginInteractive,
		OvertimeStatus: session.OvertimeNone,
	}
}

// ========== TESTS ==========

func TestSweepClosesAtShiftBoundary(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 20, 5, 0, 0, time.UTC) // 12h05m elapsed

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)

	err := f.engine.Sweep(context.Background())
	require.NoError(t, err)

	closed := f.sessions.sessions[sess.ID]
	require.NotNil(t, closed.ClockOut, "session should be closed")
	assert.Equal(t, clockIn.Add(12*time.Hour), *closed.ClockOut, "close at the shift-max boundary, not now")
	assert.Equal(t, 720, *closed.DurationMinutes)
	assert.Equal(t, session.OriginSystem, closed.Origin)

	require.Len(t, f.audits.records, 1)
	assert.Equal(t, autoclose.ReasonOK, f.audits.records[0].Reason)
	assert.True(t, f.audits.records[0].Performed)

	counter := f.counters.counters["worker-1"]
	assert.Equal(t, 1, counter.MonthCount)
	assert.Equal(t, 1, counter.ConsecutiveDays)
	require.NotNil(t, counter.LastAutoWorkday)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *counter.LastAutoWorkday)

	require.Len(t, f.notifier.queued, 1)
	assert.Equal(t, notification.TypeSessionAutoClosed, f.notifier.queued[0].Type)
}

func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
	now := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	f := newEngineFixture(testPolicy(), now)
	f.sessions.add(openSession("worker-1", now.Add(-8*time.Hour)))

	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Empty(t, f.audits.records, "sessions under the max duration are not evaluated")
}

func TestSweepRolling14CapSkips(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)

	// Three performed closes inside the trailing 14 days.
	for i := 0; i < 3; i++ {
		f.audits.records = append(f.audits.records, autoclose.AuditRecord{
			WorkerID:  "worker-1",
			Reason:    autoclose.ReasonOK,
			Performed: true,
			DecidedAt: now.AddDate(0, 0, -(i + 2)),
		})
	}

	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Nil(t, f.sessions.sessions[sess.ID].ClockOut, "session stays open")

	last := f.audits.records[len(f.audits.records)-1]
	assert.Equal(t, autoclose.ReasonCapRolling14, last.Reason)
	assert.False(t, last.Performed)

	counter := f.counters.counters["worker-1"]
	assert.Equal(t, 0, counter.MonthCount, "counters unchanged on skip")
}

func TestSweepMonthlyCapSkips(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)
	f.counters.counters["worker-1"] = autoclose.Counter{
		WorkerID:    "worker-1",
		MonthCount:  10,
		MonthAnchor: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Nil(t, f.sessions.sessions[sess.ID].ClockOut)
	last := f.audits.records[len(f.audits.records)-1]
	assert.Equal(t, autoclose.ReasonCapMonth, last.Reason)
	assert.False(t, last.Performed)
}

func TestSweepMonthRolloverResetsCount(t *testing.T) {
	clockIn := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)
	f.counters.counters["worker-1"] = autoclose.Counter{
		WorkerID:    "worker-1",
		MonthCount:  10,
		MonthAnchor: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, f.engine.Sweep(context.Background()))

	require.NotNil(t, f.sessions.sessions[sess.ID].ClockOut, "cap from last month does not carry over")
	counter := f.counters.counters["worker-1"]
	assert.Equal(t, 1, counter.MonthCount)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), counter.MonthAnchor)
}

func TestSweepNoShiftSkips(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	f.shifts.hasShift = false
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)

	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Nil(t, f.sessions.sessions[sess.ID].ClockOut)
	last := f.audits.records[len(f.audits.records)-1]
	assert.Equal(t, autoclose.ReasonNoShift, last.Reason)
	assert.False(t, last.Performed)
}

func TestSweepConsecutiveBlockSkips(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)
	f.counters.counters["worker-1"] = autoclose.Counter{
		WorkerID:        "worker-1",
		MonthCount:      3,
		MonthAnchor:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ConsecutiveDays: 3,
		LastAutoWorkday: &yesterday,
	}

	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Nil(t, f.sessions.sessions[sess.ID].ClockOut)
	last := f.audits.records[len(f.audits.records)-1]
	assert.Equal(t, autoclose.ReasonConsecutiveBlock, last.Reason)
	assert.False(t, last.Performed)
}

func TestSweepConsecutiveRunExtends(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)
	f.counters.counters["worker-1"] = autoclose.Counter{
		WorkerID:        "worker-1",
		MonthCount:      2,
		MonthAnchor:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ConsecutiveDays: 2,
		LastAutoWorkday: &yesterday,
	}

	require.NoError(t, f.engine.Sweep(context.Background()))

	require.NotNil(t, f.sessions.sessions[sess.ID].ClockOut, "run of 2 is under the block of 3")
	counter := f.counters.counters["worker-1"]
	assert.Equal(t, 3, counter.ConsecutiveDays)
}

func TestSweepLostRaceRecordsAlreadyClockedOut(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)

	// Manual clock-out wins between listing and evaluation.
	manualOut := clockIn.Add(9 * time.Hour)
	stale := sess
	closedCopy := f.sessions.sessions[sess.ID]
	closedCopy.ClockOut = &manualOut

	decision := f.engine.evaluateSession(context.Background(), stale)

	assert.Equal(t, autoclose.ReasonAlreadyClockedOut, decision.Reason)
	assert.False(t, decision.Performed)
	assert.Equal(t, manualOut, *f.sessions.sessions[sess.ID].ClockOut, "manual close is not overwritten")
	assert.Equal(t, 0, f.counters.counters["worker-1"].MonthCount)
}

func TestSweepIsIdempotent(t *testing.T) {
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	sess := openSession("worker-1", clockIn)
	f.sessions.add(sess)

	require.NoError(t, f.engine.Sweep(context.Background()))
	require.NoError(t, f.engine.Sweep(context.Background()))

	assert.Equal(t, 1, f.counters.counters["worker-1"].MonthCount, "second sweep must not double-count")

	performed := 0
	for _, rec := range f.audits.records {
		if rec.Performed {
			performed++
		}
	}
	assert.Equal(t, 1, performed)
}

func TestReasonPerformedCorrespondence(t *testing.T) {
	// Exercise a mix of outcomes, then assert the invariant over the whole
	// audit trail: performed is true exactly when the reason is OK.
	clockIn := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := clockIn.Add(13 * time.Hour)

	f := newEngineFixture(testPolicy(), now)
	f.sessions.add(openSession("worker-ok", clockIn))

	require.NoError(t, f.engine.Sweep(context.Background()))

	f.shifts.hasShift = false
	f.sessions.add(openSession("worker-2", clockIn))
	require.NoError(t, f.engine.Sweep(context.Background()))

	require.NotEmpty(t, f.audits.records)
	for _, rec := range f.audits.records {
		assert.Equal(t, rec.Reason == autoclose.ReasonOK, rec.Performed,
			"reason %s performed %v", rec.Reason, rec.Performed)
	}
}
