package amendment

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/config"
	"github.com/shiftline/timeclock-backend-go/internal/domain/amendment"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== FAKES ==========

type fakeTxManager struct{}

func (f *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAmendmentRepo struct {
	amendments map[string]*amendment.Amendment
}

func newFakeAmendmentRepo() *fakeAmendmentRepo {
	return &fakeAmendmentRepo{amendments: make(map[string]*amendment.Amendment)}
}

func (f *fakeAmendmentRepo) Create(ctx context.Context, a amendment.Amendment) (amendment.Amendment, error) {
	for _, existing := range f.amendments {
		if existing.SessionID == a.SessionID && existing.Status == amendment.StatusPending {
			return amendment.Amendment{}, amendment.ErrAmendmentPending
		}
	}
	a.CreatedAt = time.Now().UTC()
	copied := a
	f.amendments[a.ID] = &copied
	return a, nil
}

func (f *fakeAmendmentRepo) GetByID(ctx context.Context, id string, orgID string) (amendment.Amendment, error) {
	a, ok := f.amendments[id]
	if !ok || a.OrgID != orgID {
		return amendment.Amendment{}, amendment.ErrAmendmentNotFound
	}
	return *a, nil
}

func (f *fakeAmendmentRepo) MarkProcessed(ctx context.Context, id string, status amendment.Status, approverID string, notes *string, processedAt time.Time) (bool, error) {
	a, ok := f.amendments[id]
	if !ok || a.Status != amendment.StatusPending {
		return false, nil
	}
	a.Status = status
	a.ApproverID = &approverID
	a.ApproverNotes = notes
	a.ProcessedAt = &processedAt
	return true, nil
}

func (f *fakeAmendmentRepo) LatestRejectedAt(ctx context.Context, sessionID string) (*time.Time, error) {
	var latest *time.Time
	for _, a := range f.amendments {
		if a.SessionID == sessionID && a.Status == amendment.StatusRejected && a.ProcessedAt != nil {
			if latest == nil || a.ProcessedAt.After(*latest) {
				latest = a.ProcessedAt
			}
		}
	}
	return latest, nil
}

func (f *fakeAmendmentRepo) ListPending(ctx context.Context, orgID string, page, limit int) ([]amendment.Amendment, int64, error) {
	var out []amendment.Amendment
	for _, a := range f.amendments {
		if a.OrgID == orgID && a.Status == amendment.StatusPending {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAmendmentRepo) ListByWorker(ctx context.Context, workerID string, orgID string, page, limit int) ([]amendment.Amendment, int64, error) {
	var out []amendment.Amendment
	for _, a := range f.amendments {
		if a.WorkerID == workerID && a.OrgID == orgID {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

type fakeHistoryRepo struct {
	entries []amendment.HistoryEntry
}

func (f *fakeHistoryRepo) Create(ctx context.Context, h amendment.HistoryEntry) (amendment.HistoryEntry, error) {
	f.entries = append(f.entries, h)
	return h, nil
}

func (f *fakeHistoryRepo) ListBySession(ctx context.Context, sessionID string, orgID string) ([]amendment.HistoryEntry, error) {
	var out []amendment.HistoryEntry
	for _, h := range f.entries {
		if h.SessionID == sessionID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	sessions map[string]*session.ClockSession
}

func (f *fakeSessionRepo) Create(ctx context.Context, s session.ClockSession) (session.ClockSession, error) {
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
	return session.ClockSession{}, session.ErrSessionNotFound
}

func (f *fakeSessionRepo) Close(ctx context.Context, id string, clockOut time.Time, durationMinutes int, origin session.Origin, evidence session.CloseEvidence) (bool, error) {
	return false, nil
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
	return nil, nil
}

func (f *fakeSessionRepo) ListMySessions(ctx context.Context, workerID string, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	return nil, 0, nil
}

func (f *fakeSessionRepo) List(ctx context.Context, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	return nil, 0, nil
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

var (
	testOrgID     = uuid.Must(uuid.NewV7()).String()
	testWorkerID  = uuid.Must(uuid.NewV7()).String()
	testManagerID = uuid.Must(uuid.NewV7()).String()
)

func authedContext(t *testing.T, workerID string, role jwt.Role) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := ja.Encode(map[string]interface{}{
		"org_id":    testOrgID,
		"worker_id": workerID,
		"role":      string(role),
		"type":      "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

type fixture struct {
	svc           Service
	amendmentRepo *fakeAmendmentRepo
	historyRepo   *fakeHistoryRepo
	sessionRepo   *fakeSessionRepo
	notifier      *fakeNotifier
	cfg           config.AmendmentConfig
}

func newFixture(cfg config.AmendmentConfig) *fixture {
	f := &fixture{
		amendmentRepo: newFakeAmendmentRepo(),
		historyRepo:   &fakeHistoryRepo{},
		sessionRepo:   &fakeSessionRepo{sessions: make(map[string]*session.ClockSession)},
		notifier:      &fakeNotifier{},
		cfg:           cfg,
	}
	f.svc = NewAmendmentService(&fakeTxManager{}, f.amendmentRepo, f.historyRepo, f.sessionRepo, f.notifier, cfg)
	return f
}

// closedSession seeds a session closed 09:00-17:00.
func (f *fixture) closedSession() session.ClockSession {
	clockIn := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clockOut := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	duration := 480
	s := session.ClockSession{
		ID:              uuid.Must(uuid.NewV7()).String(),
		OrgID:           testOrgID,
		WorkerID:        testWorkerID,
		JobID:           uuid.Must(uuid.NewV7()).String(),
		ClockIn:         clockIn,
		ClockOut:        &clockOut,
		DurationMinutes: &duration,
		Origin:          session.OriginInteractive,
		OvertimeStatus:  session.OvertimeNone,
	}
	copied := s
	f.sessionRepo.sessions[s.ID] = &copied
	return s
}

func (f *fixture) openSession() session.ClockSession {
	s := session.ClockSession{
		ID:       uuid.Must(uuid.NewV7()).String(),
		OrgID:    testOrgID,
		WorkerID: testWorkerID,
		ClockIn:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	copied := s
	f.sessionRepo.sessions[s.ID] = &copied
	return s
}

// ========== TESTS ==========

func TestRequestAmendmentOnClosedSession(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	resp, err := f.svc.RequestAmendment(ctx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "forgot to clock out correctly",
	})
	require.NoError(t, err)

	assert.Equal(t, string(amendment.StatusPending), resp.Status)
	assert.Equal(t, sess.ID, resp.SessionID)

	// The session itself is untouched until approval.
	stored := f.sessionRepo.sessions[sess.ID]
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), *stored.ClockOut)
}

func TestRequestAmendmentRequiresReason(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	_, err := f.svc.RequestAmendment(ctx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
	})
	assert.ErrorIs(t, err, amendment.ErrEmptyReason)
}

func TestRequestAmendmentRequiresSomeChange(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	_, err := f.svc.RequestAmendment(ctx, amendment.RequestAmendmentRequest{
		SessionID: sess.ID,
		Reason:    "fix times",
	})
	assert.ErrorIs(t, err, amendment.ErrNoChangesRequested)
}

func TestRequestAmendmentRejectsOpenSession(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.openSession()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	_, err := f.svc.RequestAmendment(ctx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "fix times",
	})
	assert.ErrorIs(t, err, amendment.ErrSessionNotClosed)
}

func TestRequestAmendmentRejectsSecondPending(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	req := amendment.RequestAmendmentRequest{SessionID: sess.ID, NewClockOut: &newOut, Reason: "fix times"}

	_, err := f.svc.RequestAmendment(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.RequestAmendment(ctx, req)
	assert.ErrorIs(t, err, amendment.ErrAmendmentPending)
}

func TestRequestAmendmentEnforcesCooldown(t *testing.T) {
	f := newFixture(config.AmendmentConfig{ResubmitCooldown: time.Hour})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	req := amendment.RequestAmendmentRequest{SessionID: sess.ID, NewClockOut: &newOut, Reason: "fix times"}

	first, err := f.svc.RequestAmendment(workerCtx, req)
	require.NoError(t, err)

	notes := "times match the roster"
	_, err = f.svc.RejectAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: first.ID, ApproverNotes: &notes})
	require.NoError(t, err)

	_, err = f.svc.RequestAmendment(workerCtx, req)
	assert.ErrorIs(t, err, amendment.ErrResubmitCooldown)
}

func TestApproveAppliesTimesAndSnapshotsHistory(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	requested, err := f.svc.RequestAmendment(workerCtx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "forgot to clock out correctly",
	})
	require.NoError(t, err)

	resp, err := f.svc.ApproveAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: requested.ID})
	require.NoError(t, err)
	assert.Equal(t, string(amendment.StatusApproved), resp.Status)

	stored := f.sessionRepo.sessions[sess.ID]
	assert.Equal(t, newOut, *stored.ClockOut)
	assert.Equal(t, 510, *stored.DurationMinutes)

	require.Len(t, f.historyRepo.entries, 1)
	entry := f.historyRepo.entries[0]
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), *entry.OldClockOut,
		"old values equal the session immediately before approval")
	assert.Equal(t, newOut, *entry.NewClockOut)
	assert.Equal(t, 480, *entry.OldDurationMins)
	assert.Equal(t, 510, *entry.NewDurationMins)
	assert.Equal(t, testManagerID, entry.ChangedBy)

	require.Len(t, f.notifier.queued, 1)
	assert.Equal(t, notification.TypeAmendmentApproved, f.notifier.queued[0].Type)
}

func TestApproveTwiceFails(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	newOut := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	requested, err := f.svc.RequestAmendment(workerCtx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "fix times",
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: requested.ID})
	require.NoError(t, err)

	_, err = f.svc.ApproveAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: requested.ID})
	assert.ErrorIs(t, err, amendment.ErrAlreadyProcessed)

	assert.Len(t, f.historyRepo.entries, 1, "no second history row")
}

func TestApproveRejectsInvertedRange(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	badOut := sess.ClockIn.Add(-time.Hour)
	requested, err := f.svc.RequestAmendment(workerCtx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &badOut,
		Reason:      "typo",
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: requested.ID})
	assert.ErrorIs(t, err, amendment.ErrInvalidAmendedRange)
}

func TestRejectRequiresNotes(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	newOut := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	requested, err := f.svc.RequestAmendment(workerCtx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "fix times",
	})
	require.NoError(t, err)

	_, err = f.svc.RejectAmendment(managerCtx, amendment.ProcessAmendmentRequest{AmendmentID: requested.ID})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Contains(t, validationErrs.ToMap(), "approver_notes")

	stored, err := f.amendmentRepo.GetByID(context.Background(), requested.ID, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, amendment.StatusPending, stored.Status, "amendment stays pending")
}

func TestRejectLeavesSessionUntouched(t *testing.T) {
	f := newFixture(config.AmendmentConfig{})
	sess := f.closedSession()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)
	managerCtx := authedContext(t, testManagerID, jwt.RoleManager)

	newOut := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	requested, err := f.svc.RequestAmendment(workerCtx, amendment.RequestAmendmentRequest{
		SessionID:   sess.ID,
		NewClockOut: &newOut,
		Reason:      "fix times",
	})
	require.NoError(t, err)

	notes := "times match the roster"
	resp, err := f.svc.RejectAmendment(managerCtx, amendment.ProcessAmendmentRequest{
		AmendmentID:   requested.ID,
		ApproverNotes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, string(amendment.StatusRejected), resp.Status)

	stored := f.sessionRepo.sessions[sess.ID]
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), *stored.ClockOut)
	assert.Empty(t, f.historyRepo.entries, "rejection writes no history")

	require.Len(t, f.notifier.queued, 1)
	assert.Equal(t, notification.TypeAmendmentRejected, f.notifier.queued[0].Type)
}
