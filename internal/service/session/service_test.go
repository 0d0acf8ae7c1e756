package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/domain/worker"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== FAKES ==========

type fakeTxManager struct{}

func (f *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSessionRepo struct {
	sessions   map[string]*session.ClockSession
	otherOnDay bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*session.ClockSession)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s session.ClockSession) (session.ClockSession, error) {
	for _, existing := range f.sessions {
		if existing.WorkerID == s.WorkerID && existing.ClockOut == nil {
			return session.ClockSession{}, session.ErrDuplicateOpenSession
		}
	}
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	copied := s
	f.sessions[s.ID] = &copied
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
	return nil
}

func (f *fakeSessionRepo) HasOtherSessionOnDate(ctx context.Context, workerID string, date time.Time, excludeID string) (bool, error) {
	return f.otherOnDay, nil
}

func (f *fakeSessionRepo) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]session.ClockSession, error) {
	return nil, nil
}

func (f *fakeSessionRepo) ListMySessions(ctx context.Context, workerID string, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	var out []session.ClockSession
	for _, s := range f.sessions {
		if s.WorkerID == workerID && s.OrgID == orgID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSessionRepo) List(ctx context.Context, filter session.Filter, orgID string) ([]session.ClockSession, int64, error) {
	var out []session.ClockSession
	for _, s := range f.sessions {
		if s.OrgID == orgID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

type fakeWorkerRepo struct {
	workers map[string]worker.Worker
}

func (f *fakeWorkerRepo) GetByID(ctx context.Context, id string, orgID string) (worker.Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return worker.Worker{}, worker.ErrWorkerNotFound
	}
	return w, nil
}

// ========== HELPERS ==========

var (
	testOrgID    = uuid.Must(uuid.NewV7()).String()
	testWorkerID = uuid.Must(uuid.NewV7()).String()
	testJobID    = uuid.Must(uuid.NewV7()).String()
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
	svc         Service
	sessionRepo *fakeSessionRepo
	workerRepo  *fakeWorkerRepo
}

func newFixture() *fixture {
	sessionRepo := newFakeSessionRepo()
	workerRepo := &fakeWorkerRepo{workers: map[string]worker.Worker{
		testWorkerID: {ID: testWorkerID, OrgID: testOrgID, FullName: "Jo Field", IsActive: true},
	}}
	return &fixture{
		svc:         NewSessionService(&fakeTxManager{}, sessionRepo, workerRepo),
		sessionRepo: sessionRepo,
		workerRepo:  workerRepo,
	}
}

// ========== TESTS ==========

func TestClockInOpensSession(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	resp, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, testWorkerID, resp.WorkerID)
	assert.Nil(t, resp.ClockOut)

	stored := f.sessionRepo.sessions[resp.ID]
	assert.True(t, stored.IsOpen())
	assert.Equal(t, session.OriginInteractive, stored.Origin)
}

func TestClockInRejectsSecondOpenSession(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	_, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	assert.ErrorIs(t, err, session.ErrDuplicateOpenSession)

	open := 0
	for _, s := range f.sessionRepo.sessions {
		if s.IsOpen() {
			open++
		}
	}
	assert.Equal(t, 1, open, "at most one open session per worker")
}

func TestClockInRejectsInactiveWorker(t *testing.T) {
	f := newFixture()
	f.workerRepo.workers[testWorkerID] = worker.Worker{
		ID: testWorkerID, OrgID: testOrgID, FullName: "Jo Field", IsActive: false,
	}
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	_, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	assert.ErrorIs(t, err, session.ErrWorkerInactive)
}

func TestClockOutClosesSession(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	clockIn := f.sessionRepo.sessions[created.ID].ClockIn
	at := clockIn.Add(8 * time.Hour)
	resp, err := f.svc.ClockOut(ctx, session.ClockOutRequest{SessionID: created.ID, At: &at})
	require.NoError(t, err)

	require.NotNil(t, resp.ClockOut)
	assert.Equal(t, 480, *resp.DurationMinutes)
	assert.False(t, f.sessionRepo.sessions[created.ID].IsOpen())
}

func TestClockOutTwiceFails(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	clockIn := f.sessionRepo.sessions[created.ID].ClockIn
	at := clockIn.Add(8 * time.Hour)
	_, err = f.svc.ClockOut(ctx, session.ClockOutRequest{SessionID: created.ID, At: &at})
	require.NoError(t, err)

	_, err = f.svc.ClockOut(ctx, session.ClockOutRequest{SessionID: created.ID, At: &at})
	assert.ErrorIs(t, err, session.ErrSessionAlreadyClosed)
}

func TestClockOutRejectsInvalidRange(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	clockIn := f.sessionRepo.sessions[created.ID].ClockIn
	before := clockIn.Add(-time.Minute)
	_, err = f.svc.ClockOut(ctx, session.ClockOutRequest{SessionID: created.ID, At: &before})
	assert.ErrorIs(t, err, session.ErrInvalidTimeRange)
}

func TestClockOutRejectsOtherWorker(t *testing.T) {
	f := newFixture()
	ctx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(ctx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	otherCtx := authedContext(t, uuid.Must(uuid.NewV7()).String(), jwt.RoleWorker)
	_, err = f.svc.ClockOut(otherCtx, session.ClockOutRequest{SessionID: created.ID})
	assert.ErrorIs(t, err, session.ErrUnauthorized)
}

func TestManagerOverrideClosesAtDuration(t *testing.T) {
	f := newFixture()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(workerCtx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)
	clockIn := f.sessionRepo.sessions[created.ID].ClockIn

	managerCtx := authedContext(t, uuid.Must(uuid.NewV7()).String(), jwt.RoleManager)
	override := decimal.NewFromFloat(7.5)
	resp, err := f.svc.ClockOut(managerCtx, session.ClockOutRequest{
		SessionID:     created.ID,
		OverrideHours: &override,
	})
	require.NoError(t, err)

	assert.Equal(t, 450, *resp.DurationMinutes)
	stored := f.sessionRepo.sessions[created.ID]
	assert.Equal(t, clockIn.Add(450*time.Minute), *stored.ClockOut)
	assert.Equal(t, session.OriginManual, stored.Origin)
}

func TestManagerOverrideRejectsDuplicateDay(t *testing.T) {
	f := newFixture()
	workerCtx := authedContext(t, testWorkerID, jwt.RoleWorker)

	created, err := f.svc.ClockIn(workerCtx, session.ClockInRequest{JobID: testJobID})
	require.NoError(t, err)

	f.sessionRepo.otherOnDay = true
	managerCtx := authedContext(t, uuid.Must(uuid.NewV7()).String(), jwt.RoleManager)
	override := decimal.NewFromInt(8)
	_, err = f.svc.ClockOut(managerCtx, session.ClockOutRequest{
		SessionID:     created.ID,
		OverrideHours: &override,
	})
	assert.ErrorIs(t, err, session.ErrDuplicateDayEntry)
}
