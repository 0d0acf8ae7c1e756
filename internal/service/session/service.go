package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/domain/worker"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
)

// Service is the clock session state machine: Open -> Closed, at most one
// Open session per worker.
type Service interface {
	ClockIn(ctx context.Context, req session.ClockInRequest) (session.SessionResponse, error)
	ClockOut(ctx context.Context, req session.ClockOutRequest) (session.SessionResponse, error)
	GetMySessions(ctx context.Context, filter session.Filter) ([]session.SessionResponse, int64, error)
	ListSessions(ctx context.Context, filter session.Filter) ([]session.SessionResponse, int64, error)
}

type SessionServiceImpl struct {
	db          database.TxManager
	sessionRepo session.Repository
	workerRepo  worker.Repository
}

func NewSessionService(
	db database.TxManager,
	sessionRepo session.Repository,
	workerRepo worker.Repository,
) Service {
	return &SessionServiceImpl{
		db:          db,
		sessionRepo: sessionRepo,
		workerRepo:  workerRepo,
	}
}

// Helper to get org_id, worker_id and role from JWT context
func getClaimsFromContext(ctx context.Context) (orgID, workerID string, role jwt.Role, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	orgID, ok := claims["org_id"].(string)
	if !ok || orgID == "" {
		return "", "", "", fmt.Errorf("org_id claim is missing or invalid")
	}

	workerID, ok = claims["worker_id"].(string)
	if !ok || workerID == "" {
		return "", "", "", fmt.Errorf("worker_id claim is missing or invalid")
	}

	roleStr, _ := claims["role"].(string)

	return orgID, workerID, jwt.Role(roleStr), nil
}

// ClockIn implements Service. The open-session pre-check runs in the same
// transaction as the insert; the partial unique index backs it up against
// concurrent devices.
func (s *SessionServiceImpl) ClockIn(ctx context.Context, req session.ClockInRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}

	orgID, workerID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return session.SessionResponse{}, err
	}

	w, err := s.workerRepo.GetByID(ctx, workerID, orgID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to resolve worker: %w", err)
	}
	if !w.IsActive {
		return session.SessionResponse{}, session.ErrWorkerInactive
	}

	var created session.ClockSession
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		_, err := s.sessionRepo.GetOpenByWorker(txCtx, workerID)
		if err == nil {
			return session.ErrDuplicateOpenSession
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("failed to check for open session: %w", err)
		}

		data := session.ClockSession{
			ID:               uuid.Must(uuid.NewV7()).String(),
			OrgID:            orgID,
			WorkerID:         workerID,
			JobID:            req.JobID,
			ClockIn:          time.Now().UTC(),
			Origin:           session.OriginInteractive,
			OvertimeStatus:   session.OvertimeNone,
			ClockInLatitude:  req.Latitude,
			ClockInLongitude: req.Longitude,
			ClockInProofURL:  req.ProofURL,
		}

		created, err = s.sessionRepo.Create(txCtx, data)
		return err
	})
	if err != nil {
		return session.SessionResponse{}, err
	}

	return session.NewSessionResponse(created), nil
}

// ClockOut implements Service. A manual override turns the close into a
// manually-entered day: the operator-supplied duration wins over the live
// timestamps and the day must not already hold another session.
func (s *SessionServiceImpl) ClockOut(ctx context.Context, req session.ClockOutRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}

	orgID, workerID, role, err := getClaimsFromContext(ctx)
	if err != nil {
		return session.SessionResponse{}, err
	}

	var closed session.ClockSession
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		sess, err := s.sessionRepo.GetByID(txCtx, req.SessionID, orgID)
		if err != nil {
			return err
		}
		if sess.WorkerID != workerID && role != jwt.RoleManager {
			return session.ErrUnauthorized
		}
		if !sess.IsOpen() {
			return session.ErrSessionAlreadyClosed
		}

		at := time.Now().UTC()
		if req.At != nil {
			at = req.At.UTC()
		}

		var clockOut time.Time
		var durationMinutes int
		origin := sess.Origin

		if req.OverrideHours != nil {
			hasOther, err := s.sessionRepo.HasOtherSessionOnDate(txCtx, sess.WorkerID, sess.ClockIn, sess.ID)
			if err != nil {
				return err
			}
			if hasOther {
				return session.ErrDuplicateDayEntry
			}
			durationMinutes = int(req.OverrideHours.Mul(decimal.NewFromInt(60)).IntPart())
			clockOut = sess.ClockIn.Add(time.Duration(durationMinutes) * time.Minute)
			origin = session.OriginManual
		} else {
			if !at.After(sess.ClockIn) {
				return session.ErrInvalidTimeRange
			}
			clockOut = at
			durationMinutes = int(at.Sub(sess.ClockIn).Minutes())
		}

		ok, err := s.sessionRepo.Close(txCtx, sess.ID, clockOut, durationMinutes, origin, session.CloseEvidence{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			ProofURL:  req.ProofURL,
		})
		if err != nil {
			return err
		}
		if !ok {
			return session.ErrSessionAlreadyClosed
		}

		sess.ClockOut = &clockOut
		sess.DurationMinutes = &durationMinutes
		sess.Origin = origin
		closed = sess
		return nil
	})
	if err != nil {
		return session.SessionResponse{}, err
	}

	return session.NewSessionResponse(closed), nil
}

// GetMySessions implements Service.
func (s *SessionServiceImpl) GetMySessions(ctx context.Context, filter session.Filter) ([]session.SessionResponse, int64, error) {
	orgID, workerID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	sessions, total, err := s.sessionRepo.ListMySessions(ctx, workerID, filter, orgID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list my sessions: %w", err)
	}

	return toResponses(sessions), total, nil
}

// ListSessions implements Service.
func (s *SessionServiceImpl) ListSessions(ctx context.Context, filter session.Filter) ([]session.SessionResponse, int64, error) {
	orgID, _, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	sessions, total, err := s.sessionRepo.List(ctx, filter, orgID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return toResponses(sessions), total, nil
}

func toResponses(sessions []session.ClockSession) []session.SessionResponse {
	responses := make([]session.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, session.NewSessionResponse(s))
	}
	return responses
}
