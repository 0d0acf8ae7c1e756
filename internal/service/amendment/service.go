package amendment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/config"
	"github.com/shiftline/timeclock-backend-go/internal/domain/amendment"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/shiftline/timeclock-backend-go/internal/domain/session"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
)

// Service is the amendment approval workflow. Requested changes never touch
// the session until a manager approves them; approval writes an immutable
// history snapshot in the same transaction as the session update.
type Service interface {
	RequestAmendment(ctx context.Context, req amendment.RequestAmendmentRequest) (amendment.AmendmentResponse, error)
	ApproveAmendment(ctx context.Context, req amendment.ProcessAmendmentRequest) (amendment.AmendmentResponse, error)
	RejectAmendment(ctx context.Context, req amendment.ProcessAmendmentRequest) (amendment.AmendmentResponse, error)
	ListPendingAmendments(ctx context.Context, page, limit int) ([]amendment.AmendmentResponse, int64, error)
	GetMyAmendments(ctx context.Context, page, limit int) ([]amendment.AmendmentResponse, int64, error)
	GetSessionHistory(ctx context.Context, sessionID string) ([]amendment.HistoryEntryResponse, error)
}

type AmendmentServiceImpl struct {
	db            database.TxManager
	amendmentRepo amendment.Repository
	historyRepo   amendment.HistoryRepository
	sessionRepo   session.Repository
	notifier      notification.Service
	cfg           config.AmendmentConfig
}

func NewAmendmentService(
	db database.TxManager,
	amendmentRepo amendment.Repository,
	historyRepo amendment.HistoryRepository,
	sessionRepo session.Repository,
	notifier notification.Service,
	cfg config.AmendmentConfig,
) Service {
	return &AmendmentServiceImpl{
		db:            db,
		amendmentRepo: amendmentRepo,
		historyRepo:   historyRepo,
		sessionRepo:   sessionRepo,
		notifier:      notifier,
		cfg:           cfg,
	}
}

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

// RequestAmendment implements Service. Only closed sessions can be amended,
// one pending amendment per session, and a rejected amendment starts the
// resubmission cooldown.
func (s *AmendmentServiceImpl) RequestAmendment(ctx context.Context, req amendment.RequestAmendmentRequest) (amendment.AmendmentResponse, error) {
	if err := req.Validate(); err != nil {
		return amendment.AmendmentResponse{}, err
	}

	orgID, workerID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	var created amendment.Amendment
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		sess, err := s.sessionRepo.GetByID(txCtx, req.SessionID, orgID)
		if err != nil {
			return err
		}
		if sess.WorkerID != workerID {
			return amendment.ErrUnauthorized
		}
		if sess.IsOpen() {
			return amendment.ErrSessionNotClosed
		}

		if s.cfg.ResubmitCooldown > 0 {
			rejectedAt, err := s.amendmentRepo.LatestRejectedAt(txCtx, sess.ID)
			if err != nil {
				return err
			}
			if rejectedAt != nil && time.Now().UTC().Sub(rejectedAt.UTC()) < s.cfg.ResubmitCooldown {
				return amendment.ErrResubmitCooldown
			}
		}

		// The partial unique index on pending amendments backs this insert up
		// against a concurrent request on the same session.
		created, err = s.amendmentRepo.Create(txCtx, amendment.Amendment{
			ID:          uuid.Must(uuid.NewV7()).String(),
			SessionID:   sess.ID,
			OrgID:       orgID,
			WorkerID:    workerID,
			NewClockIn:  req.NewClockIn,
			NewClockOut: req.NewClockOut,
			Reason:      req.Reason,
			Status:      amendment.StatusPending,
		})
		return err
	})
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	return amendment.NewAmendmentResponse(created), nil
}

// ApproveAmendment implements Service. The status flip, the history snapshot
// and the session rewrite commit atomically; a second approver loses the
// conditional update and gets ErrAlreadyProcessed.
func (s *AmendmentServiceImpl) ApproveAmendment(ctx context.Context, req amendment.ProcessAmendmentRequest) (amendment.AmendmentResponse, error) {
	if err := req.Validate(); err != nil {
		return amendment.AmendmentResponse{}, err
	}

	orgID, approverID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	var processed amendment.Amendment
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		a, err := s.amendmentRepo.GetByID(txCtx, req.AmendmentID, orgID)
		if err != nil {
			return err
		}

		sess, err := s.sessionRepo.GetByID(txCtx, a.SessionID, orgID)
		if err != nil {
			return err
		}
		if sess.IsOpen() {
			return amendment.ErrSessionNotClosed
		}

		newClockIn := sess.ClockIn
		if a.NewClockIn != nil {
			newClockIn = a.NewClockIn.UTC()
		}
		newClockOut := *sess.ClockOut
		if a.NewClockOut != nil {
			newClockOut = a.NewClockOut.UTC()
		}
		if !newClockOut.After(newClockIn) {
			return amendment.ErrInvalidAmendedRange
		}
		newDuration := int(newClockOut.Sub(newClockIn).Minutes())

		now := time.Now().UTC()
		ok, err := s.amendmentRepo.MarkProcessed(txCtx, a.ID, amendment.StatusApproved, approverID, req.ApproverNotes, now)
		if err != nil {
			return err
		}
		if !ok {
			return amendment.ErrAlreadyProcessed
		}

		amendmentID := a.ID
		if _, err := s.historyRepo.Create(txCtx, amendment.HistoryEntry{
			ID:              uuid.Must(uuid.NewV7()).String(),
			SessionID:       sess.ID,
			AmendmentID:     &amendmentID,
			OldClockIn:      sess.ClockIn,
			OldClockOut:     sess.ClockOut,
			OldDurationMins: sess.DurationMinutes,
			NewClockIn:      newClockIn,
			NewClockOut:     &newClockOut,
			NewDurationMins: &newDuration,
			ChangedBy:       approverID,
			ChangedAt:       now,
		}); err != nil {
			return err
		}

		if err := s.sessionRepo.ApplyAmendedTimes(txCtx, sess.ID, newClockIn, newClockOut, newDuration); err != nil {
			return err
		}

		a.Status = amendment.StatusApproved
		a.ApproverID = &approverID
		a.ApproverNotes = req.ApproverNotes
		a.ProcessedAt = &now
		processed = a
		return nil
	})
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	s.notifyProcessed(ctx, processed, notification.TypeAmendmentApproved,
		"Amendment approved", "Your time amendment was approved and the session has been updated.")

	return amendment.NewAmendmentResponse(processed), nil
}

// RejectAmendment implements Service. Rejection leaves the session untouched.
func (s *AmendmentServiceImpl) RejectAmendment(ctx context.Context, req amendment.ProcessAmendmentRequest) (amendment.AmendmentResponse, error) {
	if err := req.ValidateForReject(); err != nil {
		return amendment.AmendmentResponse{}, err
	}

	orgID, approverID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	var processed amendment.Amendment
	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		a, err := s.amendmentRepo.GetByID(txCtx, req.AmendmentID, orgID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		ok, err := s.amendmentRepo.MarkProcessed(txCtx, a.ID, amendment.StatusRejected, approverID, req.ApproverNotes, now)
		if err != nil {
			return err
		}
		if !ok {
			return amendment.ErrAlreadyProcessed
		}

		a.Status = amendment.StatusRejected
		a.ApproverID = &approverID
		a.ApproverNotes = req.ApproverNotes
		a.ProcessedAt = &now
		processed = a
		return nil
	})
	if err != nil {
		return amendment.AmendmentResponse{}, err
	}

	s.notifyProcessed(ctx, processed, notification.TypeAmendmentRejected,
		"Amendment rejected", "Your time amendment was rejected. The session keeps its original times.")

	return amendment.NewAmendmentResponse(processed), nil
}

// ListPendingAmendments implements Service.
func (s *AmendmentServiceImpl) ListPendingAmendments(ctx context.Context, page, limit int) ([]amendment.AmendmentResponse, int64, error) {
	orgID, _, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	amendments, total, err := s.amendmentRepo.ListPending(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending amendments: %w", err)
	}

	return toResponses(amendments), total, nil
}

// GetMyAmendments implements Service.
func (s *AmendmentServiceImpl) GetMyAmendments(ctx context.Context, page, limit int) ([]amendment.AmendmentResponse, int64, error) {
	orgID, workerID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	amendments, total, err := s.amendmentRepo.ListByWorker(ctx, workerID, orgID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list amendments: %w", err)
	}

	return toResponses(amendments), total, nil
}

// GetSessionHistory implements Service. Workers may only read history of
// their own sessions; managers may read any session in the organization.
func (s *AmendmentServiceImpl) GetSessionHistory(ctx context.Context, sessionID string) ([]amendment.HistoryEntryResponse, error) {
	orgID, workerID, role, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessionRepo.GetByID(ctx, sessionID, orgID)
	if err != nil {
		return nil, err
	}
	if sess.WorkerID != workerID && role != jwt.RoleManager {
		return nil, amendment.ErrUnauthorized
	}

	entries, err := s.historyRepo.ListBySession(ctx, sessionID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}

	responses := make([]amendment.HistoryEntryResponse, 0, len(entries))
	for _, h := range entries {
		responses = append(responses, amendment.NewHistoryEntryResponse(h))
	}
	return responses, nil
}

func (s *AmendmentServiceImpl) notifyProcessed(ctx context.Context, a amendment.Amendment, typ notification.NotificationType, title, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Queue(ctx, notification.CreateNotificationRequest{
		OrgID:       a.OrgID,
		RecipientID: a.WorkerID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Data:        map[string]interface{}{"amendment_id": a.ID, "session_id": a.SessionID},
	})
	if err != nil {
		slog.Warn("Failed to queue amendment notification", "amendment_id", a.ID, "error", err)
	}
}

func toResponses(amendments []amendment.Amendment) []amendment.AmendmentResponse {
	responses := make([]amendment.AmendmentResponse, 0, len(amendments))
	for _, a := range amendments {
		responses = append(responses, amendment.NewAmendmentResponse(a))
	}
	return responses
}
