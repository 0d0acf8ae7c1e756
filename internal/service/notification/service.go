package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
)

// Config holds notification service configuration
type Config struct {
	WorkerCount int // default: 2
	QueueSize   int // default: 1000
}

// service drains a bounded queue on background workers. Enqueueing never
// blocks the caller: a full queue drops the event with a log line, since
// notifications are best-effort by contract.
type service struct {
	repo   notification.Repository
	config Config

	queue  chan notification.CreateNotificationRequest
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(repo notification.Repository, cfg Config) notification.Service {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:   repo,
		config: cfg,
		queue:  make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification service started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return s
}

// Queue implements notification.Service.
func (s *service) Queue(ctx context.Context, req notification.CreateNotificationRequest) error {
	select {
	case s.queue <- req:
		return nil
	case <-s.stopCh:
		slog.Warn("Notification dropped, service stopping", "type", req.Type, "recipient_id", req.RecipientID)
		return nil
	default:
		slog.Warn("Notification dropped, queue full", "type", req.Type, "recipient_id", req.RecipientID)
		return nil
	}
}

// worker drains the queue until Stop signals shutdown, then flushes whatever
// is still buffered before returning.
func (s *service) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			for {
				select {
				case req := <-s.queue:
					s.deliver(id, req)
				default:
					return
				}
			}
		case req := <-s.queue:
			s.deliver(id, req)
		}
	}
}

func (s *service) deliver(id int, req notification.CreateNotificationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.repo.Create(ctx, notification.Notification{
		ID:          uuid.Must(uuid.NewV7()).String(),
		OrgID:       req.OrgID,
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to persist notification", "worker", id, "type", req.Type, "error", err)
	}
}

// Stop implements notification.Service. It stops accepting new events and
// waits for the workers to drain what was already queued. The queue channel
// is never closed, so a Queue racing shutdown takes the stopCh branch instead
// of panicking on a closed channel.
func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("Notification service stopped")
}
