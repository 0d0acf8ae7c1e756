package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/shiftline/timeclock-backend-go/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	created []notification.Notification
}

func (f *fakeRepo) Create(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func TestStopDrainsQueuedNotifications(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, Config{WorkerCount: 2, QueueSize: 100})

	for i := 0; i < 50; i++ {
		err := svc.Queue(context.Background(), notification.CreateNotificationRequest{
			RecipientID: "worker-1",
			Type:        notification.TypeSessionAutoClosed,
			Title:       "Session closed",
		})
		require.NoError(t, err)
	}

	svc.Stop()
	assert.Equal(t, 50, repo.count(), "everything queued before Stop is delivered")
}

func TestQueueDuringStopDoesNotPanic(t *testing.T) {
	for i := 0; i < 200; i++ {
		svc := NewNotificationService(&fakeRepo{}, Config{WorkerCount: 1, QueueSize: 4})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				_ = svc.Queue(context.Background(), notification.CreateNotificationRequest{
					RecipientID: "worker-1",
					Type:        notification.TypeExportCompleted,
				})
			}
		}()

		svc.Stop()
		<-done
	}
}

func TestQueueAfterStopReturnsNil(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, Config{WorkerCount: 1, QueueSize: 10})
	svc.Stop()

	err := svc.Queue(context.Background(), notification.CreateNotificationRequest{
		RecipientID: "worker-1",
		Type:        notification.TypeAmendmentApproved,
	})
	assert.NoError(t, err, "enqueueing stays best-effort after shutdown")
}
