package notification

import (
	"context"
)

// Service dispatches notifications best-effort. Failures are logged, never
// propagated into the transaction that raised the event.
type Service interface {
	// Queue notification (async processing via background workers)
	Queue(ctx context.Context, req CreateNotificationRequest) error

	// Lifecycle
	Stop()
}

// Repository persists dispatched notifications.
type Repository interface {
	Create(ctx context.Context, n Notification) (Notification, error)
}

// CreateNotificationRequest is one queued event.
type CreateNotificationRequest struct {
	OrgID       string
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
}
