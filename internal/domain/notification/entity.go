package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeSessionAutoClosed NotificationType = "session_auto_closed"
	TypeAmendmentApproved NotificationType = "amendment_approved"
	TypeAmendmentRejected NotificationType = "amendment_rejected"
	TypeExportCompleted   NotificationType = "export_completed"
)

// Notification represents a notification entity
type Notification struct {
	ID          string
	OrgID       string
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}
