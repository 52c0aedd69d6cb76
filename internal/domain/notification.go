package domain

import "time"

// NotificationType classifies what a notification points at.
type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationCommentAdded  NotificationType = "comment_added"
	NotificationProjectUpdate NotificationType = "project_update"
	NotificationChatMessage   NotificationType = "chat_message"
	NotificationDeadline      NotificationType = "deadline"
)

// IsValid checks if the notification type is valid.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationCommentAdded, NotificationProjectUpdate,
		NotificationChatMessage, NotificationDeadline:
		return true
	default:
		return false
	}
}

// Notification is owned by a single user.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	ReferenceID string           `json:"reference_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (n *Notification) GetID() string { return n.ID }

func (n *Notification) SetID(id string) { n.ID = id }

// Validate validates the notification data.
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return NewValidationError("INVALID_USER", "Notification owner is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	if n.Type != "" && !n.Type.IsValid() {
		return NewValidationError("INVALID_TYPE", "Invalid notification type", map[string]interface{}{
			"field": "type",
			"value": n.Type,
		})
	}
	return nil
}
