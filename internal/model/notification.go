package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies how a notification is presented.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a message addressed to one user.  Only that user may
// mark it read.
type Notification struct {
	ID        string           `json:"id"`         // notifications.id
	UserID    string           `json:"user_id"`    // notifications.user_id
	Title     string           `json:"title"`      // notifications.title
	Message   string           `json:"message"`    // notifications.message
	Type      NotificationType `json:"type"`       // notifications.type
	IsRead    bool             `json:"is_read"`    // notifications.is_read
	ReadAt    *time.Time       `json:"read_at"`    // notifications.read_at (nullable)
	CreatedAt time.Time        `json:"created_at"` // notifications.created_at
}

// NewNotification returns an unread notification for userID.
func NewNotification(userID, title, message string, typ NotificationType, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: now,
	}
}
