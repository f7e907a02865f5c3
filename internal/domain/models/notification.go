// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a per-user message inside an organization.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrgID     primitive.ObjectID `bson:"org_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Type      string             `bson:"type"`
	Title     string             `bson:"title"`
	Message   string             `bson:"message,omitempty"`
	Metadata  map[string]any     `bson:"metadata,omitempty"`
	ReadAt    *time.Time         `bson:"read_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Notification types.
const (
	NotificationTicketStatus  = "ticket_status"
	NotificationTicketComment = "ticket_comment"
)
