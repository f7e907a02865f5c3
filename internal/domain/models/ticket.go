// internal/domain/models/ticket.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket is an occurrence reported inside an organization. A private ticket
// is visible only to the user who created it.
type Ticket struct {
	ID          primitive.ObjectID  `bson:"_id"`
	OrgID       primitive.ObjectID  `bson:"org_id"`
	FractionID  *primitive.ObjectID `bson:"fraction_id,omitempty"`
	CategoryID  *primitive.ObjectID `bson:"category_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description,omitempty"`
	Status      string              `bson:"status"`
	Priority    *string             `bson:"priority,omitempty"`
	Private     bool                `bson:"private"`
	CreatedBy   primitive.ObjectID  `bson:"created_by"`
	CreatedAt   time.Time           `bson:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at"`
}

// TicketCategory is an org-defined label tickets can be filed under.
type TicketCategory struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrgID     primitive.ObjectID `bson:"org_id"`
	Label     string             `bson:"label"`
	LabelCI   string             `bson:"label_ci"`
	CreatedAt time.Time          `bson:"created_at"`
}

// TicketEvent records one status transition. Rows are never updated or deleted.
type TicketEvent struct {
	ID         primitive.ObjectID `bson:"_id"`
	OrgID      primitive.ObjectID `bson:"org_id"`
	TicketID   primitive.ObjectID `bson:"ticket_id"`
	UserID     primitive.ObjectID `bson:"user_id"`
	FromStatus string             `bson:"from_status"`
	ToStatus   string             `bson:"to_status"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// TicketComment is a message posted on a ticket.
type TicketComment struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrgID     primitive.ObjectID `bson:"org_id"`
	TicketID  primitive.ObjectID `bson:"ticket_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket priorities.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
	PriorityNone   = "none"
)

// TicketStatuses lists statuses in workflow order.
var TicketStatuses = []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}

// TicketPriorities lists priorities from most to least pressing.
var TicketPriorities = []string{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

var statusLabels = map[string]string{
	TicketOpen:       "Em aberto",
	TicketInProgress: "Em progresso",
	TicketResolved:   "Resolvido",
	TicketClosed:     "Fechado",
}

var priorityLabels = map[string]string{
	PriorityUrgent: "Urgente",
	PriorityHigh:   "Alta",
	PriorityMedium: "Média",
	PriorityLow:    "Baixa",
	PriorityNone:   "Sem prioridade",
}

// IsValidTicketStatus reports whether s is a known ticket status.
func IsValidTicketStatus(s string) bool {
	_, ok := statusLabels[s]
	return ok
}

// IsValidTicketPriority reports whether p is a known ticket priority.
func IsValidTicketPriority(p string) bool {
	_, ok := priorityLabels[p]
	return ok
}

// StatusLabel returns the display label for a ticket status.
func StatusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

// PriorityLabel returns the display label for a ticket priority.
func PriorityLabel(p string) string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return p
}
