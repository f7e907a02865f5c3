// internal/domain/models/fraction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fraction is a unit (apartment, shop, garage) inside an organization.
type Fraction struct {
	ID          primitive.ObjectID `bson:"_id"`
	OrgID       primitive.ObjectID `bson:"org_id"`
	Label       string             `bson:"label"`
	LabelCI     string             `bson:"label_ci"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// UserFraction links a user to a fraction. Only rows with Status approved
// grant access.
type UserFraction struct {
	ID         primitive.ObjectID  `bson:"_id"`
	OrgID      primitive.ObjectID  `bson:"org_id"`
	UserID     primitive.ObjectID  `bson:"user_id"`
	FractionID primitive.ObjectID  `bson:"fraction_id"`
	Role       string              `bson:"role"`   // fraction_owner_admin | fraction_member
	Status     string              `bson:"status"` // pending | approved | rejected
	InvitedBy  *primitive.ObjectID `bson:"invited_by,omitempty"`
	CreatedAt  time.Time           `bson:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at"`
}

// Fraction-scoped roles.
const (
	FractionRoleOwnerAdmin = "fraction_owner_admin"
	FractionRoleMember     = "fraction_member"
)

// UserFraction approval states.
const (
	UserFractionPending  = "pending"
	UserFractionApproved = "approved"
	UserFractionRejected = "rejected"
)

// IsValidFractionRole reports whether role is a fraction-scoped role.
func IsValidFractionRole(role string) bool {
	return role == FractionRoleOwnerAdmin || role == FractionRoleMember
}
