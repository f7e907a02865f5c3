// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite lets an org admin bring someone into the organization, either as an
// org admin or attached to a fraction.
type Invite struct {
	ID         primitive.ObjectID  `bson:"_id"`
	OrgID      primitive.ObjectID  `bson:"org_id"`
	FractionID *primitive.ObjectID `bson:"fraction_id,omitempty"`
	Email      string              `bson:"email"`
	EmailCI    string              `bson:"email_ci"`
	Type       string              `bson:"type"` // org | fraction
	Role       string              `bson:"role"` // org_admin | fraction_owner_admin | fraction_member
	Token      string              `bson:"token"`
	Status     string              `bson:"status"` // pending | accepted | expired
	InvitedBy  primitive.ObjectID  `bson:"invited_by"`
	ExpiresAt  time.Time           `bson:"expires_at"`
	AcceptedAt *time.Time          `bson:"accepted_at,omitempty"`
	CreatedAt  time.Time           `bson:"created_at"`
}

// Invite kinds and states.
const (
	InviteTypeOrg      = "org"
	InviteTypeFraction = "fraction"

	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteExpired  = "expired"
)

// InviteRoleOrgAdmin invites someone as an organization administrator. The
// other invite roles are the fraction roles.
const InviteRoleOrgAdmin = "org_admin"

// IsValidInviteRole reports whether role may be offered in an invite.
func IsValidInviteRole(role string) bool {
	return role == InviteRoleOrgAdmin || IsValidFractionRole(role)
}
