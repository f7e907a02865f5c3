// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is a tenant (a condominium). Every other scoped entity carries
// its ID in an org_id field.
type Organization struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	NameCI    string             `bson:"name_ci"` // ← always stored
	Slug      string             `bson:"slug"`
	City      string             `bson:"city,omitempty"`
	CityCI    string             `bson:"city_ci,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// Member binds a user to an organization with an organization-scoped role.
// There is at most one row per (user, organization).
type Member struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrgID     primitive.ObjectID `bson:"org_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Role      string             `bson:"role"` // owner | admin | member
	CreatedAt time.Time          `bson:"created_at"`
}

// Organization-scoped member roles.
const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// IsValidMemberRole reports whether role is one of the member roles.
func IsValidMemberRole(role string) bool {
	switch role {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleMember:
		return true
	}
	return false
}
