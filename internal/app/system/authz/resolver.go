// internal/app/system/authz/resolver.go
package authz

import (
	"context"
	"fmt"

	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberLookup returns the Member row for (orgID, userID), or nil.
type MemberLookup interface {
	Get(ctx context.Context, orgID, userID primitive.ObjectID) (*models.Member, error)
}

// FractionRoleLookup returns the approved UserFraction deciding the user's
// fraction role in orgID, or nil.
type FractionRoleLookup interface {
	FindApproved(ctx context.Context, orgID, userID primitive.ObjectID) (*models.UserFraction, error)
}

// Resolver computes effective roles from the membership stores.
type Resolver struct {
	Members   MemberLookup
	Fractions FractionRoleLookup
}

func NewResolver(members MemberLookup, fractions FractionRoleLookup) *Resolver {
	return &Resolver{Members: members, Fractions: fractions}
}

// Resolve returns the Member row and the user's effective role in orgID.
// A user without a Member row gets ErrNotAMember.
func (r *Resolver) Resolve(ctx context.Context, userID, orgID primitive.ObjectID) (*models.Member, EffectiveRole, error) {
	member, err := r.Members.Get(ctx, orgID, userID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup member: %w", err)
	}
	if member == nil {
		return nil, "", ErrNotAMember
	}

	var uf *models.UserFraction
	if needsFractionLookup(member) {
		uf, err = r.Fractions.FindApproved(ctx, orgID, userID)
		if err != nil {
			return nil, "", fmt.Errorf("lookup fraction role: %w", err)
		}
	}

	role, err := Decide(member, uf)
	if err != nil {
		return nil, "", err
	}
	return member, role, nil
}

// ResolveEffectiveRole is Resolve without the Member row.
func (r *Resolver) ResolveEffectiveRole(ctx context.Context, userID, orgID primitive.ObjectID) (EffectiveRole, error) {
	_, role, err := r.Resolve(ctx, userID, orgID)
	return role, err
}
