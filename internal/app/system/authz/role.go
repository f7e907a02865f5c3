// internal/app/system/authz/role.go
package authz

import (
	"github.com/dalemusser/zelus/internal/domain/models"
)

// EffectiveRole is the single role used for every authorization decision in
// a request. It is derived per (user, organization) and never stored.
type EffectiveRole string

const (
	RoleOrgAdmin           EffectiveRole = "org_admin"
	RoleFractionOwnerAdmin EffectiveRole = models.FractionRoleOwnerAdmin
	RoleFractionMember     EffectiveRole = models.FractionRoleMember
)

func (r EffectiveRole) String() string { return string(r) }

// Valid reports whether r is one of the three effective roles.
func (r EffectiveRole) Valid() bool {
	switch r {
	case RoleOrgAdmin, RoleFractionOwnerAdmin, RoleFractionMember:
		return true
	}
	return false
}

// Label is the Portuguese name shown in the UI.
func (r EffectiveRole) Label() string {
	switch r {
	case RoleOrgAdmin:
		return "Administrador"
	case RoleFractionOwnerAdmin:
		return "Proprietário"
	case RoleFractionMember:
		return "Membro"
	}
	return string(r)
}

// rule inspects the membership inputs and reports a role when it applies.
type rule struct {
	name  string
	apply func(m *models.Member, uf *models.UserFraction) (EffectiveRole, bool)
}

// rules are evaluated in order; the first that applies wins. A member no
// rule applies to is a plain fraction member.
var rules = []rule{
	{
		name: "org_admin",
		apply: func(m *models.Member, _ *models.UserFraction) (EffectiveRole, bool) {
			if m.Role == models.MemberRoleOwner || m.Role == models.MemberRoleAdmin {
				return RoleOrgAdmin, true
			}
			return "", false
		},
	},
	{
		name: "approved_fraction",
		apply: func(_ *models.Member, uf *models.UserFraction) (EffectiveRole, bool) {
			if uf == nil || uf.Status != models.UserFractionApproved {
				return "", false
			}
			role := EffectiveRole(uf.Role)
			if role != RoleFractionOwnerAdmin && role != RoleFractionMember {
				return "", false
			}
			return role, true
		},
	},
}

// Decide computes the effective role from an organization membership and the
// user's approved fraction link (nil when there is none). A nil member means
// the user does not belong to the organization and yields ErrNotAMember.
func Decide(member *models.Member, uf *models.UserFraction) (EffectiveRole, error) {
	if member == nil {
		return "", ErrNotAMember
	}
	for _, r := range rules {
		if role, ok := r.apply(member, uf); ok {
			return role, nil
		}
	}
	return RoleFractionMember, nil
}

// needsFractionLookup reports whether the fraction link can change the
// outcome for member. Org admins never need it.
func needsFractionLookup(member *models.Member) bool {
	_, isAdmin := rules[0].apply(member, nil)
	return !isAdmin
}
