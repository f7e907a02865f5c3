// internal/app/system/authz/guard.go
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// OrgLookup loads an organization. A missing organization is reported as
// mongo.ErrNoDocuments.
type OrgLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
}

// OrgContext is what a passing org-level check hands to the handler.
type OrgContext struct {
	Session *auth.Session
	User    *auth.SessionUser
	Org     models.Organization
	OrgRole string
	Role    EffectiveRole
}

func (oc *OrgContext) OrgID() primitive.ObjectID  { return oc.Org.ID }
func (oc *OrgContext) UserID() primitive.ObjectID { return oc.User.ID }

// IsOrgAdmin reports whether the effective role is org_admin.
func (oc *OrgContext) IsOrgAdmin() bool { return oc.Role == RoleOrgAdmin }

// HasAnyRole reports whether the effective role is one of roles.
func (oc *OrgContext) HasAnyRole(roles ...EffectiveRole) bool {
	for _, r := range roles {
		if oc.Role == r {
			return true
		}
	}
	return false
}

// Guard runs the escalating access checks. Every check takes the session
// explicitly; nothing is read from globals.
type Guard struct {
	resolver  *Resolver
	orgs      OrgLookup
	log       *zap.Logger
	forbidden http.HandlerFunc
}

func NewGuard(resolver *Resolver, orgs OrgLookup, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolver: resolver, orgs: orgs, log: logger}
}

// SetForbiddenHandler sets the page rendered for ErrForbidden on browser
// requests. It must write status 403.
func (g *Guard) SetForbiddenHandler(h http.HandlerFunc) { g.forbidden = h }

// RequireAuth fails with ErrUnauthenticated when there is no signed-in user.
func (g *Guard) RequireAuth(s *auth.Session) (*auth.Session, error) {
	if s == nil || s.User == nil {
		return nil, ErrUnauthenticated
	}
	return s, nil
}

// RequireOrgMember requires a signed-in user with an active organization
// they belong to. A missing active org, a missing Member row and a missing
// Organization all fail with ErrNoActiveOrg.
func (g *Guard) RequireOrgMember(ctx context.Context, s *auth.Session) (*OrgContext, error) {
	s, err := g.RequireAuth(s)
	if err != nil {
		return nil, err
	}
	if s.ActiveOrganizationID == nil || s.ActiveOrganizationID.IsZero() {
		return nil, ErrNoActiveOrg
	}
	orgID := *s.ActiveOrganizationID

	member, role, err := g.resolver.Resolve(ctx, s.User.ID, orgID)
	if errors.Is(err, ErrNotAMember) {
		return nil, ErrNoActiveOrg
	}
	if err != nil {
		return nil, err
	}

	org, err := g.orgs.GetByID(ctx, orgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoActiveOrg
	}
	if err != nil {
		return nil, fmt.Errorf("lookup organization: %w", err)
	}

	return &OrgContext{
		Session: s,
		User:    s.User,
		Org:     org,
		OrgRole: member.Role,
		Role:    role,
	}, nil
}

// RequireOrgAdmin requires the org_admin effective role.
func (g *Guard) RequireOrgAdmin(ctx context.Context, s *auth.Session) (*OrgContext, error) {
	return g.RequireRole(ctx, s, RoleOrgAdmin)
}

// RequireRole requires an effective role in allowed.
func (g *Guard) RequireRole(ctx context.Context, s *auth.Session, allowed ...EffectiveRole) (*OrgContext, error) {
	oc, err := g.RequireOrgMember(ctx, s)
	if err != nil {
		return nil, err
	}
	if !oc.HasAnyRole(allowed...) {
		g.log.Debug("role check failed",
			zap.String("user_id", oc.User.ID.Hex()),
			zap.String("org_id", oc.Org.ID.Hex()),
			zap.String("role", oc.Role.String()))
		return nil, ErrForbidden
	}
	return oc, nil
}
