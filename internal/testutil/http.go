package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/domain/models"
)

// WithUser adds a signed-in session for user to the request context.
// This bypasses the session middleware and injects the session directly.
func WithUser(r *http.Request, user models.User) *http.Request {
	return auth.WithTestSession(r, &auth.Session{User: sessionUser(user)})
}

// WithOrg adds a signed-in session with org active, plus the OrgContext the
// access guard would have stored for role.
func WithOrg(r *http.Request, user models.User, org models.Organization, role authz.EffectiveRole) *http.Request {
	su := sessionUser(user)
	orgID := org.ID
	s := &auth.Session{User: su, ActiveOrganizationID: &orgID}
	r = auth.WithTestSession(r, s)

	orgRole := models.MemberRoleMember
	if role == authz.RoleOrgAdmin {
		orgRole = models.MemberRoleAdmin
	}
	oc := &authz.OrgContext{Session: s, User: su, Org: org, OrgRole: orgRole, Role: role}
	return r.WithContext(authz.WithOrgContext(r.Context(), oc))
}

func sessionUser(u models.User) *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// PostForm creates a form-encoded POST request.
func PostForm(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// NewHTMLRequest creates a request that accepts text/html, as a browser would.
func NewHTMLRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Accept", "text/html")
	return r
}
