// internal/app/system/authz/middleware.go
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/metrics"
	"go.uber.org/zap"
)

type ctxKey string

const orgCtxKey ctxKey = "orgContext"

// WithOrgContext returns ctx carrying oc.
func WithOrgContext(ctx context.Context, oc *OrgContext) context.Context {
	return context.WithValue(ctx, orgCtxKey, oc)
}

// FromRequest returns the OrgContext stored by the guard middleware.
func FromRequest(r *http.Request) (*OrgContext, bool) {
	oc, ok := r.Context().Value(orgCtxKey).(*OrgContext)
	return oc, ok && oc != nil
}

// OrgMember is chi middleware for RequireOrgMember.
func (g *Guard) OrgMember(next http.Handler) http.Handler {
	return g.middleware(next, func(ctx context.Context, s *auth.Session) (*OrgContext, error) {
		return g.RequireOrgMember(ctx, s)
	})
}

// OrgAdmin is chi middleware for RequireOrgAdmin.
func (g *Guard) OrgAdmin(next http.Handler) http.Handler {
	return g.middleware(next, func(ctx context.Context, s *auth.Session) (*OrgContext, error) {
		return g.RequireOrgAdmin(ctx, s)
	})
}

// Roles is chi middleware for RequireRole.
func (g *Guard) Roles(allowed ...EffectiveRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.middleware(next, func(ctx context.Context, s *auth.Session) (*OrgContext, error) {
			return g.RequireRole(ctx, s, allowed...)
		})
	}
}

func (g *Guard) middleware(next http.Handler, check func(context.Context, *auth.Session) (*OrgContext, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc, err := check(r.Context(), auth.FromContext(r.Context()))
		if err != nil {
			g.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOrgContext(r.Context(), oc)))
	})
}

// WriteError turns a guard failure into a response:
//
//	ErrUnauthenticated  login page (HX-Redirect, 303, or 401)
//	ErrNoActiveOrg      onboarding (HX-Redirect, 303, or 401)
//	ErrForbidden        403
//	anything else       500
func (g *Guard) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		metrics.AuthzDenied.WithLabelValues("unauthenticated").Inc()
		auth.RedirectToLogin(w, r)
	case errors.Is(err, ErrNoActiveOrg):
		metrics.AuthzDenied.WithLabelValues("no_active_org").Inc()
		redirectToOnboarding(w, r)
	case errors.Is(err, ErrForbidden):
		metrics.AuthzDenied.WithLabelValues("forbidden").Inc()
		if g.forbidden != nil && auth.WantsHTML(r) {
			g.forbidden(w, r)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		g.log.Error("access check failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func redirectToOnboarding(w http.ResponseWriter, r *http.Request) {
	dest := "/onboarding"
	if auth.IsHTMX(r) {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if auth.WantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"no_active_org"}`))
}
