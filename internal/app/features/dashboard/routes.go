// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard under whatever mount point the top-level
// router chooses (e.g., "/dashboard"). Users without an active organization
// are sent to onboarding by the guard.
func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(guard.OrgMember)
		pr.Get("/", h.ServeDashboard)
	})

	return r
}
