// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit viewer (typically at "/admin/audit"). Only org
// admins see it, and only for their active organization.
func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(guard.OrgAdmin)

		pr.Get("/", h.ServeList)
	})

	return r
}
