// internal/app/features/invites/routes.go
package invites

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// AdminRoutes is mounted at /admin/invites.
func AdminRoutes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireSignedIn)
		r.Use(guard.OrgAdmin)
		r.Get("/", h.ServeAdmin)
		r.Post("/", h.HandleCreate)
	})
	return r
}

// Routes is mounted at /invites. Accepting needs a signed-in user but no
// active organization.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireSignedIn)
		r.Get("/{token}", h.ServeAccept)
		r.Post("/{token}", h.HandleAccept)
	})
	return r
}
