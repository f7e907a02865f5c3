// internal/app/features/categories/routes.go
package categories

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /admin/categories and is limited to org admins.
func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(guard.OrgAdmin)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/{id}/delete", h.HandleDelete)
	return r
}
