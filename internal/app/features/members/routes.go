// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the member admin screens. Typically:
// r.Mount("/admin/members", members.Routes(h, sm, guard))
func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(guard.OrgAdmin)
		pr.Get("/", h.ServeList)
		pr.Post("/{userID}/role", h.HandleSetRole)
	})

	return r
}
