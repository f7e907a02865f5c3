// internal/app/features/fractions/routes.go
package fractions

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	// any member
	r.Group(func(pr chi.Router) {
		pr.Use(guard.OrgMember)
		pr.Get("/", h.ServeList)
		pr.Post("/{id}/join", h.HandleJoin)
	})

	// org admins
	r.Group(func(pr chi.Router) {
		pr.Use(guard.OrgAdmin)
		pr.Post("/", h.HandleCreate)
		pr.Post("/requests/{id}/approve", h.HandleApprove)
		pr.Post("/requests/{id}/reject", h.HandleReject)
	})

	return r
}
