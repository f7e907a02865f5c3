// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireSignedIn)
		r.Use(guard.OrgMember)
		r.Get("/", h.ServeList)
		r.Post("/read-all", h.HandleReadAll)
		r.Post("/{id}/read", h.HandleRead)
	})
	return r
}
