// internal/app/features/maintenance/routes.go
package maintenance

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.With(guard.OrgMember).Get("/", h.ServeList)
	r.With(guard.OrgAdmin).Post("/", h.HandleCreate)
	return r
}
