// internal/app/features/onboarding/routes.go
package onboarding

import (
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeOnboarding)
	r.Post("/", h.HandleAction)
	return r
}
