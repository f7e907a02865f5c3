// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
)

// pageData is the basic view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Status  int
	Heading string
	Message string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden, and the access guard's 403 page.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "", "")
}

// NotFound renders the 404 page. It is installed as the router's NotFound.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r, "")
}

// RenderForbidden shows the access error page with msg. If backURL is empty
// it resolves a safe back URL with a default fallback.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "Não tem permissão para ver esta página."
	}
	render(w, r, http.StatusForbidden, "Acesso negado", msg, backURL)
}

// RenderNotFound shows the "not found" page.
func RenderNotFound(w http.ResponseWriter, r *http.Request, backURL string) {
	render(w, r, http.StatusNotFound, "Página não encontrada",
		"O que procura não existe ou já não está disponível.", backURL)
}

func render(w http.ResponseWriter, r *http.Request, status int, heading, msg, backURL string) {
	if backURL == "" {
		backURL = httpnav.ResolveBackURL(r, "/")
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, heading, backURL),
		Status:  status,
		Heading: heading,
		Message: msg,
	}
	data.BackURL = backURL

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}
