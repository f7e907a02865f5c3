// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authutil"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/normalize"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM
	formutil.Errors

	Name  string
	Email string

	// Sign-in methods linked to the account
	HasPassword bool
	HasGoogle   bool

	PasswordRules string
	Success       string
}

type nameInput struct {
	Name string `validate:"required,max=100" label:"Nome"`
}

type passwordInput struct {
	Current string `validate:"required,max=128" label:"Palavra-passe atual"`
	New     string `validate:"required,max=128" label:"Nova palavra-passe"`
	Confirm string `validate:"required,max=128" label:"Confirmação"`
}

// loadUser returns the signed-in user's record. It writes the error response
// itself and returns nil when the page cannot be shown.
func (h *Handler) loadUser(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.User {
	su, ok := auth.CurrentUser(r)
	if !ok {
		auth.RedirectToLogin(w, r)
		return nil
	}
	u, err := h.Users.GetByID(ctx, su.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.LogNotFound(w, r, "profile user not found", "/")
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile", err, "Não foi possível carregar o perfil.", "/dashboard")
		return nil
	}
	return u
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, u *models.User, data profileData) {
	data.BaseVM = viewdata.NewBaseVM(r, "Perfil", "/dashboard")
	if data.Name == "" {
		data.Name = u.Name
	}
	data.Email = u.Email
	data.HasPassword = u.PasswordHash != nil && *u.PasswordHash != ""
	data.HasGoogle = u.GoogleID != nil && *u.GoogleID != ""
	data.PasswordRules = authutil.PasswordRules()
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "profile", data)
}

// ServeProfile renders the user's profile page (GET /profile).
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u := h.loadUser(ctx, w, r)
	if u == nil {
		return
	}

	var data profileData
	switch r.URL.Query().Get("saved") {
	case "name":
		data.Success = "Nome atualizado."
	case "password":
		data.Success = "Palavra-passe alterada."
	}
	h.render(w, r, http.StatusOK, u, data)
}

// HandleUpdateName changes the display name (POST /profile).
func (h *Handler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u := h.loadUser(ctx, w, r)
	if u == nil {
		return
	}

	in := nameInput{Name: normalize.Name(r.PostFormValue("name"))}
	if res := inputval.Validate(in); res.HasErrors() {
		data := profileData{Name: in.Name}
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, u, data)
		return
	}

	if err := h.Users.UpdateName(ctx, u.ID, in.Name); err != nil {
		h.ErrLog.LogServerError(w, r, "update name failed", err, "Não foi possível guardar o nome.", "/profile")
		return
	}
	h.Audit.ProfileUpdated(ctx, r, u.ID)

	http.Redirect(w, r, "/profile?saved=name", http.StatusSeeOther)
}

// HandleChangePassword processes the password change form
// (POST /profile/password). Accounts created through Google have no password
// to change.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u := h.loadUser(ctx, w, r)
	if u == nil {
		return
	}

	fail := func(field, msg string) {
		var data profileData
		if field == "" {
			data.SetError(msg)
		} else {
			data.SetField(field, msg)
		}
		h.render(w, r, http.StatusUnprocessableEntity, u, data)
	}

	if u.PasswordHash == nil || *u.PasswordHash == "" {
		fail("", "Esta conta entra com o Google e não tem palavra-passe.")
		return
	}

	in := passwordInput{
		Current: r.PostFormValue("current_password"),
		New:     r.PostFormValue("new_password"),
		Confirm: r.PostFormValue("confirm_password"),
	}
	if res := inputval.Validate(in); res.HasErrors() {
		var data profileData
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, u, data)
		return
	}

	switch {
	case !authutil.CheckPassword(u.PasswordHash, in.Current):
		fail("Current", "A palavra-passe atual está incorreta.")
		return
	case authutil.ValidatePassword(in.New) != nil:
		fail("New", authutil.PasswordRules())
		return
	case in.New != in.Confirm:
		fail("Confirm", "As palavras-passe não coincidem.")
		return
	case in.New == in.Current:
		fail("New", "A nova palavra-passe tem de ser diferente da atual.")
		return
	}

	hash, err := authutil.HashPassword(in.New)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Não foi possível alterar a palavra-passe.", "/profile")
		return
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "update password failed", err, "Não foi possível alterar a palavra-passe.", "/profile")
		return
	}
	h.Audit.PasswordChanged(ctx, r, u.ID)
	h.Log.Info("password changed", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, "/profile?saved=password", http.StatusSeeOther)
}
