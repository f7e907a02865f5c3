// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
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

type Handler struct {
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	ErrLog        *uierrors.ErrorLogger
	AuditLog      *auditlog.Logger
	Users         *userstore.Store
	GoogleEnabled bool
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Log:           logger,
		SessionMgr:    sessionMgr,
		ErrLog:        errLog,
		AuditLog:      audit,
		Users:         userstore.New(db),
		GoogleEnabled: googleEnabled,
	}
}

type registerInput struct {
	Name     string `validate:"required,max=100" label:"Nome"`
	Email    string `validate:"required,mailaddr,max=254" label:"Email"`
	Password string `validate:"required,max=128" label:"Palavra-passe"`
}

type formData struct {
	viewdata.BaseVM
	formutil.Errors
	Name          string
	Email         string
	PasswordRules string
	GoogleEnabled bool
}

func (h *Handler) newForm(r *http.Request) formData {
	return formData{
		BaseVM:        viewdata.NewBaseVM(r, "Criar conta", "/"),
		PasswordRules: authutil.PasswordRules(),
		GoogleEnabled: h.GoogleEnabled,
	}
}

// ServeRegister renders the sign-up form (GET /register).
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "register", h.newForm(r))
}

// HandleRegister creates a password account, signs it in and sends the new
// user to onboarding (POST /register).
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/register")
		return
	}

	in := registerInput{
		Name:     normalize.Name(r.FormValue("name")),
		Email:    normalize.Email(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	data := h.newForm(r)
	data.Name, data.Email = in.Name, in.Email

	res := inputval.Validate(in)
	if res.HasErrors() {
		data.SetResult(res)
	}
	if _, bad := data.Fields["Password"]; !bad && authutil.ValidatePassword(in.Password) != nil {
		data.SetField("Password", "A palavra-passe deve ter pelo menos 8 caracteres.")
		if data.Error == "" {
			data.SetError("A palavra-passe deve ter pelo menos 8 caracteres.")
		}
	}
	if data.HasErrors() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "register", data)
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Ocorreu um erro no servidor.", "/register")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{Name: in.Name, Email: in.Email, PasswordHash: &hash})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		data.SetField("Email", "Já existe uma conta com este email.")
		data.SetError("Já existe uma conta com este email.")
		w.WriteHeader(http.StatusConflict)
		templates.Render(w, r, "register", data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user failed", err, "Ocorreu um erro no servidor.", "/register")
		return
	}

	h.AuditLog.Registered(r.Context(), r, u.ID, "password")
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	if err := h.SessionMgr.SignIn(w, r, u.ID); err != nil {
		// the account exists; let the user sign in by hand
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}
