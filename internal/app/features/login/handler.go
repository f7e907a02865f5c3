// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authutil"
	"github.com/dalemusser/zelus/internal/app/system/metrics"
	"github.com/dalemusser/zelus/internal/app/system/normalize"
	"github.com/dalemusser/zelus/internal/app/system/ratelimit"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	ErrLog        *uierrors.ErrorLogger
	AuditLog      *auditlog.Logger
	Users         *userstore.Store
	Limiter       *ratelimit.LoginLimiter
	GoogleEnabled bool // True if Google OAuth is configured
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:           logger,
		SessionMgr:    sessionMgr,
		ErrLog:        errLog,
		AuditLog:      audit,
		Users:         userstore.New(db),
		Limiter:       limiter,
		GoogleEnabled: googleEnabled,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

// callbackErrors maps the ?error= codes set by the Google callback.
var callbackErrors = map[string]string{
	"google_not_configured": "O início de sessão com Google não está disponível.",
	"google_denied":         "O início de sessão com Google foi cancelado.",
	"invalid_state":         "O pedido de início de sessão expirou. Tente novamente.",
	"email_unverified":      "A sua conta Google não tem o email verificado.",
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(query.Get(r, "return"), "", "/dashboard"), http.StatusSeeOther)
		return
	}

	msg := ""
	if code := query.Get(r, "error"); code != "" {
		msg = callbackErrors[code]
		if msg == "" {
			msg = "Não foi possível iniciar sessão. Tente novamente."
		}
	}

	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Entrar", "/"),
		Error:         msg,
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/login")
		return
	}

	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("password")
	ret := strings.TrimSpace(r.FormValue("return"))

	if email == "" || password == "" {
		h.renderFormWithError(w, r, "Indique o email e a palavra-passe.", email, ret)
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, email, "rate_limited")
			metrics.Logins.WithLabelValues("password", "false").Inc()
			w.WriteHeader(http.StatusTooManyRequests)
			h.renderFormWithError(w, r, msg, email, ret)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		h.fail(w, r, email, ret, "user_not_found")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "DB find user", err, "Ocorreu um erro no servidor.", "/login")
		return
	}

	if !authutil.CheckPassword(u.PasswordHash, password) {
		reason := "bad_password"
		if u.PasswordHash == nil {
			reason = "no_password"
		}
		h.fail(w, r, email, ret, reason)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.renderFormWithError(w, r, "Não foi possível criar a sessão. Tente novamente.", email, ret)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, "password")
	metrics.Logins.WithLabelValues("password", "true").Inc()

	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
}

// fail records a rejected attempt and shows one message for every cause so
// the form does not reveal which emails have accounts.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, email, ret, reason string) {
	h.AuditLog.LoginFailed(r.Context(), r, email, reason)
	metrics.Logins.WithLabelValues("password", "false").Inc()
	h.renderFormWithError(w, r, "Email ou palavra-passe incorretos.", email, ret)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, email, ret string) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Entrar", "/"),
		Error:         msg,
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	})
}
