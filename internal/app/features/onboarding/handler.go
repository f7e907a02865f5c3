// internal/app/features/onboarding/handler.go
package onboarding

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	orgservice "github.com/dalemusser/zelus/internal/app/services/organizations"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler walks a new user through creating their first organization:
// step 1 creates it, step 2 adds fractions, step 3 activates it.
type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	SessionMgr *auth.SessionManager
	Orgs       *orgservice.Service
	Fractions  *fractionservice.Service
}

func NewHandler(orgs *orgservice.Service, fractions *fractionservice.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		SessionMgr: sessionMgr,
		Orgs:       orgs,
		Fractions:  fractions,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type pageData struct {
	viewdata.BaseVM
	formutil.Errors
	Step      int
	StepLabel string
	OrgID     string
	OrgName   string
	Name      string
	City      string
	Labels    string
	Created   int
}

type createOrgInput struct {
	Name string `validate:"required,max=120" label:"Nome do condomínio"`
	City string `validate:"required,max=80" label:"Cidade"`
}

var stepLabels = map[int]string{
	1: "Passo 1 de 3 · Dados do condomínio",
	2: "Passo 2 de 3 · Frações do edifício",
	3: "Passo 3 de 3 · Configuração concluída",
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	data.BaseVM = viewdata.NewBaseVM(r, "Configurar condomínio", "/")
	data.StepLabel = stepLabels[data.Step]
	templates.Render(w, r, "onboarding", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /onboarding                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeOnboarding shows the wizard. A user who already has an active
// organization goes to the dashboard; one with a membership but no active
// organization gets their oldest membership activated first.
func (h *Handler) ServeOnboarding(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.CurrentSession(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// steps 2 and 3 of an organization this user just created
	if orgID, ok := parseOrgID(query.Get(r, "org")); ok {
		step := 2
		if query.Get(r, "step") == "3" {
			step = 3
		}
		org, allowed, err := h.ownedOrg(ctx, orgID, s.User.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "onboarding: load org", err, "Ocorreu um erro no servidor.", "/")
			return
		}
		if allowed {
			h.render(w, r, pageData{Step: step, OrgID: orgID.Hex(), OrgName: org})
			return
		}
	}

	if s.ActiveOrganizationID != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	m, err := h.Orgs.FirstMembership(ctx, s.User.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: list memberships", err, "Ocorreu um erro no servidor.", "/")
		return
	}
	if m != nil {
		if err := h.SessionMgr.SetActiveOrganization(w, r, m.OrgID); err != nil {
			h.ErrLog.LogServerError(w, r, "onboarding: activate org", err, "Não foi possível ativar o condomínio.", "/")
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	h.render(w, r, pageData{Step: 1})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /onboarding                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleAction dispatches on the form's intent field.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/onboarding")
		return
	}

	switch r.PostFormValue("intent") {
	case "create-org":
		h.createOrg(w, r)
	case "create-fractions":
		h.createFractions(w, r)
	case "finish":
		h.finish(w, r)
	default:
		w.WriteHeader(http.StatusBadRequest)
		data := pageData{Step: 1}
		data.SetError("Ação desconhecida.")
		h.render(w, r, data)
	}
}

func (h *Handler) createOrg(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.CurrentSession(r)
	in := createOrgInput{
		Name: strings.TrimSpace(r.PostFormValue("name")),
		City: strings.TrimSpace(r.PostFormValue("city")),
	}
	data := pageData{Step: 1, Name: in.Name, City: in.City}

	if res := inputval.Validate(in); res.HasErrors() {
		data.SetResult(res)
		w.WriteHeader(http.StatusUnprocessableEntity)
		h.render(w, r, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.Create(ctx, in.Name, in.City, s.User.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: create org", err, "Erro ao criar organização.", "/onboarding")
		return
	}
	h.Log.Info("organization created", zap.String("org_id", org.ID.Hex()), zap.String("user_id", s.User.ID.Hex()))

	http.Redirect(w, r, "/onboarding?step=2&org="+org.ID.Hex(), http.StatusSeeOther)
}

func (h *Handler) createFractions(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.CurrentSession(r)
	orgID, ok := parseOrgID(r.PostFormValue("orgId"))
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "onboarding: bad org id", nil, "Condomínio inválido.", "/onboarding")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, allowed, err := h.ownedOrg(ctx, orgID, s.User.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: load org", err, "Ocorreu um erro no servidor.", "/onboarding")
		return
	} else if !allowed {
		h.ErrLog.LogForbidden(w, r, "onboarding: not an admin", nil, "Não pode configurar este condomínio.", "/onboarding")
		return
	}

	// labels come as repeated "label" fields or one per line in "labels"
	labels := r.PostForm["label"]
	labels = append(labels, strings.Split(r.PostFormValue("labels"), "\n")...)

	created, err := h.Fractions.CreateMany(ctx, orgID, labels, s.User.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: create fractions", err, "Não foi possível criar as frações.", "/onboarding")
		return
	}
	h.Log.Debug("fractions created", zap.String("org_id", orgID.Hex()), zap.Int("count", len(created)))

	http.Redirect(w, r, "/onboarding?step=3&org="+orgID.Hex(), http.StatusSeeOther)
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.CurrentSession(r)
	orgID, ok := parseOrgID(r.PostFormValue("orgId"))
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "onboarding: bad org id", nil, "Condomínio inválido.", "/onboarding")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Orgs.Membership(ctx, orgID, s.User.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: load membership", err, "Ocorreu um erro no servidor.", "/onboarding")
		return
	}
	if m == nil {
		h.ErrLog.LogForbidden(w, r, "onboarding: not a member", nil, "Não pertence a este condomínio.", "/onboarding")
		return
	}

	if err := h.SessionMgr.SetActiveOrganization(w, r, orgID); err != nil {
		h.ErrLog.LogServerError(w, r, "onboarding: activate org", err, "Não foi possível ativar o condomínio.", "/onboarding")
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ownedOrg returns the organization's name when userID administers it.
func (h *Handler) ownedOrg(ctx context.Context, orgID, userID primitive.ObjectID) (string, bool, error) {
	ok, err := h.Orgs.IsAdmin(ctx, orgID, userID)
	if err != nil || !ok {
		return "", false, err
	}
	org, err := h.Orgs.Get(ctx, orgID)
	if err != nil {
		return "", false, err
	}
	if org == nil {
		return "", false, nil
	}
	return org.Name, true, nil
}

func parseOrgID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

