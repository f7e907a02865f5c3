// internal/app/features/invites/accept.go
package invites

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	inviteservice "github.com/dalemusser/zelus/internal/app/services/invites"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type acceptData struct {
	viewdata.BaseVM

	Token     string
	OrgName   string
	Role      string
	Fraction  string
	Email     string
	Expires   string
	CanAccept bool
	Error     string
}

// describe fills the invite details shown to the invitee.
func (h *Handler) describe(ctx context.Context, inv models.Invite, data *acceptData) error {
	org, err := h.Orgs.Get(ctx, inv.OrgID)
	if err != nil {
		return err
	}
	if org != nil {
		data.OrgName = org.Name
	}
	if inv.FractionID != nil {
		f, err := h.Fractions.Get(ctx, inv.OrgID, *inv.FractionID)
		if err != nil {
			return err
		}
		if f != nil {
			data.Fraction = f.Label
		}
	}
	data.Token = inv.Token
	data.Role = roleLabel(inv.Role)
	data.Email = inv.Email
	data.Expires = inv.ExpiresAt.Local().Format("02/01/2006 15:04")
	return nil
}

// ServeAccept shows an invite to the signed-in user.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Invites.Lookup(ctx, token)
	if errors.Is(err, inviteservice.ErrNotFound) {
		h.ErrLog.LogNotFound(w, r, "invite not found", "/")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invite", err, "Não foi possível carregar o convite.", "/")
		return
	}

	data := acceptData{BaseVM: viewdata.NewBaseVM(r, "Convite", "/")}
	if err := h.describe(ctx, inv, &data); err != nil {
		h.ErrLog.LogServerError(w, r, "describe invite", err, "Não foi possível carregar o convite.", "/")
		return
	}

	status := http.StatusOK
	switch inv.Status {
	case models.InviteAccepted:
		status, data.Error = http.StatusConflict, "Este convite já foi utilizado."
	case models.InviteExpired:
		status, data.Error = http.StatusGone, "Este convite expirou. Peça um novo ao administrador."
	default:
		data.CanAccept = true
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "invites_accept", data)
}

// HandleAccept redeems the invite for the signed-in user and makes its
// organization the active one.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	token := chi.URLParam(r, "token")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Invites.Accept(ctx, token, u.ID, u.Email)
	switch {
	case err == nil:
	case errors.Is(err, inviteservice.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, "invite not found", "/")
		return
	case errors.Is(err, inviteservice.ErrEmailMismatch):
		h.ErrLog.LogForbidden(w, r, "invite email mismatch", err, "Este convite foi enviado para outro endereço de email.", "/")
		return
	case errors.Is(err, inviteservice.ErrAlreadyAccepted), errors.Is(err, inviteservice.ErrExpired):
		h.ServeAccept(w, r)
		return
	default:
		h.ErrLog.LogServerError(w, r, "accept invite", err, "Não foi possível aceitar o convite.", "/")
		return
	}

	if err := h.SessionMgr.SetActiveOrganization(w, r, inv.OrgID); err != nil {
		h.ErrLog.LogServerError(w, r, "activate invited org", err, "Não foi possível ativar o condomínio.", "/")
		return
	}
	h.Log.Info("invite accepted",
		zap.String("org_id", inv.OrgID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", inv.Role))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
