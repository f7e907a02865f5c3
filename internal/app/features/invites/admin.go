// internal/app/features/invites/admin.go
package invites

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	inviteservice "github.com/dalemusser/zelus/internal/app/services/invites"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type inviteInput struct {
	Email      string `validate:"required,mailaddr,max=254" label:"Email"`
	Role       string `validate:"required,oneof=org_admin fraction_owner_admin fraction_member" label:"Papel"`
	FractionID string `validate:"omitempty,objectid" label:"Fração"`
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type inviteRow struct {
	Email    string
	Role     string
	Fraction string
	Status   string
	Pending  bool
	Link     string
	Expires  string
	Created  string
}

type adminData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows      []inviteRow
	Roles     []option
	Fractions []option
	Form      inviteInput

	// Created is the link of the invite just issued, shown once after
	// the redirect.
	Created string
}

var statusLabels = map[string]string{
	models.InvitePending:  "Pendente",
	models.InviteAccepted: "Aceite",
	models.InviteExpired:  "Expirado",
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, data adminData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		list      []models.Invite
		fractions []models.Fraction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		list, err = h.Invites.List(gctx, oc.OrgID())
		return err
	})
	g.Go(func() (err error) {
		fractions, err = h.Fractions.ListByOrg(gctx, oc.OrgID())
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "list invites", err, "Não foi possível carregar os convites.", "/dashboard")
		return
	}

	labels := make(map[primitive.ObjectID]string, len(fractions))
	for _, f := range fractions {
		labels[f.ID] = f.Label
		data.Fractions = append(data.Fractions, option{Value: f.ID.Hex(), Label: f.Label, Selected: f.ID.Hex() == data.Form.FractionID})
	}
	for _, role := range []string{models.FractionRoleMember, models.FractionRoleOwnerAdmin, models.InviteRoleOrgAdmin} {
		data.Roles = append(data.Roles, option{Value: role, Label: roleLabel(role), Selected: role == data.Form.Role})
	}
	for _, inv := range list {
		row := inviteRow{
			Email:   inv.Email,
			Role:    roleLabel(inv.Role),
			Status:  statusLabels[inv.Status],
			Pending: inv.Status == models.InvitePending,
			Expires: humanize.Time(inv.ExpiresAt),
			Created: humanize.Time(inv.CreatedAt),
		}
		if inv.FractionID != nil {
			row.Fraction = labels[*inv.FractionID]
		}
		if row.Pending {
			row.Link = h.link(inv.Token)
		}
		data.Rows = append(data.Rows, row)
	}

	data.BaseVM = viewdata.NewBaseVM(r, "Convites", "/dashboard")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "invites_admin", data)
}

// ServeAdmin lists the organization's invites with the form to send one.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	data := adminData{Form: inviteInput{Role: models.FractionRoleMember}}
	if tok := r.URL.Query().Get("created"); tok != "" {
		data.Created = h.link(tok)
	}
	h.renderAdmin(w, r, http.StatusOK, data)
}

// HandleCreate issues an invite and shows its link.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/admin/invites")
		return
	}

	in := inviteInput{
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Role:       strings.TrimSpace(r.PostFormValue("role")),
		FractionID: strings.TrimSpace(r.PostFormValue("fraction")),
	}
	if res := inputval.Validate(in); res.HasErrors() {
		data := adminData{Form: in}
		data.SetResult(res)
		h.renderAdmin(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	create := inviteservice.CreateInput{Email: in.Email, Role: in.Role}
	if in.FractionID != "" {
		fid, _ := primitive.ObjectIDFromHex(in.FractionID)
		create.FractionID = &fid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Invites.Create(ctx, oc.OrgID(), oc.UserID(), create)
	if err != nil {
		var field, msg string
		switch {
		case errors.Is(err, inviteservice.ErrFractionRequired):
			field, msg = "FractionID", "Escolha a fração do convidado."
		case errors.Is(err, inviteservice.ErrUnknownFraction):
			field, msg = "FractionID", "A fração não pertence a este condomínio."
		case errors.Is(err, inviteservice.ErrInvalidRole):
			field, msg = "Role", "Papel desconhecido."
		default:
			h.ErrLog.LogServerError(w, r, "create invite", err, "Não foi possível criar o convite.", "/admin/invites")
			return
		}
		data := adminData{Form: in}
		data.SetField(field, msg)
		data.SetError(msg)
		h.renderAdmin(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	h.Log.Info("invite created",
		zap.String("org_id", oc.OrgID().Hex()),
		zap.String("invite_id", inv.ID.Hex()),
		zap.String("role", inv.Role))
	http.Redirect(w, r, "/admin/invites?created="+inv.Token, http.StatusSeeOther)
}
