// internal/app/features/members/list.go
package members

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleInput struct {
	Role string `validate:"required,oneof=admin member" label:"Papel"`
}

// ServeList handles GET /admin/members.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

// HandleSetRole handles POST /admin/members/{userID}/role. Only admin and
// member can be assigned; the owner row and the caller's own row are fixed.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		h.ErrLog.LogNotFound(w, r, "bad member id", "/admin/members")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/admin/members")
		return
	}

	in := roleInput{Role: strings.TrimSpace(r.PostFormValue("role"))}
	if res := inputval.Validate(in); res.HasErrors() {
		var data pageData
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	from, err := h.setRole(ctx, oc, userID, in.Role)
	switch {
	case errors.Is(err, errNotMember):
		h.ErrLog.LogNotFound(w, r, "member not found", "/admin/members")
		return
	case errors.Is(err, errFixedRole):
		var data pageData
		data.SetError("O papel do proprietário e o seu próprio papel não podem ser alterados aqui.")
		h.render(w, r, http.StatusConflict, data)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "set member role", err, "Não foi possível alterar o papel.", "/admin/members")
		return
	}

	if from != in.Role {
		h.Audit.Record(ctx, oc.OrgID(), oc.UserID(), audit.ActionMemberRoleChanged, audit.EntityMember, userID,
			map[string]any{"from": from, "to": in.Role})
		h.Log.Info("member role changed",
			zap.String("org_id", oc.OrgID().Hex()),
			zap.String("user_id", userID.Hex()),
			zap.String("to", in.Role))
	}
	http.Redirect(w, r, "/admin/members", http.StatusSeeOther)
}

var (
	errNotMember = errors.New("user is not a member of the organization")
	errFixedRole = errors.New("member role cannot be changed")
)

// setRole returns the role the member had before the change.
func (h *Handler) setRole(ctx context.Context, oc *authz.OrgContext, userID primitive.ObjectID, role string) (string, error) {
	m, err := h.Members.Get(ctx, oc.OrgID(), userID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", errNotMember
	}
	if m.Role == models.MemberRoleOwner || userID == oc.UserID() {
		return m.Role, errFixedRole
	}
	if m.Role == role {
		return role, nil
	}
	if err := h.Members.SetRole(ctx, oc.OrgID(), userID, role); err != nil {
		return m.Role, err
	}
	return m.Role, nil
}
