// internal/app/features/fractions/actions.go
package fractions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createInput struct {
	Label       string `validate:"required,max=40" label:"Identificação"`
	Description string `validate:"max=200" label:"Descrição"`
}

type joinInput struct {
	Role string `validate:"required,fractionrole" label:"Papel"`
}

func urlID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// HandleCreate adds a fraction. Org admins only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/fractions")
		return
	}

	in := createInput{
		Label:       strings.TrimSpace(r.PostFormValue("label")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	if res := inputval.Validate(in); res.HasErrors() {
		data := pageData{Label: in.Label, Description: in.Description}
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, err := h.Fractions.Create(ctx, oc.OrgID(), in.Label, in.Description, oc.UserID())
	if errors.Is(err, fractionservice.ErrDuplicateLabel) {
		data := pageData{Label: in.Label, Description: in.Description}
		data.SetField("Label", "Já existe uma fração com esta identificação.")
		h.render(w, r, http.StatusConflict, data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create fraction", err, "Não foi possível criar a fração.", "/fractions")
		return
	}

	h.Log.Info("fraction created", zap.String("org_id", oc.OrgID().Hex()), zap.String("fraction_id", f.ID.Hex()))
	http.Redirect(w, r, "/fractions", http.StatusSeeOther)
}

// HandleJoin records the current user's request to join a fraction.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := urlID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad fraction id", "/fractions")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/fractions")
		return
	}

	in := joinInput{Role: strings.TrimSpace(r.PostFormValue("role"))}
	if res := inputval.Validate(in); res.HasErrors() {
		var data pageData
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uf, err := h.Fractions.RequestJoin(ctx, oc.OrgID(), id, oc.UserID(), in.Role)
	switch {
	case errors.Is(err, fractionservice.ErrUnknownFraction):
		h.ErrLog.LogNotFound(w, r, "join request for unknown fraction", "/fractions")
		return
	case errors.Is(err, fractionservice.ErrAlreadyLinked):
		var data pageData
		data.SetError("Já pediu para aderir a esta fração.")
		h.render(w, r, http.StatusConflict, data)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "request fraction join", err, "Não foi possível enviar o pedido.", "/fractions")
		return
	}

	h.Log.Info("fraction join requested",
		zap.String("org_id", oc.OrgID().Hex()),
		zap.String("fraction_id", id.Hex()),
		zap.String("link_id", uf.ID.Hex()))
	http.Redirect(w, r, "/fractions", http.StatusSeeOther)
}

// HandleApprove grants a pending join request. Org admins only.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Fractions.Approve, "approved")
}

// HandleReject declines a pending join request. Org admins only.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Fractions.Reject, "rejected")
}

type decision func(ctx context.Context, orgID, linkID, actorID primitive.ObjectID) (bool, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decision, outcome string) {
	oc, _ := authz.FromRequest(r)
	id, ok := urlID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad request id", "/fractions")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	done, err := fn(ctx, oc.OrgID(), id, oc.UserID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decide join request", err, "Não foi possível registar a decisão.", "/fractions")
		return
	}
	if !done {
		h.ErrLog.LogNotFound(w, r, "join request missing or already decided", "/fractions")
		return
	}

	h.Log.Info("fraction join request decided", zap.String("link_id", id.Hex()), zap.String("outcome", outcome))
	http.Redirect(w, r, "/fractions", http.StatusSeeOther)
}
