// internal/app/features/tickets/edit.go
package tickets

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/limits"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeEdit renders the edit form for the ticket's creator or an org admin.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := ticketID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad ticket id", "/tickets")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.Tickets.Get(ctx, oc.OrgID(), id, oc.UserID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket", err, "Não foi possível carregar a ocorrência.", "/tickets")
		return
	}
	if item == nil {
		h.ErrLog.LogNotFound(w, r, "ticket not found or hidden", "/tickets")
		return
	}
	if !canEdit(oc, item.Ticket) {
		h.ErrLog.LogForbidden(w, r, "ticket edit denied", nil, "Só o autor ou um administrador pode editar esta ocorrência.", "/tickets/"+id.Hex())
		return
	}

	in := ticketInput{Title: item.Title, Description: item.Description}
	if item.CategoryID != nil {
		in.CategoryID = item.CategoryID.Hex()
	}
	if item.FractionID != nil {
		in.FractionID = item.FractionID.Hex()
	}
	if item.Priority != nil {
		in.Priority = *item.Priority
	}

	data := formData{Action: "/tickets/" + id.Hex() + "/edit", TicketID: id.Hex(), Private: item.Private}
	if err := h.fillForm(ctx, r, oc, &data, in); err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket form", err, "Não foi possível abrir o formulário.", "/tickets")
		return
	}
	templates.Render(w, r, "tickets_edit", data)
}

// HandleEdit applies the edit form as a full patch of the editable fields.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := ticketID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad ticket id", "/tickets")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxTicketFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/tickets/"+id.Hex())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	item, err := h.Tickets.Get(ctx, oc.OrgID(), id, oc.UserID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket", err, "Não foi possível carregar a ocorrência.", "/tickets")
		return
	}
	if item == nil {
		h.ErrLog.LogNotFound(w, r, "ticket not found or hidden", "/tickets")
		return
	}
	if !canEdit(oc, item.Ticket) {
		h.ErrLog.LogForbidden(w, r, "ticket edit denied", nil, "Só o autor ou um administrador pode editar esta ocorrência.", "/tickets/"+id.Hex())
		return
	}

	in := readInput(r)
	private := r.PostFormValue("private") != ""

	reRender := func(apply func(*formData)) {
		data := formData{Action: "/tickets/" + id.Hex() + "/edit", TicketID: id.Hex(), Private: private}
		if err := h.fillForm(ctx, r, oc, &data, in); err != nil {
			h.ErrLog.LogServerError(w, r, "load ticket form", err, "Não foi possível abrir o formulário.", "/tickets")
			return
		}
		apply(&data)
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "tickets_edit", data)
	}

	if res := inputval.Validate(in); res.HasErrors() {
		reRender(func(d *formData) { d.SetResult(res) })
		return
	}

	p := ticketservice.Patch{
		Title:       &in.Title,
		Description: &in.Description,
		Priority:    &in.Priority,
		CategoryID:  clearableID(in.CategoryID),
		FractionID:  clearableID(in.FractionID),
		Private:     &private,
	}
	updated, err := h.Tickets.Update(ctx, oc.OrgID(), id, p, oc.UserID())
	if err != nil {
		if field, msg, ok := fieldError(err); ok {
			reRender(func(d *formData) {
				d.SetField(field, msg)
				d.SetError(msg)
			})
			return
		}
		h.ErrLog.LogServerError(w, r, "update ticket", err, "Não foi possível guardar a ocorrência.", "/tickets/"+id.Hex())
		return
	}
	if updated == nil {
		h.ErrLog.LogNotFound(w, r, "ticket vanished during edit", "/tickets")
		return
	}

	h.Log.Info("ticket updated", zap.String("ticket_id", id.Hex()), zap.String("user_id", oc.UserID().Hex()))
	http.Redirect(w, r, "/tickets/"+id.Hex(), http.StatusSeeOther)
}
