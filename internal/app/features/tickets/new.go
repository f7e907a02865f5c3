// internal/app/features/tickets/new.go
package tickets

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/limits"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// ServeNew renders the new ticket form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	data := formData{Action: "/tickets"}
	if err := h.fillForm(ctx, r, oc, &data, ticketInput{}); err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket form", err, "Não foi possível abrir o formulário.", "/tickets")
		return
	}
	templates.Render(w, r, "tickets_new", data)
}

// HandleCreate stores a new ticket and redirects to it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxTicketFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/tickets")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	in := readInput(r)
	private := r.PostFormValue("private") != ""

	reRender := func(status int, apply func(*formData)) {
		data := formData{Action: "/tickets", Private: private}
		if err := h.fillForm(ctx, r, oc, &data, in); err != nil {
			h.ErrLog.LogServerError(w, r, "load ticket form", err, "Não foi possível abrir o formulário.", "/tickets")
			return
		}
		apply(&data)
		w.WriteHeader(status)
		templates.Render(w, r, "tickets_new", data)
	}

	if res := inputval.Validate(in); res.HasErrors() {
		reRender(http.StatusUnprocessableEntity, func(d *formData) { d.SetResult(res) })
		return
	}

	ci := ticketservice.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  optionalID(in.CategoryID),
		FractionID:  optionalID(in.FractionID),
		Private:     private,
	}
	if in.Priority != "" {
		p := in.Priority
		ci.Priority = &p
	}

	t, err := h.Tickets.Create(ctx, oc.OrgID(), ci, oc.UserID())
	if err != nil {
		if field, msg, ok := fieldError(err); ok {
			reRender(http.StatusUnprocessableEntity, func(d *formData) {
				d.SetField(field, msg)
				d.SetError(msg)
			})
			return
		}
		h.ErrLog.LogServerError(w, r, "create ticket", err, "Não foi possível criar a ocorrência.", "/tickets")
		return
	}

	h.Log.Info("ticket created",
		zap.String("org_id", oc.OrgID().Hex()),
		zap.String("ticket_id", t.ID.Hex()),
		zap.Bool("private", t.Private))
	http.Redirect(w, r, "/tickets/"+t.ID.Hex(), http.StatusSeeOther)
}

// fillForm sets the page context and select options on data, echoing in.
func (h *Handler) fillForm(ctx context.Context, r *http.Request, oc *authz.OrgContext, data *formData, in ticketInput) error {
	cats, fracs, err := h.refOptions(ctx, oc.OrgID(), in.CategoryID, in.FractionID)
	if err != nil {
		return err
	}
	title, back := "Nova ocorrência", "/tickets"
	if data.TicketID != "" {
		title, back = "Editar ocorrência", "/tickets/"+data.TicketID
	}
	data.BaseVM = viewdata.NewBaseVM(r, title, back)
	data.Title = in.Title
	data.Description = in.Description
	data.Priorities = priorityOptions(in.Priority)
	data.Categories = cats
	data.Fractions = fracs
	return nil
}

// fieldError maps service validation errors to a form field and message.
func fieldError(err error) (field, msg string, ok bool) {
	switch {
	case errors.Is(err, ticketservice.ErrTitleRequired):
		return "Title", "Título é obrigatório.", true
	case errors.Is(err, ticketservice.ErrInvalidPriority):
		return "Priority", "Prioridade desconhecida.", true
	case errors.Is(err, ticketservice.ErrUnknownCategory):
		return "CategoryID", "A categoria não pertence a este condomínio.", true
	case errors.Is(err, ticketservice.ErrUnknownFraction):
		return "FractionID", "A fração não pertence a este condomínio.", true
	}
	return "", "", false
}
