// internal/app/features/tickets/show.go
package tickets

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/limits"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ticketID parses the {id} URL parameter.
func ticketID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// canEdit reports whether the current user may change a ticket's fields:
// its creator or an org admin.
func canEdit(oc *authz.OrgContext, t models.Ticket) bool {
	return t.CreatedBy == oc.UserID() || oc.IsOrgAdmin()
}

// loadShow builds the detail page. It returns nil data when the ticket is
// absent or hidden from the user.
func (h *Handler) loadShow(ctx context.Context, r *http.Request, oc *authz.OrgContext, id primitive.ObjectID) (*showData, error) {
	var (
		item     *ticketservice.Item
		comments []ticketservice.CommentItem
		events   []ticketservice.EventItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		item, err = h.Tickets.Get(gctx, oc.OrgID(), id, oc.UserID())
		return err
	})
	g.Go(func() (err error) {
		comments, err = h.Tickets.ListComments(gctx, oc.OrgID(), id, oc.UserID())
		return err
	})
	g.Go(func() (err error) {
		events, err = h.Tickets.ListEvents(gctx, oc.OrgID(), id, oc.UserID())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	data := &showData{
		BaseVM:      viewdata.NewBaseVM(r, item.Title, "/tickets"),
		Ticket:      toRow(*item),
		Description: template.HTML(item.Description), // sanitized on write
		CanEdit:     canEdit(oc, item.Ticket),
		Statuses:    statusOptions(item.Status),
	}
	for _, c := range comments {
		data.Comments = append(data.Comments, commentRow{
			AuthorName: c.AuthorName,
			Content:    template.HTML(c.Content),
			Age:        humanize.Time(c.CreatedAt),
		})
	}
	for _, e := range events {
		data.Events = append(data.Events, eventRow{
			UserName:  e.UserName,
			FromLabel: models.StatusLabel(e.FromStatus),
			ToLabel:   models.StatusLabel(e.ToStatus),
			Age:       humanize.Time(e.CreatedAt),
		})
	}
	return data, nil
}

// ServeShow renders a ticket with its comments and status history.
func (h *Handler) ServeShow(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := ticketID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad ticket id", "/tickets")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := h.loadShow(ctx, r, oc, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load ticket", err, "Não foi possível carregar a ocorrência.", "/tickets")
		return
	}
	if data == nil {
		h.ErrLog.LogNotFound(w, r, "ticket not found or hidden", "/tickets")
		return
	}
	templates.Render(w, r, "tickets_show", data)
}

// HandleStatus moves a ticket to the posted status. Any visible ticket may
// be moved by any member; every call records a status event.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := ticketID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad ticket id", "/tickets")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxStatusFormSize)
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

	change, err := h.Tickets.UpdateStatus(ctx, oc.OrgID(), id, r.PostFormValue("status"), oc.UserID())
	switch {
	case errors.Is(err, ticketservice.ErrInvalidStatus):
		h.ErrLog.LogBadRequest(w, r, "invalid ticket status", err, "Estado desconhecido.", "/tickets/"+id.Hex())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update ticket status", err, "Não foi possível alterar o estado.", "/tickets/"+id.Hex())
		return
	case change == nil:
		h.ErrLog.LogNotFound(w, r, "status change on missing ticket", "/tickets")
		return
	}

	h.Log.Info("ticket status changed",
		zap.String("ticket_id", id.Hex()),
		zap.String("from", change.Event.FromStatus),
		zap.String("to", change.Event.ToStatus))
	http.Redirect(w, r, "/tickets/"+id.Hex(), http.StatusSeeOther)
}

// HandleComment posts a comment on a visible ticket.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, ok := ticketID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad ticket id", "/tickets")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxCommentFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/tickets/"+id.Hex())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	content := r.PostFormValue("content")
	c, err := h.Tickets.AddComment(ctx, oc.OrgID(), id, oc.UserID(), content)
	if errors.Is(err, ticketservice.ErrEmptyComment) {
		data, lerr := h.loadShow(ctx, r, oc, id)
		if lerr != nil || data == nil {
			h.ErrLog.LogNotFound(w, r, "comment on missing ticket", "/tickets")
			return
		}
		data.SetField("Content", "O comentário não pode estar vazio.")
		data.Comment = content
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "tickets_show", data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add comment", err, "Não foi possível publicar o comentário.", "/tickets/"+id.Hex())
		return
	}
	if c == nil {
		h.ErrLog.LogNotFound(w, r, "comment on missing ticket", "/tickets")
		return
	}

	http.Redirect(w, r, "/tickets/"+id.Hex()+"#comentarios", http.StatusSeeOther)
}
