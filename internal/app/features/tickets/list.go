// internal/app/features/tickets/list.go
package tickets

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/normalize"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// parseFilters reads the list filters from the query string. Unknown
// statuses, priorities and malformed ids are dropped rather than rejected.
func parseFilters(r *http.Request) (ticketservice.Filters, string, string) {
	var f ticketservice.Filters
	if s := normalize.Enum(query.Get(r, "status")); models.IsValidTicketStatus(s) {
		f.Status = s
	}
	if p := normalize.Enum(query.Get(r, "priority")); models.IsValidTicketPriority(p) {
		f.Priority = p
	}
	cat := query.Get(r, "category")
	if f.CategoryID = optionalID(cat); f.CategoryID == nil {
		cat = ""
	}
	frac := query.Get(r, "fraction")
	if f.FractionID = optionalID(frac); f.FractionID == nil {
		frac = ""
	}
	return f, cat, frac
}

// ServeList renders the tickets the current user can see, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	f, cat, frac := parseFilters(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		items       []ticketservice.Item
		cats, fracs []option
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = h.Tickets.List(gctx, oc.OrgID(), oc.UserID(), f)
		return err
	})
	g.Go(func() (err error) {
		cats, fracs, err = h.refOptions(gctx, oc.OrgID(), cat, frac)
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "list tickets", err, "Não foi possível carregar as ocorrências.", "/dashboard")
		return
	}

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Ocorrências", "/dashboard"),
		Count:      len(items),
		Statuses:   statusOptions(f.Status),
		Priorities: priorityOptions(f.Priority),
		Categories: cats,
		Fractions:  fracs,
		Filtered:   f != (ticketservice.Filters{}),
	}
	for _, it := range items {
		data.Rows = append(data.Rows, toRow(it))
	}

	h.Log.Debug("tickets listed", zap.String("org_id", oc.OrgID().Hex()), zap.Int("count", len(items)))
	templates.Render(w, r, "tickets_list", data)
}
