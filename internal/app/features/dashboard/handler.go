// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// recentLimit is how many of the latest tickets the dashboard lists.
const recentLimit = 5

type Handler struct {
	Tickets   *ticketservice.Service
	Fractions *fractionservice.Service
	Log       *zap.Logger
}

func NewHandler(tickets *ticketservice.Service, fractions *fractionservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Tickets:   tickets,
		Fractions: fractions,
		Log:       logger,
	}
}

type statusCount struct {
	Status string
	Label  string
	Count  int64
}

type recentRow struct {
	ID            string
	Title         string
	StatusLabel   string
	Status        string
	FractionLabel string
	Private       bool
	Age           string
}

type dashboardData struct {
	viewdata.BaseVM

	TotalTickets  int64
	OpenTickets   int64
	FractionCount int64
	MyFractions   int
	ByStatus      []statusCount
	Recent        []recentRow
}

// Stats holds the dashboard numbers for one (organization, user) pair.
// Ticket counts include only tickets the user can see.
type Stats struct {
	Total     int64
	Open      int64
	Fractions int64
	Mine      int // approved links only
	ByStatus  map[string]int64
	Recent    []ticketservice.Item
}

// LoadStats runs the dashboard reads concurrently.
func (h *Handler) LoadStats(ctx context.Context, oc *authz.OrgContext) (Stats, error) {
	orgID, userID := oc.OrgID(), oc.UserID()

	counts := make([]int64, len(models.TicketStatuses))
	var st Stats

	g, gctx := errgroup.WithContext(ctx)
	for i, status := range models.TicketStatuses {
		g.Go(func() error {
			n, err := h.Tickets.Count(gctx, orgID, userID, ticketservice.Filters{Status: status})
			counts[i] = n
			return err
		})
	}
	g.Go(func() error {
		n, err := h.Fractions.Count(gctx, orgID)
		st.Fractions = n
		return err
	})
	g.Go(func() error {
		mine, err := h.Fractions.Mine(gctx, orgID, userID)
		for _, uf := range mine {
			if uf.Status == models.UserFractionApproved {
				st.Mine++
			}
		}
		return err
	})
	g.Go(func() error {
		items, err := h.Tickets.Recent(gctx, orgID, userID, recentLimit)
		st.Recent = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	st.ByStatus = make(map[string]int64, len(counts))
	for i, status := range models.TicketStatuses {
		st.ByStatus[status] = counts[i]
		st.Total += counts[i]
		if status == models.TicketOpen || status == models.TicketInProgress {
			st.Open += counts[i]
		}
	}
	return st, nil
}

// ServeDashboard shows the active organization's overview.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	oc, ok := authz.FromRequest(r)
	if !ok {
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.LoadStats(ctx, oc)
	if err != nil {
		h.Log.Error("dashboard stats failed", zap.Error(err), zap.String("org_id", oc.OrgID().Hex()))
		http.Error(w, "Não foi possível carregar o painel.", http.StatusInternalServerError)
		return
	}

	data := dashboardData{
		BaseVM:        viewdata.NewBaseVM(r, "Painel", "/"),
		TotalTickets:  st.Total,
		OpenTickets:   st.Open,
		FractionCount: st.Fractions,
		MyFractions:   st.Mine,
	}
	for _, status := range models.TicketStatuses {
		data.ByStatus = append(data.ByStatus, statusCount{
			Status: status,
			Label:  models.StatusLabel(status),
			Count:  st.ByStatus[status],
		})
	}
	for _, it := range st.Recent {
		data.Recent = append(data.Recent, recentRow{
			ID:            it.ID.Hex(),
			Title:         it.Title,
			Status:        it.Status,
			StatusLabel:   models.StatusLabel(it.Status),
			FractionLabel: it.FractionLabel,
			Private:       it.Private,
			Age:           humanize.Time(it.CreatedAt),
		})
	}

	h.Log.Debug("dashboard served", zap.String("org_id", oc.OrgID().Hex()), zap.String("role", oc.Role.String()))
	templates.Render(w, r, "dashboard", data)
}
