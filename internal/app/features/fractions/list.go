// internal/app/features/fractions/list.go
package fractions

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type memberRow struct {
	Name      string
	RoleLabel string
}

type fractionRow struct {
	ID          string
	Label       string
	Description string
	Members     []memberRow
	MyStatus    string // "", pending, approved or rejected
}

type pendingRow struct {
	ID            string
	UserName      string
	FractionLabel string
	RoleLabel     string
	Age           string
}

type roleOption struct {
	Value string
	Label string
}

type pageData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows    []fractionRow
	Pending []pendingRow
	Roles   []roleOption

	Label       string
	Description string
}

func roleLabel(role string) string {
	return authz.EffectiveRole(role).Label()
}

// render loads the page for the current user and writes it with status.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		items   []fractionservice.FractionItem
		mine    []models.UserFraction
		pending []fractionservice.PendingItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = h.Fractions.List(gctx, oc.OrgID())
		return err
	})
	g.Go(func() (err error) {
		mine, err = h.Fractions.Mine(gctx, oc.OrgID(), oc.UserID())
		return err
	})
	if oc.IsOrgAdmin() {
		g.Go(func() (err error) {
			pending, err = h.Fractions.Pending(gctx, oc.OrgID())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "list fractions", err, "Não foi possível carregar as frações.", "/dashboard")
		return
	}

	myStatus := make(map[primitive.ObjectID]string, len(mine))
	for _, uf := range mine {
		myStatus[uf.FractionID] = uf.Status
	}

	data.BaseVM = viewdata.NewBaseVM(r, "Frações", "/dashboard")
	data.Roles = []roleOption{
		{Value: models.FractionRoleOwnerAdmin, Label: roleLabel(models.FractionRoleOwnerAdmin)},
		{Value: models.FractionRoleMember, Label: roleLabel(models.FractionRoleMember)},
	}
	for _, it := range items {
		row := fractionRow{
			ID:          it.ID.Hex(),
			Label:       it.Label,
			Description: it.Description,
			MyStatus:    myStatus[it.ID],
		}
		for _, m := range it.Members {
			row.Members = append(row.Members, memberRow{Name: m.UserName, RoleLabel: roleLabel(m.Role)})
		}
		data.Rows = append(data.Rows, row)
	}
	for _, p := range pending {
		data.Pending = append(data.Pending, pendingRow{
			ID:            p.ID.Hex(),
			UserName:      p.UserName,
			FractionLabel: p.FractionLabel,
			RoleLabel:     roleLabel(p.Role),
			Age:           humanize.Time(p.CreatedAt),
		})
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "fractions_list", data)
}

// ServeList shows the organization's fractions with their approved members.
// Org admins also see the pending join requests.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}
