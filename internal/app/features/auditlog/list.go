// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/paging"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServeList handles GET /admin/audit: the active organization's audit trail,
// newest first, optionally filtered by action and entity type.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	action := strings.TrimSpace(r.URL.Query().Get("action"))
	if _, ok := actionLabels[action]; !ok {
		action = ""
	}
	entity := strings.TrimSpace(r.URL.Query().Get("entity"))
	if _, ok := entityLabels[entity]; !ok {
		entity = ""
	}
	start := paging.ParseStart(r)

	items, total, err := h.loadPage(ctx, oc.OrgID(), action, entity, start)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "Não foi possível carregar o registo de atividade.", "/dashboard")
		return
	}

	page := paging.ComputeRange(start, len(items), total)
	templates.Render(w, r, "audit_list", listData{
		BaseVM:   viewdata.NewBaseVM(r, "Registo de atividade", "/dashboard"),
		Items:    items,
		Action:   action,
		Entity:   entity,
		Actions:  options(actionLabels, action),
		Entities: options(entityLabels, entity),
		Page:     page,
		PrevURL:  pageURL(action, entity, page.PrevStart),
		NextURL:  pageURL(action, entity, page.NextStart),
	})
}

// loadPage returns one page of orgID's events, with actor names resolved,
// and the total number matching the filter.
func (h *Handler) loadPage(ctx context.Context, orgID primitive.ObjectID, action, entity string, start int) ([]listItem, int64, error) {
	filter := audit.QueryFilter{
		OrgID:      &orgID,
		Action:     action,
		EntityType: entity,
		Limit:      paging.PageSize,
		Offset:     paging.Offset(start),
	}

	var (
		events []audit.Event
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = h.Audit.Query(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.Audit.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// Resolve actor names in one batch.
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0, len(events))
	for _, e := range events {
		if e.UserID == nil {
			continue
		}
		if _, ok := seen[*e.UserID]; !ok {
			seen[*e.UserID] = struct{}{}
			ids = append(ids, *e.UserID)
		}
	}
	names, err := h.Users.NamesByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		names = nil
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			When:    e.CreatedAt.Local().Format("02/01/2006 15:04"),
			Age:     humanize.Time(e.CreatedAt),
			Action:  label(actionLabels, e.Action),
			Entity:  label(entityLabels, e.EntityType),
			Details: formatMetadata(e.Metadata),
		}
		if e.UserID != nil {
			if name, ok := names[*e.UserID]; ok {
				item.ActorName = name
			} else {
				item.ActorName = e.UserID.Hex()
			}
		}
		items = append(items, item)
	}
	return items, total, nil
}

func pageURL(action, entity string, start int) string {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	if entity != "" {
		q.Set("entity", entity)
	}
	q.Set("start", strconv.Itoa(start))
	return "/admin/audit?" + q.Encode()
}
