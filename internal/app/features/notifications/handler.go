// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	notificationstore "github.com/dalemusser/zelus/internal/app/store/notifications"
)

const listLimit = 50

type Handler struct {
	Notifications *notificationstore.Store
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: notificationstore.New(db),
		ErrLog:        errLog,
		Log:           logger,
	}
}

type notificationRow struct {
	ID      string
	Title   string
	Message string
	Link    string
	Unread  bool
	Age     string
}

type listData struct {
	viewdata.BaseVM
	Rows        []notificationRow
	UnreadCount int64
}

// link returns the page a notification points at, if any.
func link(n models.Notification) string {
	if id, ok := n.Metadata["ticket_id"].(string); ok {
		if _, err := primitive.ObjectIDFromHex(id); err == nil {
			return "/tickets/" + id
		}
	}
	return ""
}

// ServeList shows the signed-in user's notifications in the active
// organization, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Notifications.ListForUser(ctx, oc.OrgID(), oc.UserID(), listLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications", err, "Não foi possível carregar as notificações.", "/dashboard")
		return
	}

	data := listData{BaseVM: viewdata.NewBaseVM(r, "Notificações", "/dashboard")}
	for _, n := range items {
		if n.ReadAt == nil {
			data.UnreadCount++
		}
		data.Rows = append(data.Rows, notificationRow{
			ID:      n.ID.Hex(),
			Title:   n.Title,
			Message: n.Message,
			Link:    link(n),
			Unread:  n.ReadAt == nil,
			Age:     humanize.Time(n.CreatedAt),
		})
	}
	templates.Render(w, r, "notifications_list", data)
}

// HandleRead marks one notification as read and follows its link.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogNotFound(w, r, "bad notification id", "/notifications")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Notifications.MarkRead(ctx, oc.OrgID(), oc.UserID(), id); err != nil {
		h.ErrLog.LogServerError(w, r, "mark notification read", err, "Não foi possível atualizar a notificação.", "/notifications")
		return
	}

	http.Redirect(w, r, urlutil.SafeReturn(r.PostFormValue("next"), "", "/notifications"), http.StatusSeeOther)
}

// HandleReadAll marks every unread notification as read.
func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, oc.OrgID(), oc.UserID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark all notifications read", err, "Não foi possível atualizar as notificações.", "/notifications")
		return
	}
	h.Log.Debug("notifications marked read", zap.String("user_id", oc.UserID().Hex()), zap.Int64("count", n))
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
