// internal/app/features/members/handler.go
package members

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lets org admins see who belongs to the organization and grant or
// revoke the admin role.
type Handler struct {
	Members *memberstore.Store
	Users   *userstore.Store
	Audit   *auditlog.Logger
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Members: memberstore.New(db),
		Users:   userstore.New(db),
		Audit:   auditLog,
		ErrLog:  errLog,
		Log:     logger,
	}
}

type memberRow struct {
	UserID    string
	Name      string
	Role      string
	RoleLabel string
	Since     string
	Editable  bool
}

type pageData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows []memberRow
}

var roleLabels = map[string]string{
	models.MemberRoleOwner:  "Proprietário da conta",
	models.MemberRoleAdmin:  "Administrador",
	models.MemberRoleMember: "Membro",
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	members, err := h.Members.ListByOrg(ctx, oc.OrgID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list members", err, "Não foi possível carregar os membros.", "/dashboard")
		return
	}
	data.Rows = buildRows(ctx, h, members, oc)

	data.BaseVM = viewdata.NewBaseVM(r, "Membros", "/dashboard")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "members_list", data)
}

// buildRows joins member rows with user names and sorts them by name.
// Owners and the signed-in admin are shown but cannot be edited here.
func buildRows(ctx context.Context, h *Handler, members []models.Member, oc *authz.OrgContext) []memberRow {
	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	names, err := h.Users.NamesByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch member names", zap.Error(err))
	}

	rows := make([]memberRow, 0, len(members))
	for _, m := range members {
		name := names[m.UserID]
		if name == "" {
			name = m.UserID.Hex()
		}
		rows = append(rows, memberRow{
			UserID:    m.UserID.Hex(),
			Name:      name,
			Role:      m.Role,
			RoleLabel: roleLabels[m.Role],
			Since:     humanize.Time(m.CreatedAt),
			Editable:  m.Role != models.MemberRoleOwner && m.UserID != oc.UserID(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return text.Fold(rows[i].Name) < text.Fold(rows[j].Name) })
	return rows
}
