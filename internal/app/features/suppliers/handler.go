// internal/app/features/suppliers/handler.go
package suppliers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	maintenancestore "github.com/dalemusser/zelus/internal/app/store/maintenance"
	supplierstore "github.com/dalemusser/zelus/internal/app/store/suppliers"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/limits"
	"github.com/dalemusser/zelus/internal/app/system/normalize"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the supplier directory. Every member can browse it; org
// admins add and remove entries.
type Handler struct {
	Suppliers   *supplierstore.Store
	Maintenance *maintenancestore.Store
	Audit       *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Suppliers:   supplierstore.New(db),
		Maintenance: maintenancestore.New(db),
		Audit:       auditLog,
		ErrLog:      errLog,
		Log:         logger,
	}
}

type supplierInput struct {
	Name     string `validate:"required,max=120" label:"Nome"`
	Category string `validate:"max=60" label:"Área"`
	Phone    string `validate:"max=30" label:"Telefone"`
	Email    string `validate:"omitempty,mailaddr,max=254" label:"Email"`
	Website  string `validate:"omitempty,url,max=200" label:"Website"`
	Address  string `validate:"max=200" label:"Morada"`
	Notes    string `validate:"max=2000" label:"Notas"`
}

type supplierRow struct {
	ID       string
	Name     string
	Category string
	Phone    string
	Email    string
	Website  string
	Address  string
	Notes    string
}

type pageData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows  []supplierRow
	Query string
	Form  supplierInput
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	data.Query = normalize.QueryParam(query.Get(r, "q"))
	rows, err := h.Suppliers.ListByOrg(ctx, oc.OrgID(), data.Query)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list suppliers", err, "Não foi possível carregar os fornecedores.", "/dashboard")
		return
	}

	data.BaseVM = viewdata.NewBaseVM(r, "Fornecedores", "/dashboard")
	for _, sp := range rows {
		data.Rows = append(data.Rows, supplierRow{
			ID:       sp.ID.Hex(),
			Name:     sp.Name,
			Category: sp.Category,
			Phone:    sp.Phone,
			Email:    sp.Email,
			Website:  sp.Website,
			Address:  sp.Address,
			Notes:    sp.Notes,
		})
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "suppliers_list", data)
}

// ServeList shows the directory, optionally narrowed by ?q= (name prefix).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

// HandleCreate adds a supplier.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/suppliers")
		return
	}

	in := supplierInput{
		Name:     normalize.Name(r.PostFormValue("name")),
		Category: strings.TrimSpace(r.PostFormValue("category")),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		Email:    normalize.Email(r.PostFormValue("email")),
		Website:  strings.TrimSpace(r.PostFormValue("website")),
		Address:  strings.TrimSpace(r.PostFormValue("address")),
		Notes:    strings.TrimSpace(r.PostFormValue("notes")),
	}
	if res := inputval.Validate(in); res.HasErrors() {
		data := pageData{Form: in}
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sp, err := h.Suppliers.Create(ctx, models.Supplier{
		OrgID:    oc.OrgID(),
		Name:     in.Name,
		Category: in.Category,
		Phone:    in.Phone,
		Email:    in.Email,
		Website:  in.Website,
		Address:  in.Address,
		Notes:    htmlsanitize.StripTags(in.Notes),
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create supplier", err, "Não foi possível criar o fornecedor.", "/suppliers")
		return
	}
	h.Audit.Record(ctx, oc.OrgID(), oc.UserID(), audit.ActionSupplierCreated, audit.EntitySupplier, sp.ID,
		map[string]any{"name": sp.Name})

	h.Log.Info("supplier created", zap.String("org_id", oc.OrgID().Hex()), zap.String("supplier_id", sp.ID.Hex()))
	http.Redirect(w, r, "/suppliers", http.StatusSeeOther)
}

// HandleDelete removes a supplier no maintenance record references.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogNotFound(w, r, "bad supplier id", "/suppliers")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sp, err := h.Suppliers.Get(ctx, oc.OrgID(), id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load supplier", err, "Não foi possível apagar o fornecedor.", "/suppliers")
		return
	}
	if sp == nil {
		h.ErrLog.LogNotFound(w, r, "supplier not found", "/suppliers")
		return
	}

	n, err := h.Maintenance.CountBySupplier(ctx, oc.OrgID(), id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count supplier records", err, "Não foi possível apagar o fornecedor.", "/suppliers")
		return
	}
	if n > 0 {
		var data pageData
		data.SetError("Este fornecedor tem registos de manutenção e não pode ser apagado.")
		h.render(w, r, http.StatusConflict, data)
		return
	}

	if _, err := h.Suppliers.Delete(ctx, oc.OrgID(), id); err != nil {
		h.ErrLog.LogServerError(w, r, "delete supplier", err, "Não foi possível apagar o fornecedor.", "/suppliers")
		return
	}
	h.Audit.Record(ctx, oc.OrgID(), oc.UserID(), audit.ActionSupplierDeleted, audit.EntitySupplier, id,
		map[string]any{"name": sp.Name})

	h.Log.Info("supplier deleted", zap.String("org_id", oc.OrgID().Hex()), zap.String("supplier_id", id.Hex()))
	http.Redirect(w, r, "/suppliers", http.StatusSeeOther)
}
