// internal/app/features/maintenance/handler.go
package maintenance

import (
	"context"
	"net/http"
	"strings"
	"time"

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
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// listLimit caps the maintenance log page.
const listLimit = 200

const dateLayout = "2006-01-02"

// Handler serves the building's maintenance log.
type Handler struct {
	Records   *maintenancestore.Store
	Suppliers *supplierstore.Store
	Audit     *auditlog.Logger
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Records:   maintenancestore.New(db),
		Suppliers: supplierstore.New(db),
		Audit:     auditLog,
		ErrLog:    errLog,
		Log:       logger,
	}
}

type recordInput struct {
	Title       string `validate:"required,max=200" label:"Título"`
	Description string `validate:"max=5000" label:"Descrição"`
	SupplierID  string `validate:"omitempty,objectid" label:"Fornecedor"`
	PerformedAt string `validate:"omitempty,datetime=2006-01-02" label:"Data"`
	Cost        string `validate:"max=20" label:"Custo"`
}

type recordRow struct {
	Title        string
	Description  string
	SupplierName string
	PerformedAt  string
	Cost         string
}

type supplierOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows      []recordRow
	Suppliers []supplierOption
	TotalCost string
	Form      recordInput
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		records   []models.MaintenanceRecord
		suppliers []models.Supplier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = h.Records.ListByOrg(gctx, oc.OrgID(), listLimit)
		return err
	})
	g.Go(func() (err error) {
		suppliers, err = h.Suppliers.ListByOrg(gctx, oc.OrgID(), "")
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "list maintenance", err, "Não foi possível carregar a manutenção.", "/dashboard")
		return
	}

	names := make(map[primitive.ObjectID]string, len(suppliers))
	for _, sp := range suppliers {
		names[sp.ID] = sp.Name
		data.Suppliers = append(data.Suppliers, supplierOption{
			Value:    sp.ID.Hex(),
			Label:    sp.Name,
			Selected: sp.ID.Hex() == data.Form.SupplierID,
		})
	}

	var total int64
	for _, rec := range records {
		row := recordRow{
			Title:       rec.Title,
			Description: rec.Description,
			PerformedAt: rec.PerformedAt.Format("02/01/2006"),
		}
		if rec.SupplierID != nil {
			row.SupplierName = names[*rec.SupplierID]
		}
		if rec.CostCents != nil {
			row.Cost = formatCents(*rec.CostCents)
			total += *rec.CostCents
		}
		data.Rows = append(data.Rows, row)
	}
	data.TotalCost = formatCents(total)
	data.BaseVM = viewdata.NewBaseVM(r, "Manutenção", "/dashboard")

	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "maintenance_list", data)
}

// ServeList shows the maintenance log, most recent work first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

// HandleCreate records a piece of maintenance work.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/maintenance")
		return
	}

	in := recordInput{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		SupplierID:  strings.TrimSpace(r.PostFormValue("supplier")),
		PerformedAt: strings.TrimSpace(r.PostFormValue("performed_at")),
		Cost:        strings.TrimSpace(r.PostFormValue("cost")),
	}
	fail := func(status int, apply func(*pageData)) {
		data := pageData{Form: in}
		apply(&data)
		h.render(w, r, status, data)
	}

	if res := inputval.Validate(in); res.HasErrors() {
		fail(http.StatusUnprocessableEntity, func(d *pageData) { d.SetResult(res) })
		return
	}
	cost, err := parseCents(in.Cost)
	if err != nil {
		fail(http.StatusUnprocessableEntity, func(d *pageData) {
			d.SetField("Cost", "Indique um valor em euros, por exemplo 120,50.")
			d.SetError("Indique um valor em euros, por exemplo 120,50.")
		})
		return
	}
	var performedAt time.Time
	if in.PerformedAt != "" {
		performedAt, _ = time.Parse(dateLayout, in.PerformedAt) // validated above
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec := models.MaintenanceRecord{
		OrgID:       oc.OrgID(),
		Title:       in.Title,
		Description: htmlsanitize.StripTags(in.Description),
		PerformedAt: performedAt,
		CostCents:   cost,
		CreatedBy:   oc.UserID(),
	}
	if in.SupplierID != "" {
		sid, _ := primitive.ObjectIDFromHex(in.SupplierID)
		sp, err := h.Suppliers.Get(ctx, oc.OrgID(), sid)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load supplier", err, "Não foi possível registar a manutenção.", "/maintenance")
			return
		}
		if sp == nil {
			fail(http.StatusUnprocessableEntity, func(d *pageData) {
				d.SetField("SupplierID", "O fornecedor não pertence a este condomínio.")
				d.SetError("O fornecedor não pertence a este condomínio.")
			})
			return
		}
		rec.SupplierID = &sid
	}

	saved, err := h.Records.Create(ctx, rec)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create maintenance record", err, "Não foi possível registar a manutenção.", "/maintenance")
		return
	}

	meta := map[string]any{"title": saved.Title}
	if saved.CostCents != nil {
		meta["cost_cents"] = *saved.CostCents
	}
	if saved.SupplierID != nil {
		meta["supplier_id"] = saved.SupplierID.Hex()
	}
	h.Audit.Record(ctx, oc.OrgID(), oc.UserID(), audit.ActionMaintenanceCreated, audit.EntityMaintenance, saved.ID, meta)

	h.Log.Info("maintenance recorded", zap.String("org_id", oc.OrgID().Hex()), zap.String("record_id", saved.ID.Hex()))
	http.Redirect(w, r, "/maintenance", http.StatusSeeOther)
}
