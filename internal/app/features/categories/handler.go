// internal/app/features/categories/handler.go
package categories

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/templates"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	categoryservice "github.com/dalemusser/zelus/internal/app/services/categories"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/inputval"
	"github.com/dalemusser/zelus/internal/app/system/timeouts"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the org admin's ticket category page.
type Handler struct {
	Categories *categoryservice.Service
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(categories *categoryservice.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Categories: categories, ErrLog: errLog, Log: logger}
}

type categoryRow struct {
	ID    string
	Label string
}

type pageData struct {
	viewdata.BaseVM
	formutil.Errors

	Rows  []categoryRow
	Label string
}

type categoryInput struct {
	Label string `validate:"required,max=60" label:"Nome da categoria"`
}

// render loads the list and writes the page with status.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	oc, _ := authz.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.Categories.List(ctx, oc.OrgID())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list categories", err, "Não foi possível carregar as categorias.", "/dashboard")
		return
	}
	data.BaseVM = viewdata.NewBaseVM(r, "Categorias de ocorrências", "/dashboard")
	for _, c := range rows {
		data.Rows = append(data.Rows, categoryRow{ID: c.ID.Hex(), Label: c.Label})
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "categories_admin", data)
}

// ServeList shows the organization's categories and the create form.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

// HandleCreate adds a category.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Formulário inválido.", "/admin/categories")
		return
	}

	in := categoryInput{Label: strings.TrimSpace(r.PostFormValue("label"))}
	if res := inputval.Validate(in); res.HasErrors() {
		data := pageData{Label: in.Label}
		data.SetResult(res)
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Categories.Create(ctx, oc.OrgID(), in.Label, oc.UserID())
	if errors.Is(err, categoryservice.ErrDuplicateLabel) {
		data := pageData{Label: in.Label}
		data.SetField("Label", "Já existe uma categoria com este nome.")
		h.render(w, r, http.StatusConflict, data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create category", err, "Não foi possível criar a categoria.", "/admin/categories")
		return
	}

	h.Log.Info("category created", zap.String("org_id", oc.OrgID().Hex()), zap.String("category_id", c.ID.Hex()))
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// HandleDelete removes a category no ticket uses.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oc, _ := authz.FromRequest(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogNotFound(w, r, "bad category id", "/admin/categories")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ok, err := h.Categories.Delete(ctx, oc.OrgID(), id, oc.UserID())
	if errors.Is(err, categoryservice.ErrCategoryInUse) {
		var data pageData
		data.SetError(err.Error())
		h.render(w, r, http.StatusConflict, data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete category", err, "Não foi possível apagar a categoria.", "/admin/categories")
		return
	}
	if !ok {
		h.ErrLog.LogNotFound(w, r, "category not found", "/admin/categories")
		return
	}

	h.Log.Info("category deleted", zap.String("org_id", oc.OrgID().Hex()), zap.String("category_id", id.Hex()))
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}
