package categories_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dalemusser/zelus/internal/app/features/categories"
	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	categoryservice "github.com/dalemusser/zelus/internal/app/services/categories"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/app/system/indexes"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*mongo.Database, *categories.Handler, *categoryservice.Service) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Org: auditlog.ModeDB})
	svc := categoryservice.New(nil, db, al, logger)
	return db, categories.NewHandler(svc, uierrors.NewErrorLogger(logger), logger), svc
}

func serve(fn http.HandlerFunc, rec *httptest.ResponseRecorder, req *http.Request) {
	defer func() { _ = recover() }()
	fn(rec, req)
}

func TestHandleCreate(t *testing.T) {
	db, h, svc := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org := fx.CreateOrganization(ctx, "Aurora")

	post := func(label string) int {
		req := testutil.WithOrg(testutil.PostForm("/admin/categories", url.Values{"label": {label}}), admin, org, authz.RoleOrgAdmin)
		rec := httptest.NewRecorder()
		serve(h.HandleCreate, rec, req)
		return rec.Code
	}

	if code := post("Elevadores"); code != http.StatusSeeOther {
		t.Fatalf("create: status = %d, want 303", code)
	}
	if code := post("elevadores"); code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", code)
	}
	if code := post(" "); code != http.StatusUnprocessableEntity {
		t.Errorf("blank: status = %d, want 422", code)
	}

	rows, _ := svc.List(ctx, org.ID)
	if len(rows) != 1 || rows[0].Label != "Elevadores" {
		t.Errorf("unexpected categories: %+v", rows)
	}
	n, _ := audit.New(db).Count(ctx, audit.QueryFilter{OrgID: &org.ID, Action: audit.ActionCategoryCreated})
	if n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
}

func TestHandleDelete(t *testing.T) {
	db, h, svc := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org := fx.CreateOrganization(ctx, "Aurora")
	used := fx.CreateCategory(ctx, org, "Limpeza")
	unused := fx.CreateCategory(ctx, org, "Jardim")

	tk := fx.CreateTicket(ctx, org, admin, "Escadas sujas", false)
	if _, err := db.Collection("tickets").UpdateByID(ctx, tk.ID, bson.M{"$set": bson.M{"category_id": used.ID}}); err != nil {
		t.Fatalf("attach category: %v", err)
	}

	del := func(c models.TicketCategory) int {
		req := testutil.WithOrg(testutil.PostForm("/admin/categories/"+c.ID.Hex()+"/delete", nil), admin, org, authz.RoleOrgAdmin)
		req = testutil.WithChiURLParam(req, "id", c.ID.Hex())
		rec := httptest.NewRecorder()
		serve(h.HandleDelete, rec, req)
		return rec.Code
	}

	if code := del(used); code != http.StatusConflict {
		t.Errorf("in use: status = %d, want 409", code)
	}
	if code := del(unused); code != http.StatusSeeOther {
		t.Errorf("unused: status = %d, want 303", code)
	}
	if code := del(unused); code != http.StatusNotFound {
		t.Errorf("already deleted: status = %d, want 404", code)
	}

	rows, _ := svc.List(ctx, org.ID)
	if len(rows) != 1 || rows[0].ID != used.ID {
		t.Errorf("unexpected categories: %+v", rows)
	}
}
