package maintenance_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	"github.com/dalemusser/zelus/internal/app/features/maintenance"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.uber.org/zap"
)

func serve(fn http.HandlerFunc, rec *httptest.ResponseRecorder, req *http.Request) {
	defer func() { _ = recover() }()
	fn(rec, req)
}

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Org: auditlog.ModeDB})
	h := maintenance.NewHandler(db, al, uierrors.NewErrorLogger(logger), logger)

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org := fx.CreateOrganization(ctx, "Aurora")
	other := fx.CreateOrganization(ctx, "Outro")
	sp, _ := h.Suppliers.Create(ctx, models.Supplier{OrgID: org.ID, Name: "Elevadores Lda"})
	foreign, _ := h.Suppliers.Create(ctx, models.Supplier{OrgID: other.ID, Name: "Alheio"})

	post := func(form url.Values) int {
		req := testutil.WithOrg(testutil.PostForm("/maintenance", form), admin, org, authz.RoleOrgAdmin)
		rec := httptest.NewRecorder()
		serve(h.HandleCreate, rec, req)
		return rec.Code
	}

	code := post(url.Values{
		"title":        {"Revisão do elevador"},
		"supplier":     {sp.ID.Hex()},
		"performed_at": {"2026-03-14"},
		"cost":         {"1.250,40"},
	})
	if code != http.StatusSeeOther {
		t.Fatalf("create: status = %d, want 303", code)
	}

	rejected := []url.Values{
		{"title": {""}},
		{"title": {"x"}, "cost": {"muito"}},
		{"title": {"x"}, "performed_at": {"14/03/2026"}},
		{"title": {"x"}, "supplier": {foreign.ID.Hex()}},
	}
	for _, form := range rejected {
		if code := post(form); code != http.StatusUnprocessableEntity {
			t.Errorf("%v: status = %d, want 422", form, code)
		}
	}

	recs, err := h.Records.ListByOrg(ctx, org.ID, 0)
	if err != nil || len(recs) != 1 {
		t.Fatalf("ListByOrg = %v, %v", recs, err)
	}
	r := recs[0]
	if r.CostCents == nil || *r.CostCents != 125040 {
		t.Errorf("CostCents = %v, want 125040", r.CostCents)
	}
	if r.SupplierID == nil || *r.SupplierID != sp.ID {
		t.Errorf("SupplierID = %v, want %s", r.SupplierID, sp.ID.Hex())
	}
	if got := r.PerformedAt.Format("2006-01-02"); got != "2026-03-14" {
		t.Errorf("PerformedAt = %s", got)
	}
	n, _ := audit.New(db).Count(ctx, audit.QueryFilter{OrgID: &org.ID, Action: audit.ActionMaintenanceCreated})
	if n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
}
