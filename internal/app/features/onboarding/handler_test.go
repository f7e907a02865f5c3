package onboarding_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/zelus/internal/app/features/errors"
	"github.com/dalemusser/zelus/internal/app/features/onboarding"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	orgservice "github.com/dalemusser/zelus/internal/app/services/organizations"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h         *onboarding.Handler
	orgs      *orgservice.Service
	fractions *fractionservice.Service
	fx        *testutil.Fixtures
}

func newEnv(t *testing.T, db *mongo.Database) env {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Org: auditlog.ModeDB})
	orgs := orgservice.New(nil, db, al, logger)
	fractions := fractionservice.New(db, al)
	return env{
		h:         onboarding.NewHandler(orgs, fractions, sessionMgr, uierrors.NewErrorLogger(logger), logger),
		orgs:      orgs,
		fractions: fractions,
		fx:        testutil.NewFixtures(t, db),
	}
}

func serve(fn http.HandlerFunc, rec *httptest.ResponseRecorder, req *http.Request) {
	defer func() { _ = recover() }()
	fn(rec, req)
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			return true
		}
	}
	return false
}

func TestServeOnboarding_ActiveOrgGoesToDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org := e.fx.CreateOrganization(ctx, "Aurora")

	req := testutil.WithOrg(testutil.NewRequest("GET", "/onboarding"), ana, org, authz.RoleFractionMember)
	rec := httptest.NewRecorder()
	e.h.ServeOnboarding(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d %q, want 303 /dashboard", rec.Code, rec.Header().Get("Location"))
	}
}

func TestServeOnboarding_ActivatesExistingMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org := e.fx.CreateOrganization(ctx, "Aurora")
	e.fx.AddMember(ctx, org, ana, models.MemberRoleMember)

	req := testutil.WithUser(testutil.NewRequest("GET", "/onboarding"), ana)
	rec := httptest.NewRecorder()
	e.h.ServeOnboarding(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d %q, want 303 /dashboard", rec.Code, rec.Header().Get("Location"))
	}
	if !hasSessionCookie(rec) {
		t.Error("expected the session to be saved with the active organization")
	}
}

func TestCreateOrg_RedirectsToFractions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{
		"intent": {"create-org"},
		"name":   {"Edifício Aurora"},
		"city":   {"Lisboa"},
	}), ana)
	rec := httptest.NewRecorder()
	e.h.HandleAction(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/onboarding?step=2&org=") {
		t.Fatalf("Location = %q", loc)
	}

	m, err := e.orgs.FirstMembership(ctx, ana.ID)
	if err != nil || m == nil {
		t.Fatalf("expected an owner membership, got %v, %v", m, err)
	}
	if m.Role != models.MemberRoleOwner {
		t.Errorf("role = %q, want owner", m.Role)
	}
	if !strings.HasSuffix(loc, m.OrgID.Hex()) {
		t.Errorf("Location %q does not name org %s", loc, m.OrgID.Hex())
	}
}

func TestCreateOrg_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{
		"intent": {"create-org"},
		"name":   {"  "},
		"city":   {"Lisboa"},
	}), ana)
	rec := httptest.NewRecorder()
	serve(e.h.HandleAction, rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if m, _ := e.orgs.FirstMembership(ctx, ana.ID); m != nil {
		t.Error("no organization should be created")
	}
}

func TestCreateFractions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org, err := e.orgs.Create(ctx, "Aurora", "Porto", ana.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{
		"intent": {"create-fractions"},
		"orgId":  {org.ID.Hex()},
		"labels": {"1.º Esq.\n1.º Dto.\n\nR/C"},
	}), ana)
	rec := httptest.NewRecorder()
	e.h.HandleAction(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/onboarding?step=3&org="+org.ID.Hex() {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	n, _ := e.fractions.Count(ctx, org.ID)
	if n != 3 {
		t.Errorf("fractions = %d, want 3", n)
	}
}

func TestCreateFractions_NotAdminForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")
	rui := e.fx.CreateUser(ctx, "Rui", "rui@example.pt")
	org, err := e.orgs.Create(ctx, "Aurora", "Porto", ana.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{
		"intent": {"create-fractions"},
		"orgId":  {org.ID.Hex()},
		"labels": {"1.º Esq."},
	}), rui)
	rec := httptest.NewRecorder()
	serve(e.h.HandleAction, rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if n, _ := e.fractions.Count(ctx, org.ID); n != 0 {
		t.Errorf("fractions = %d, want 0", n)
	}
}

func TestFinish_ActivatesOrganization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")
	org, err := e.orgs.Create(ctx, "Aurora", "Porto", ana.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{
		"intent": {"finish"},
		"orgId":  {org.ID.Hex()},
	}), ana)
	rec := httptest.NewRecorder()
	e.h.HandleAction(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d %q, want 303 /dashboard", rec.Code, rec.Header().Get("Location"))
	}
	if !hasSessionCookie(rec) {
		t.Error("expected a session cookie")
	}
}

func TestHandleAction_UnknownIntent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEnv(t, db)
	ana := e.fx.CreateUser(ctx, "Ana", "ana@example.pt")

	req := testutil.WithUser(testutil.PostForm("/onboarding", url.Values{"intent": {"explode"}}), ana)
	rec := httptest.NewRecorder()
	serve(e.h.HandleAction, rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
