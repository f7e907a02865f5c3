package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/zelus/internal/app/features/dashboard"
	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	orgstore "github.com/dalemusser/zelus/internal/app/store/organizations"
	userfractionstore "github.com/dalemusser/zelus/internal/app/store/userfractions"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(db *mongo.Database) *dashboard.Handler {
	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{})
	return dashboard.NewHandler(ticketservice.New(nil, db, al, logger), fractionservice.New(db, al), logger)
}

func TestServeDashboard_NoOrgContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/onboarding" {
		t.Errorf("got %d %q, want 303 /onboarding", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoadStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	ana := fx.CreateUser(ctx, "Ana", "ana@example.pt")
	rui := fx.CreateUser(ctx, "Rui", "rui@example.pt")
	org := fx.CreateOrganization(ctx, "Aurora")
	other := fx.CreateOrganization(ctx, "Boavista")

	f1 := fx.CreateFraction(ctx, org, "1D")
	fx.CreateFraction(ctx, org, "2E")
	fx.CreateFraction(ctx, other, "1A")
	fx.LinkFraction(ctx, ana, f1, models.FractionRoleOwnerAdmin, models.UserFractionApproved, time.Now())

	fx.CreateTicket(ctx, org, ana, "Fuga de água", false)
	fx.CreateTicket(ctx, org, ana, "Barulho", true)
	fx.CreateTicket(ctx, org, rui, "Privada do Rui", true)
	fx.CreateTicket(ctx, other, ana, "Noutro prédio", false)

	h := newTestHandler(db)
	req := testutil.WithOrg(httptest.NewRequest("GET", "/dashboard", nil), ana, org, authz.RoleFractionOwnerAdmin)
	oc, _ := authz.FromRequest(req)

	st, err := h.LoadStats(ctx, oc)
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if st.Total != 2 {
		t.Errorf("Total = %d, want 2 (other users' private tickets are hidden)", st.Total)
	}
	if st.Open != 2 || st.ByStatus[models.TicketOpen] != 2 {
		t.Errorf("Open = %d, ByStatus[open] = %d, want 2", st.Open, st.ByStatus[models.TicketOpen])
	}
	if st.Fractions != 2 {
		t.Errorf("Fractions = %d, want 2", st.Fractions)
	}
	if st.Mine != 1 {
		t.Errorf("Mine = %d, want 1", st.Mine)
	}
	if len(st.Recent) != 2 {
		t.Errorf("Recent = %d rows, want 2", len(st.Recent))
	}
}

func TestRoutes_RequiresSignIn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sm := testutil.NewSessionManager(t)
	guard := authz.NewGuard(authz.NewResolver(memberstore.New(db), userfractionstore.New(db)), orgstore.New(db), zap.NewNop())

	router := dashboard.Routes(newTestHandler(db), sm, guard)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewHTMLRequest("GET", "/"))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303 to login", rec.Code)
	}
}
