package fractionservice_test

import (
	"errors"
	"testing"
	"time"

	fractionservice "github.com/dalemusser/zelus/internal/app/services/fractions"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/indexes"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.uber.org/zap"
)

func TestCreateMany_SkipsBlankAndDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Edifício Aurora")
	owner := fx.CreateUser(ctx, "Ana", "ana@example.pt")

	svc := fractionservice.New(db, nil)
	created, err := svc.CreateMany(ctx, org.ID, []string{"1D", " ", "1E", "1d"}, owner.ID)
	if err != nil {
		t.Fatalf("CreateMany failed: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("expected 2 fractions created, got %d", len(created))
	}

	n, err := svc.Count(ctx, org.ID)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
}

func TestCreate_RequiresLabel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Edifício Aurora")

	svc := fractionservice.New(db, nil)
	if _, err := svc.Create(ctx, org.ID, "  ", "", org.CreatedBy); !errors.Is(err, fractionservice.ErrLabelRequired) {
		t.Errorf("err = %v, want ErrLabelRequired", err)
	}
}

func TestJoinApproveFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Edifício Aurora")
	admin := fx.CreateUser(ctx, "Ana", "ana@example.pt")
	resident := fx.CreateUser(ctx, "Rui", "rui@example.pt")
	fr := fx.CreateFraction(ctx, org, "2E")

	auditStore := audit.New(db)
	svc := fractionservice.New(db, auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Org: auditlog.ModeDB}))

	if _, err := svc.RequestJoin(ctx, org.ID, fr.ID, resident.ID, "landlord"); !errors.Is(err, fractionservice.ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
	other := fx.CreateOrganization(ctx, "Outro")
	foreign := fx.CreateFraction(ctx, other, "9Z")
	if _, err := svc.RequestJoin(ctx, org.ID, foreign.ID, resident.ID, models.FractionRoleMember); !errors.Is(err, fractionservice.ErrUnknownFraction) {
		t.Errorf("err = %v, want ErrUnknownFraction", err)
	}

	uf, err := svc.RequestJoin(ctx, org.ID, fr.ID, resident.ID, models.FractionRoleOwnerAdmin)
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if uf.Status != models.UserFractionPending {
		t.Errorf("status = %q, want pending", uf.Status)
	}

	pending, err := svc.Pending(ctx, org.ID)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].UserName != "Rui" || pending[0].FractionLabel != "2E" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	ok, err := svc.Approve(ctx, org.ID, uf.ID, admin.ID)
	if err != nil || !ok {
		t.Fatalf("Approve: ok=%v err=%v", ok, err)
	}
	// a decided request cannot be decided again
	ok, err = svc.Reject(ctx, org.ID, uf.ID, admin.ID)
	if err != nil || ok {
		t.Errorf("second decision: ok=%v err=%v", ok, err)
	}

	list, err := svc.List(ctx, org.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Members) != 1 || list[0].Members[0].UserName != "Rui" {
		t.Errorf("unexpected list: %+v", list)
	}

	for _, action := range []string{audit.ActionFractionJoinRequested, audit.ActionUserFractionApproved} {
		n, err := auditStore.Count(ctx, audit.QueryFilter{OrgID: &org.ID, Action: action})
		if err != nil || n != 1 {
			t.Errorf("audit %s: count=%d err=%v", action, n, err)
		}
	}
}

func TestMine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Edifício Aurora")
	u := fx.CreateUser(ctx, "Rui", "rui@example.pt")
	fx.LinkFraction(ctx, u, fx.CreateFraction(ctx, org, "1A"), models.FractionRoleMember, models.UserFractionApproved, time.Now().UTC())
	fx.LinkFraction(ctx, u, fx.CreateFraction(ctx, org, "1B"), models.FractionRoleMember, models.UserFractionRejected, time.Now().UTC())

	mine, err := fractionservice.New(db, nil).Mine(ctx, org.ID, u.ID)
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 links, got %d", len(mine))
	}
}
