package memberstore_test

import (
	"errors"
	"testing"

	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	"github.com/dalemusser/zelus/internal/app/system/indexes"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_AddAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := memberstore.New(db)

	orgID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := store.Add(ctx, orgID, userID, models.MemberRoleMember); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := store.Add(ctx, orgID, userID, models.MemberRoleAdmin); !errors.Is(err, memberstore.ErrDuplicateMember) {
		t.Errorf("expected ErrDuplicateMember, got %v", err)
	}

	m, err := store.Get(ctx, orgID, userID)
	if err != nil || m == nil {
		t.Fatalf("Get = %v, %v", m, err)
	}
	if m.Role != models.MemberRoleMember {
		t.Errorf("role = %q", m.Role)
	}

	if err := store.SetRole(ctx, orgID, userID, models.MemberRoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	m, _ = store.Get(ctx, orgID, userID)
	if m.Role != models.MemberRoleAdmin {
		t.Errorf("role after SetRole = %q", m.Role)
	}
}

func TestStore_Get_Absent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := store.Get(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil || m != nil {
		t.Errorf("Get(absent) = %v, %v; want nil, nil", m, err)
	}
}

func TestStore_Add_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Add(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_Ensure_KeepsExistingRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := memberstore.New(db)
	orgID, userID := primitive.NewObjectID(), primitive.NewObjectID()

	created, err := store.Ensure(ctx, orgID, userID, models.MemberRoleAdmin)
	if err != nil || !created {
		t.Fatalf("first Ensure = %v, %v; want true, nil", created, err)
	}
	created, err = store.Ensure(ctx, orgID, userID, models.MemberRoleMember)
	if err != nil || created {
		t.Fatalf("second Ensure = %v, %v; want false, nil", created, err)
	}

	m, err := store.Get(ctx, orgID, userID)
	if err != nil || m == nil {
		t.Fatalf("Get = %v, %v", m, err)
	}
	if m.Role != models.MemberRoleAdmin {
		t.Errorf("role = %q, want the original %q", m.Role, models.MemberRoleAdmin)
	}
	if m.ID.IsZero() || m.CreatedAt.IsZero() {
		t.Errorf("inserted row missing id or created_at: %+v", m)
	}

	ms, err := store.ListByOrg(ctx, orgID)
	if err != nil || len(ms) != 1 {
		t.Errorf("ListByOrg = %d rows (err %v), want 1", len(ms), err)
	}
}
