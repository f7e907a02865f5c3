package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/zelus/internal/app/system/validators"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{
		"users", "organizations", "members", "fractions", "user_fractions", "invites",
		"tickets", "ticket_categories", "ticket_comments", "ticket_events",
		"suppliers", "maintenance_records", "notifications", "audit_logs", "oauth_states",
	} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	user := primitive.NewObjectID()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid user", "users", bson.M{"name": "Ana", "email": "ana@example.pt", "email_ci": "ana@example.pt"}, false},
		{"user without email", "users", bson.M{"name": "Ana"}, true},
		{"user with blank name", "users", bson.M{"name": "   ", "email": "a@b.pt", "email_ci": "a@b.pt"}, true},

		{"valid member", "members", bson.M{"org_id": org, "user_id": user, "role": models.MemberRoleAdmin}, false},
		{"member with unknown role", "members", bson.M{"org_id": org, "user_id": user, "role": "superadmin"}, true},

		{"valid link", "user_fractions", bson.M{
			"org_id": org, "user_id": user, "fraction_id": primitive.NewObjectID(),
			"role": models.FractionRoleMember, "status": models.UserFractionPending,
		}, false},
		{"link with unknown status", "user_fractions", bson.M{
			"org_id": org, "user_id": user, "fraction_id": primitive.NewObjectID(),
			"role": models.FractionRoleMember, "status": "maybe",
		}, true},

		{"valid ticket", "tickets", bson.M{
			"org_id": org, "title": "Infiltração", "status": models.TicketOpen,
			"private": false, "created_by": user,
		}, false},
		{"ticket with unknown status", "tickets", bson.M{
			"org_id": org, "title": "Infiltração", "status": "reopened",
			"private": false, "created_by": user,
		}, true},
		{"ticket with unknown priority", "tickets", bson.M{
			"org_id": org, "title": "Infiltração", "status": models.TicketOpen,
			"priority": "critical", "private": false, "created_by": user,
		}, true},
		{"ticket without creator", "tickets", bson.M{
			"org_id": org, "title": "Infiltração", "status": models.TicketOpen, "private": false,
		}, true},

		{"valid invite", "invites", bson.M{
			"org_id": org, "email_ci": "rui@example.pt", "type": models.InviteTypeOrg,
			"role": models.InviteRoleOrgAdmin, "token": "abc", "status": models.InvitePending, "expires_at": now,
		}, false},
		{"invite with unknown type", "invites", bson.M{
			"org_id": org, "email_ci": "rui@example.pt", "type": "building",
			"role": models.InviteRoleOrgAdmin, "token": "abc", "status": models.InvitePending, "expires_at": now,
		}, true},

		{"valid maintenance", "maintenance_records", bson.M{
			"org_id": org, "title": "Revisão", "performed_at": now, "cost_cents": int64(1000),
		}, false},
		{"negative cost", "maintenance_records", bson.M{
			"org_id": org, "title": "Revisão", "performed_at": now, "cost_cents": int64(-1),
		}, true},

		{"comment without content", "ticket_comments", bson.M{
			"org_id": org, "ticket_id": primitive.NewObjectID(), "user_id": user, "content": "",
		}, true},
		{"notifications have no validator", "notifications", bson.M{"anything": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("insert into %s: err = %v, wantErr %v", tt.coll, err, tt.wantErr)
			}
		})
	}
}
