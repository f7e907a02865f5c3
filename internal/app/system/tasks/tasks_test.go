package tasks

import (
	"context"
	"testing"
	"time"

	invitestore "github.com/dalemusser/zelus/internal/app/store/invites"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.Add(Job{Name: "broken", Spec: "every now and then", Run: func(context.Context) error { return nil }})
	if err == nil {
		t.Error("expected an error for an invalid spec")
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	err := s.Add(Job{Name: "tick", Spec: "@every 1s", Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestInviteExpiryJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := invitestore.New(db)
	orgA, orgB := primitive.NewObjectID(), primitive.NewObjectID()
	newInvite := func(org primitive.ObjectID, ttl time.Duration) models.Invite {
		inv, err := store.Create(ctx, models.Invite{
			OrgID:     org,
			Email:     "rui@example.pt",
			EmailCI:   "rui@example.pt",
			Type:      models.InviteTypeOrg,
			Role:      models.InviteRoleOrgAdmin,
			InvitedBy: primitive.NewObjectID(),
		}, ttl)
		if err != nil {
			t.Fatalf("create invite: %v", err)
		}
		return inv
	}
	staleA := newInvite(orgA, -time.Minute)
	staleB := newInvite(orgB, -time.Minute)
	fresh := newInvite(orgA, time.Hour)

	if err := InviteExpiryJob(store, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	for _, tc := range []struct {
		inv  models.Invite
		want string
	}{
		{staleA, models.InviteExpired},
		{staleB, models.InviteExpired},
		{fresh, models.InvitePending},
	} {
		got, err := store.GetByToken(ctx, tc.inv.Token)
		if err != nil || got == nil {
			t.Fatalf("GetByToken(%s): %v", tc.inv.Token, err)
		}
		if got.Status != tc.want {
			t.Errorf("invite %s status = %q, want %q", tc.inv.Token, got.Status, tc.want)
		}
	}
}
