package ticketservice_test

import (
	"context"
	"errors"
	"testing"

	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type world struct {
	db    *mongo.Database
	svc   *ticketservice.Service
	audit *audit.Store
	fx    *testutil.Fixtures
	org   models.Organization
	alice models.User
	bob   models.User
}

func setup(t *testing.T, ctx context.Context) world {
	t.Helper()
	db := testutil.SetupTestDB(t)
	auditStore := audit.New(db)
	logger := auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB, Org: auditlog.ModeDB})
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Edifício Aurora")
	alice := fx.CreateUser(ctx, "Alice", "alice@example.pt")
	bob := fx.CreateUser(ctx, "Bob", "bob@example.pt")
	fx.AddMember(ctx, org, alice, models.MemberRoleMember)
	fx.AddMember(ctx, org, bob, models.MemberRoleMember)

	return world{
		db:    db,
		svc:   ticketservice.New(nil, db, logger, zap.NewNop()),
		audit: auditStore,
		fx:    fx,
		org:   org,
		alice: alice,
		bob:   bob,
	}
}

func strPtr(s string) *string { return &s }

func TestVisibilityFilter(t *testing.T) {
	orgID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	catID := primitive.NewObjectID()

	q := ticketservice.VisibilityFilter(orgID, userID, ticketservice.Filters{Status: models.TicketOpen, CategoryID: &catID})

	if q["org_id"] != orgID {
		t.Errorf("org_id = %v", q["org_id"])
	}
	if q["status"] != models.TicketOpen {
		t.Errorf("status = %v", q["status"])
	}
	if q["category_id"] != catID {
		t.Errorf("category_id = %v", q["category_id"])
	}
	if _, ok := q["priority"]; ok {
		t.Error("empty priority filter should be omitted")
	}
	or, ok := q["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected a two-branch $or, got %#v", q["$or"])
	}
	own, _ := or[1].(bson.M)
	if own["created_by"] != userID {
		t.Errorf("private branch should be restricted to the caller, got %#v", own)
	}
}

func TestCreate_AuditsTitle(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk, err := w.svc.Create(ctx, w.org.ID, ticketservice.CreateInput{Title: "  Fuga de água  ", Description: "Na garagem"}, w.alice.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tk.Title != "Fuga de água" || tk.Status != models.TicketOpen || tk.Private {
		t.Errorf("unexpected ticket: %+v", tk)
	}

	events, err := w.audit.Query(ctx, audit.QueryFilter{OrgID: &w.org.ID, Action: audit.ActionTicketCreated})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Metadata["title"] != "Fuga de água" {
		t.Errorf("metadata = %v", events[0].Metadata)
	}
	if events[0].EntityID == nil || *events[0].EntityID != tk.ID {
		t.Errorf("entity id = %v, want %s", events[0].EntityID, tk.ID.Hex())
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	otherOrg := w.fx.CreateOrganization(ctx, "Outro")
	foreignCat := w.fx.CreateCategory(ctx, otherOrg, "Elevadores")

	tests := []struct {
		name string
		in   ticketservice.CreateInput
		want error
	}{
		{"blank title", ticketservice.CreateInput{Title: "   "}, ticketservice.ErrTitleRequired},
		{"bad priority", ticketservice.CreateInput{Title: "x", Priority: strPtr("critical")}, ticketservice.ErrInvalidPriority},
		{"foreign category", ticketservice.CreateInput{Title: "x", CategoryID: &foreignCat.ID}, ticketservice.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.svc.Create(ctx, w.org.ID, tt.in, w.alice.ID); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestList_PrivateTicketsVisibleOnlyToCreator(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	public := w.fx.CreateTicket(ctx, w.org, w.alice, "Luz da escada", false)
	private := w.fx.CreateTicket(ctx, w.org, w.alice, "Infiltração", true)

	aliceList, err := w.svc.List(ctx, w.org.ID, w.alice.ID, ticketservice.Filters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(aliceList) != 2 {
		t.Errorf("creator should see 2 tickets, got %d", len(aliceList))
	}

	bobList, err := w.svc.List(ctx, w.org.ID, w.bob.ID, ticketservice.Filters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(bobList) != 1 || bobList[0].ID != public.ID {
		t.Errorf("other member should only see the public ticket, got %+v", bobList)
	}

	// A hidden ticket and a nonexistent id give the same answer.
	hidden, err := w.svc.Get(ctx, w.org.ID, private.ID, w.bob.ID)
	if err != nil {
		t.Fatalf("Get(hidden) failed: %v", err)
	}
	missing, err := w.svc.Get(ctx, w.org.ID, primitive.NewObjectID(), w.bob.ID)
	if err != nil {
		t.Fatalf("Get(missing) failed: %v", err)
	}
	if hidden != nil || missing != nil {
		t.Errorf("Get(hidden) = %v, Get(missing) = %v; want both nil", hidden, missing)
	}

	n, err := w.svc.Count(ctx, w.org.ID, w.bob.ID, ticketservice.Filters{})
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v; want 1", n, err)
	}
}

func TestList_JoinsLabels(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	fr := w.fx.CreateFraction(ctx, w.org, "1D")
	cat := w.fx.CreateCategory(ctx, w.org, "Canalização")

	if _, err := w.svc.Create(ctx, w.org.ID, ticketservice.CreateInput{
		Title:      "Fuga de água",
		FractionID: &fr.ID,
		CategoryID: &cat.ID,
		Priority:   strPtr(models.PriorityHigh),
	}, w.alice.ID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.svc.Create(ctx, w.org.ID, ticketservice.CreateInput{Title: "Sem categoria"}, w.alice.ID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	items, err := w.svc.List(ctx, w.org.ID, w.bob.ID, ticketservice.Filters{CategoryID: &cat.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 ticket in category, got %d", len(items))
	}
	it := items[0]
	if it.FractionLabel != "1D" || it.CategoryLabel != "Canalização" || it.CreatorName != "Alice" {
		t.Errorf("unexpected labels: fraction=%q category=%q creator=%q", it.FractionLabel, it.CategoryLabel, it.CreatorName)
	}

	all, err := w.svc.List(ctx, w.org.ID, w.bob.ID, ticketservice.Filters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(all))
	}
	for _, it := range all {
		if it.Title == "Sem categoria" && (it.CategoryLabel != "" || it.FractionLabel != "") {
			t.Errorf("ticket without references should have empty labels, got %+v", it)
		}
	}
}

func TestList_OtherOrganizationIsolated(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	other := w.fx.CreateOrganization(ctx, "Outro")
	w.fx.CreateTicket(ctx, other, w.alice, "Noutra organização", false)

	items, err := w.svc.List(ctx, w.org.ID, w.alice.ID, ticketservice.Filters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no tickets, got %d", len(items))
	}
}

func TestUpdateStatus_RecordsEvents(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Portão avariado", false)

	first, err := w.svc.UpdateStatus(ctx, w.org.ID, tk.ID, models.TicketInProgress, w.bob.ID)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if first == nil || first.Event.FromStatus != models.TicketOpen || first.Event.ToStatus != models.TicketInProgress {
		t.Fatalf("unexpected first change: %+v", first)
	}
	if first.Ticket.Status != models.TicketInProgress {
		t.Errorf("ticket status = %q", first.Ticket.Status)
	}

	if _, err := w.svc.UpdateStatus(ctx, w.org.ID, tk.ID, models.TicketResolved, w.bob.ID); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	events, err := w.svc.ListEvents(ctx, w.org.ID, tk.ID, w.alice.ID)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].FromStatus != models.TicketOpen || events[0].ToStatus != models.TicketInProgress {
		t.Errorf("event[0] = %s -> %s", events[0].FromStatus, events[0].ToStatus)
	}
	if events[1].FromStatus != models.TicketInProgress || events[1].ToStatus != models.TicketResolved {
		t.Errorf("event[1] = %s -> %s", events[1].FromStatus, events[1].ToStatus)
	}
	if events[0].UserName != "Bob" {
		t.Errorf("event user = %q, want Bob", events[0].UserName)
	}

	audits, err := w.audit.Query(ctx, audit.QueryFilter{OrgID: &w.org.ID, Action: audit.ActionTicketStatusChanged})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(audits) != 2 {
		t.Errorf("expected 2 status audits, got %d", len(audits))
	}

	// Bob changed Alice's ticket, so Alice is notified.
	var unread int64
	unread, err = w.db.Collection("notifications").CountDocuments(ctx, bson.M{"user_id": w.alice.ID, "type": models.NotificationTicketStatus})
	if err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if unread != 2 {
		t.Errorf("expected 2 status notifications, got %d", unread)
	}
}

func TestUpdateStatus_SameStatusStillRecorded(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Campainha", false)

	change, err := w.svc.UpdateStatus(ctx, w.org.ID, tk.ID, models.TicketOpen, w.alice.ID)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if change == nil || change.Event.FromStatus != models.TicketOpen || change.Event.ToStatus != models.TicketOpen {
		t.Fatalf("unexpected change: %+v", change)
	}

	n, err := w.db.Collection("ticket_events").CountDocuments(ctx, bson.M{"ticket_id": tk.ID})
	if err != nil || n != 1 {
		t.Errorf("events = %d, %v; want 1", n, err)
	}
	// the creator acting on their own ticket is not notified
	if m, _ := w.db.Collection("notifications").CountDocuments(ctx, bson.M{"user_id": w.alice.ID}); m != 0 {
		t.Errorf("expected no notifications, got %d", m)
	}
}

func TestUpdateStatus_InvalidAndMissing(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Privado", true)

	if _, err := w.svc.UpdateStatus(ctx, w.org.ID, tk.ID, "archived", w.alice.ID); !errors.Is(err, ticketservice.ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}

	change, err := w.svc.UpdateStatus(ctx, w.org.ID, primitive.NewObjectID(), models.TicketClosed, w.alice.ID)
	if err != nil || change != nil {
		t.Errorf("missing ticket: change=%v err=%v", change, err)
	}

	// A ticket of another organization behaves as missing.
	other := w.fx.CreateOrganization(ctx, "Edifício Boreal")
	change, err = w.svc.UpdateStatus(ctx, other.ID, tk.ID, models.TicketClosed, w.alice.ID)
	if err != nil || change != nil {
		t.Errorf("foreign org: change=%v err=%v", change, err)
	}
	if n, _ := w.db.Collection("ticket_events").CountDocuments(ctx, bson.M{"ticket_id": tk.ID}); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}
}

func TestUpdateStatus_PrivateTicketScopedByOrgOnly(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Infiltração", true)

	change, err := w.svc.UpdateStatus(ctx, w.org.ID, tk.ID, models.TicketInProgress, w.bob.ID)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if change == nil || change.Event.FromStatus != models.TicketOpen {
		t.Fatalf("unexpected change: %+v", change)
	}
	if n, _ := w.db.Collection("ticket_events").CountDocuments(ctx, bson.M{"ticket_id": tk.ID}); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}

	updated, err := w.svc.Update(ctx, w.org.ID, tk.ID, ticketservice.Patch{Title: strPtr("Infiltração no 3.º")}, w.bob.ID)
	if err != nil || updated == nil {
		t.Fatalf("Update = %v, %v", updated, err)
	}

	// Get still hides it from Bob.
	if got, err := w.svc.Get(ctx, w.org.ID, tk.ID, w.bob.ID); err != nil || got != nil {
		t.Errorf("Get(hidden) = %v, %v; want nil, nil", got, err)
	}
}

func TestUpdate_AuditsOnlyWhenMatched(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Antigo", false)
	cat := w.fx.CreateCategory(ctx, w.org, "Limpeza")

	updated, err := w.svc.Update(ctx, w.org.ID, tk.ID, ticketservice.Patch{
		Title:      strPtr("Novo título"),
		CategoryID: &cat.ID,
		Priority:   strPtr(models.PriorityLow),
	}, w.alice.ID)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated == nil || updated.Title != "Novo título" || updated.CategoryID == nil || *updated.CategoryID != cat.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	// clearing optional fields
	zero := primitive.NilObjectID
	cleared, err := w.svc.Update(ctx, w.org.ID, tk.ID, ticketservice.Patch{CategoryID: &zero, Priority: strPtr("")}, w.alice.ID)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if cleared == nil || cleared.CategoryID != nil || cleared.Priority != nil {
		t.Errorf("expected category and priority cleared, got %+v", cleared)
	}

	missing, err := w.svc.Update(ctx, w.org.ID, primitive.NewObjectID(), ticketservice.Patch{Title: strPtr("x")}, w.alice.ID)
	if err != nil || missing != nil {
		t.Errorf("missing ticket: %v, %v", missing, err)
	}

	audits, err := w.audit.Query(ctx, audit.QueryFilter{OrgID: &w.org.ID, Action: audit.ActionTicketUpdated})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(audits) != 2 {
		t.Errorf("expected 2 update audits, got %d", len(audits))
	}
}

func TestAddComment(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	tk := w.fx.CreateTicket(ctx, w.org, w.alice, "Garagem", false)

	if _, err := w.svc.AddComment(ctx, w.org.ID, tk.ID, w.bob.ID, "  <p></p> "); !errors.Is(err, ticketservice.ErrEmptyComment) {
		t.Errorf("err = %v, want ErrEmptyComment", err)
	}

	c, err := w.svc.AddComment(ctx, w.org.ID, tk.ID, w.bob.ID, `Já liguei ao técnico<script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if c == nil || c.Content != "Já liguei ao técnico" {
		t.Fatalf("unexpected comment: %+v", c)
	}

	comments, err := w.svc.ListComments(ctx, w.org.ID, tk.ID, w.alice.ID)
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(comments) != 1 || comments[0].AuthorName != "Bob" {
		t.Errorf("unexpected comments: %+v", comments)
	}

	n, _ := w.db.Collection("notifications").CountDocuments(ctx, bson.M{"user_id": w.alice.ID, "type": models.NotificationTicketComment})
	if n != 1 {
		t.Errorf("expected 1 comment notification, got %d", n)
	}

	hidden := w.fx.CreateTicket(ctx, w.org, w.alice, "Privado", true)
	got, err := w.svc.AddComment(ctx, w.org.ID, hidden.ID, w.bob.ID, "olá")
	if err != nil || got != nil {
		t.Errorf("comment on hidden ticket: %v, %v", got, err)
	}
}
