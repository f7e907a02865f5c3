package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{Action: "test"})
	logger.Record(ctx, primitive.NewObjectID(), primitive.NewObjectID(), audit.ActionTicketCreated, audit.EntityTicket, primitive.NewObjectID(), nil)
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "password")
	logger.Logout(ctx, req, primitive.NilObjectID)
}

func TestLogger_ModeLogOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// no store: "log" mode must never touch it
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Org: auditlog.ModeLog, Auth: auditlog.ModeOff})

	orgID := primitive.NewObjectID()
	logger.Record(ctx, orgID, primitive.NewObjectID(), audit.ActionCategoryDeleted, audit.EntityCategory, primitive.NewObjectID(),
		map[string]any{"label": "Limpeza"})
	logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/login", nil), primitive.NewObjectID(), "password")

	entries := logs.FilterField(zap.Bool("audit", true)).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["action"] != audit.ActionCategoryDeleted {
		t.Errorf("action = %v", fields["action"])
	}
	if fields["org_id"] != orgID.Hex() {
		t.Errorf("org_id = %v", fields["org_id"])
	}
}

func TestLogger_ModeDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Org: auditlog.ModeDB, Auth: auditlog.ModeOff})

	orgID, userID, ticketID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.Record(ctx, orgID, userID, audit.ActionTicketStatusChanged, audit.EntityTicket, ticketID,
		map[string]any{"from": "open", "to": "in_progress"})
	logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/login", nil), userID, "password")

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &userID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected only the org event to be stored, got %d", len(events))
	}
	ev := events[0]
	if ev.Action != audit.ActionTicketStatusChanged || *ev.EntityID != ticketID || *ev.OrgID != orgID {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Metadata["from"] != "open" || ev.Metadata["to"] != "in_progress" {
		t.Errorf("metadata = %v", ev.Metadata)
	}
}
