package commentstore_test

import (
	"testing"

	commentstore "github.com/dalemusser/zelus/internal/app/store/comments"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_InsertList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := commentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID, ticketID := primitive.NewObjectID(), primitive.NewObjectID()
	for _, body := range []string{"Já liguei ao técnico.", "Vem amanhã."} {
		if _, err := store.Insert(ctx, models.TicketComment{OrgID: orgID, TicketID: ticketID, UserID: primitive.NewObjectID(), Content: body}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	list, err := store.ListByTicket(ctx, orgID, ticketID)
	if err != nil {
		t.Fatalf("ListByTicket failed: %v", err)
	}
	if len(list) != 2 || list[0].Content != "Já liguei ao técnico." {
		t.Errorf("unexpected comments: %+v", list)
	}
}
