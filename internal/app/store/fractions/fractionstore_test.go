package fractionstore_test

import (
	"errors"
	"testing"

	fractionstore "github.com/dalemusser/zelus/internal/app/store/fractions"
	"github.com/dalemusser/zelus/internal/app/system/indexes"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dalemusser/zelus/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_CreateListCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := fractionstore.New(db)
	orgID := primitive.NewObjectID()

	var ids []primitive.ObjectID
	for _, label := range []string{"2E", "1D", "R/C"} {
		f, err := store.Create(ctx, models.Fraction{OrgID: orgID, Label: label})
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", label, err)
		}
		ids = append(ids, f.ID)
	}
	if _, err := store.Create(ctx, models.Fraction{OrgID: orgID, Label: "1d"}); !errors.Is(err, fractionstore.ErrDuplicateLabel) {
		t.Errorf("expected ErrDuplicateLabel, got %v", err)
	}
	// same label in another org is fine
	if _, err := store.Create(ctx, models.Fraction{OrgID: primitive.NewObjectID(), Label: "1D"}); err != nil {
		t.Errorf("Create in other org failed: %v", err)
	}

	list, err := store.ListByOrg(ctx, orgID)
	if err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}
	if len(list) != 3 || list[0].Label != "1D" || list[1].Label != "2E" {
		t.Errorf("unexpected order: %+v", list)
	}

	n, err := store.Count(ctx, orgID)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}

	labels, err := store.LabelsByIDs(ctx, orgID, ids)
	if err != nil {
		t.Fatalf("LabelsByIDs failed: %v", err)
	}
	if labels[ids[0]] != "2E" || len(labels) != 3 {
		t.Errorf("LabelsByIDs = %v", labels)
	}
}

func TestStore_Get_ScopedToOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := fractionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	f, err := store.Create(ctx, models.Fraction{OrgID: orgID, Label: "1D"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, err := store.Get(ctx, orgID, f.ID); err != nil || got == nil {
		t.Errorf("Get in org = %v, %v", got, err)
	}
	if got, err := store.Get(ctx, primitive.NewObjectID(), f.ID); err != nil || got != nil {
		t.Errorf("Get in other org = %v, %v; want nil", got, err)
	}
}
