// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateLabel = errors.New("a category with this label already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ticket_categories")}
}

func (s *Store) Create(ctx context.Context, orgID primitive.ObjectID, label string) (models.TicketCategory, error) {
	c := models.TicketCategory{
		ID:        primitive.NewObjectID(),
		OrgID:     orgID,
		Label:     label,
		LabelCI:   text.Fold(label),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.TicketCategory{}, ErrDuplicateLabel
		}
		return models.TicketCategory{}, err
	}
	return c, nil
}

// Get returns the category scoped to orgID, or nil when absent.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (*models.TicketCategory, error) {
	var c models.TicketCategory
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOrg returns categories ordered by label.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.TicketCategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "label_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TicketCategory
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LabelsByIDs maps category IDs in orgID to labels.
func (s *Store) LabelsByIDs(ctx context.Context, orgID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cats := []models.TicketCategory{}
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &cats); err != nil {
		return nil, err
	}
	for _, c := range cats {
		out[c.ID] = c.Label
	}
	return out, nil
}

// Delete removes the category and reports whether a row was deleted.
// Callers check ticket references first.
func (s *Store) Delete(ctx context.Context, orgID, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
