// internal/app/store/suppliers/supplierstore.go
package supplierstore

import (
	"context"
	"errors"
	"time"

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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("suppliers")}
}

func (s *Store) Create(ctx context.Context, sp models.Supplier) (models.Supplier, error) {
	now := time.Now().UTC()
	sp.ID = primitive.NewObjectID()
	sp.NameCI = text.Fold(sp.Name)
	sp.CreatedAt = now
	sp.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sp); err != nil {
		return models.Supplier{}, err
	}
	return sp, nil
}

// Get returns the supplier scoped to orgID, or nil when absent.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (*models.Supplier, error) {
	var sp models.Supplier
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&sp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListByOrg returns suppliers ordered by name. A non-empty query narrows
// the list to names starting with it (case and accent insensitive).
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, query string) ([]models.Supplier, error) {
	filter := bson.M{"org_id": orgID}
	if q := text.Fold(query); q != "" {
		hi := q + "\uffff"
		filter["name_ci"] = bson.M{"$gte": q, "$lt": hi}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Supplier{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByIDs maps supplier IDs in orgID to names.
func (s *Store) NamesByIDs(ctx context.Context, orgID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Name
	}
	return out, cur.Err()
}

// Delete removes a supplier and reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, orgID, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
