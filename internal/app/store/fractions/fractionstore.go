// internal/app/store/fractions/fractionstore.go
package fractionstore

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

var ErrDuplicateLabel = errors.New("a fraction with this label already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("fractions")}
}

// Create inserts a fraction. Labels are unique per organization, ignoring
// case and diacritics.
func (s *Store) Create(ctx context.Context, f models.Fraction) (models.Fraction, error) {
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.LabelCI = text.Fold(f.Label)
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Fraction{}, ErrDuplicateLabel
		}
		return models.Fraction{}, err
	}
	return f, nil
}

// Get returns the fraction scoped to orgID, or nil when absent.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (*models.Fraction, error) {
	var f models.Fraction
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByOrg returns the organization's fractions ordered by label.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Fraction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "label_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Fraction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LabelsByIDs maps fraction IDs in orgID to labels.
func (s *Store) LabelsByIDs(ctx context.Context, orgID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "label": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Label string             `bson:"label"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Label
	}
	return out, cur.Err()
}

// Count returns the number of fractions in orgID.
func (s *Store) Count(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"org_id": orgID})
}
