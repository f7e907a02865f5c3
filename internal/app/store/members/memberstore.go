// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
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
	return &Store{c: db.Collection("members")}
}

var (
	ErrDuplicateMember = errors.New("user is already a member of this organization")
	errBadRole         = errors.New(`role must be "owner"|"admin"|"member"`)
)

// Add links a user to an organization.
func (s *Store) Add(ctx context.Context, orgID, userID primitive.ObjectID, role string) (models.Member, error) {
	if !models.IsValidMemberRole(role) {
		return models.Member{}, errBadRole
	}
	m := models.Member{
		ID:        primitive.NewObjectID(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrDuplicateMember
		}
		return models.Member{}, err
	}
	return m, nil
}

// Ensure adds the user to the organization with role unless a member row
// already exists, in which case the existing row (and its role) is kept.
// It reports whether a row was created. Unlike Add it never fails with a
// duplicate key, so it is safe inside a transaction.
func (s *Store) Ensure(ctx context.Context, orgID, userID primitive.ObjectID, role string) (bool, error) {
	if !models.IsValidMemberRole(role) {
		return false, errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"org_id": orgID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"role":       role,
			"created_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// Get returns the member row for (orgID, userID), or nil when there is none.
func (s *Store) Get(ctx context.Context, orgID, userID primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"org_id": orgID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRole changes the organization role of an existing member.
func (s *Store) SetRole(ctx context.Context, orgID, userID primitive.ObjectID, role string) error {
	if !models.IsValidMemberRole(role) {
		return errBadRole
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"org_id": orgID, "user_id": userID}, bson.M{"$set": bson.M{"role": role}})
	return err
}

// ListByUser returns the user's memberships, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Member, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// ListByOrg returns the organization's members, oldest first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Member, error) {
	return s.find(ctx, bson.M{"org_id": orgID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
