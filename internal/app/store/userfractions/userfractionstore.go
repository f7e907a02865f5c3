// internal/app/store/userfractions/userfractionstore.go
package userfractionstore

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

var (
	ErrDuplicateLink = errors.New("user is already linked to this fraction")
	errBadRole       = errors.New(`role must be "fraction_owner_admin"|"fraction_member"`)
	errBadStatus     = errors.New(`status must be "pending"|"approved"|"rejected"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("user_fractions")}
}

func validStatus(s string) bool {
	return s == models.UserFractionPending || s == models.UserFractionApproved || s == models.UserFractionRejected
}

// Create inserts a user-fraction link.
func (s *Store) Create(ctx context.Context, uf models.UserFraction) (models.UserFraction, error) {
	if !models.IsValidFractionRole(uf.Role) {
		return models.UserFraction{}, errBadRole
	}
	if !validStatus(uf.Status) {
		return models.UserFraction{}, errBadStatus
	}
	now := time.Now().UTC()
	uf.ID = primitive.NewObjectID()
	uf.CreatedAt = now
	uf.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, uf); err != nil {
		if wafflemongo.IsDup(err) {
			return models.UserFraction{}, ErrDuplicateLink
		}
		return models.UserFraction{}, err
	}
	return uf, nil
}

// FindApproved returns the approved link that decides the user's fraction
// role in orgID, or nil when there is none. When several approved links
// exist the oldest wins (created_at, then _id).
func (s *Store) FindApproved(ctx context.Context, orgID, userID primitive.ObjectID) (*models.UserFraction, error) {
	var uf models.UserFraction
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	err := s.c.FindOne(ctx, bson.M{
		"org_id":  orgID,
		"user_id": userID,
		"status":  models.UserFractionApproved,
	}, opts).Decode(&uf)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &uf, nil
}

// Get returns a link scoped to orgID, or nil when absent.
func (s *Store) Get(ctx context.Context, orgID, id primitive.ObjectID) (*models.UserFraction, error) {
	var uf models.UserFraction
	err := s.c.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&uf)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &uf, nil
}

// ListByOrgStatus returns links in orgID with the given status, oldest first.
func (s *Store) ListByOrgStatus(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.UserFraction, error) {
	return s.find(ctx, bson.M{"org_id": orgID, "status": status})
}

// ListByUser returns every link the user has in orgID.
func (s *Store) ListByUser(ctx context.Context, orgID, userID primitive.ObjectID) ([]models.UserFraction, error) {
	return s.find(ctx, bson.M{"org_id": orgID, "user_id": userID})
}

// SetStatus moves a pending link to approved or rejected. It reports
// whether a pending row was changed.
func (s *Store) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) (bool, error) {
	if status != models.UserFractionApproved && status != models.UserFractionRejected {
		return false, errBadStatus
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "status": models.UserFractionPending},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Upsert sets role and status for (userID, fractionID), creating the link
// when missing. Used when an invite is accepted.
func (s *Store) Upsert(ctx context.Context, uf models.UserFraction) error {
	if !models.IsValidFractionRole(uf.Role) {
		return errBadRole
	}
	if !validStatus(uf.Status) {
		return errBadStatus
	}
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": uf.UserID, "fraction_id": uf.FractionID},
		bson.M{
			"$set": bson.M{"role": uf.Role, "status": uf.Status, "updated_at": now},
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"org_id":     uf.OrgID,
				"invited_by": uf.InvitedBy,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.UserFraction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.UserFraction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
