// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invites")}
}

// Create stores a pending invite with a fresh random token valid for ttl.
func (s *Store) Create(ctx context.Context, inv models.Invite, ttl time.Duration) (models.Invite, error) {
	now := time.Now().UTC()
	inv.ID = primitive.NewObjectID()
	inv.EmailCI = text.Fold(inv.Email)
	inv.Token = uuid.NewString()
	inv.Status = models.InvitePending
	inv.ExpiresAt = now.Add(ttl)
	inv.AcceptedAt = nil
	inv.CreatedAt = now
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		return models.Invite{}, err
	}
	return inv, nil
}

// GetByToken returns the invite with token, or nil when unknown.
func (s *Store) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, nil
	}
	var inv models.Invite
	err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByOrg returns the organization's invites, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Invite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Invite{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAccepted flips a pending, unexpired invite to accepted. It returns
// false when the invite was already used or has expired, so an invite can
// only be accepted once.
func (s *Store) MarkAccepted(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitePending, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"status": models.InviteAccepted, "accepted_at": now}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ExpireStale marks pending invites past their expiry as expired.
func (s *Store) ExpireStale(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"org_id": orgID, "status": models.InvitePending, "expires_at": bson.M{"$lte": time.Now().UTC()}},
		bson.M{"$set": bson.M{"status": models.InviteExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ExpireAllStale is ExpireStale across every organization. The housekeeping
// job runs it so invite lists stay accurate between admin visits.
func (s *Store) ExpireAllStale(ctx context.Context) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.InvitePending, "expires_at": bson.M{"$lte": time.Now().UTC()}},
		bson.M{"$set": bson.M{"status": models.InviteExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
