// internal/app/store/tickets/ticketstore.go
package ticketstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
Store is the persistence layer for tickets. It knows nothing about
visibility; callers pass fully scoped filters built by the ticket service.
*/
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tickets")}
}

// Insert assigns ID and timestamps and stores the ticket.
func (s *Store) Insert(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

// Find returns tickets matching filter, newest first. limit <= 0 means no limit.
func (s *Store) Find(ctx context.Context, filter bson.M, limit int64) ([]models.Ticket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Ticket{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the first ticket matching filter, or nil when none does.
func (s *Store) FindOne(ctx context.Context, filter bson.M) (*models.Ticket, error) {
	var t models.Ticket
	err := s.c.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Set applies set (and unset keys) to the ticket matching filter and bumps
// updated_at. It returns the updated document, or nil when nothing matched.
func (s *Store) Set(ctx context.Context, filter bson.M, set bson.M, unset []string) (*models.Ticket, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		u := bson.M{}
		for _, k := range unset {
			u[k] = ""
		}
		update["$unset"] = u
	}
	var t models.Ticket
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SwapStatus sets the status of the ticket matching filter in a single
// atomic write and returns the document as it was before the write, so the
// previous status is exactly the one replaced. Returns nil when nothing
// matched.
func (s *Store) SwapStatus(ctx context.Context, filter bson.M, status string) (*models.Ticket, error) {
	var before models.Ticket
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Count returns the number of tickets matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// CountByCategory returns how many tickets in orgID reference categoryID.
func (s *Store) CountByCategory(ctx context.Context, orgID, categoryID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"org_id": orgID, "category_id": categoryID})
}
