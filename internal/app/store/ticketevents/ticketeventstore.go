// internal/app/store/ticketevents/ticketeventstore.go
package ticketeventstore

import (
	"context"
	"time"

	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is append-only: events are inserted and read, never changed.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ticket_events")}
}

func (s *Store) Insert(ctx context.Context, ev models.TicketEvent) (models.TicketEvent, error) {
	ev.ID = primitive.NewObjectID()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.TicketEvent{}, err
	}
	return ev, nil
}

// ListByTicket returns a ticket's status history, oldest first.
func (s *Store) ListByTicket(ctx context.Context, orgID, ticketID primitive.ObjectID) ([]models.TicketEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID, "ticket_id": ticketID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TicketEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByTicket returns how many status changes a ticket has recorded.
func (s *Store) CountByTicket(ctx context.Context, ticketID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"ticket_id": ticketID})
}
