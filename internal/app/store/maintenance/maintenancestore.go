// internal/app/store/maintenance/maintenancestore.go
package maintenancestore

import (
	"context"
	"time"

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
	return &Store{c: db.Collection("maintenance_records")}
}

func (s *Store) Create(ctx context.Context, rec models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = time.Now().UTC()
	if rec.PerformedAt.IsZero() {
		rec.PerformedAt = rec.CreatedAt
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.MaintenanceRecord{}, err
	}
	return rec, nil
}

// ListByOrg returns records most recently performed first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, limit int64) ([]models.MaintenanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "performed_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.MaintenanceRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountBySupplier returns the number of records referencing supplierID.
func (s *Store) CountBySupplier(ctx context.Context, orgID, supplierID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"org_id": orgID, "supplier_id": supplierID})
}
