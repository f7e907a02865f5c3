// internal/domain/models/supplier.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supplier is a contractor or service provider the organization works with.
type Supplier struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrgID     primitive.ObjectID `bson:"org_id"`
	Name      string             `bson:"name"`
	NameCI    string             `bson:"name_ci"`
	Category  string             `bson:"category,omitempty"`
	Phone     string             `bson:"phone,omitempty"`
	Email     string             `bson:"email,omitempty"`
	Website   string             `bson:"website,omitempty"`
	Address   string             `bson:"address,omitempty"`
	Notes     string             `bson:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// MaintenanceRecord logs work performed on the building, optionally by a supplier.
type MaintenanceRecord struct {
	ID          primitive.ObjectID  `bson:"_id"`
	OrgID       primitive.ObjectID  `bson:"org_id"`
	SupplierID  *primitive.ObjectID `bson:"supplier_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description,omitempty"`
	PerformedAt time.Time           `bson:"performed_at"`
	CostCents   *int64              `bson:"cost_cents,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"created_by"`
	CreatedAt   time.Time           `bson:"created_at"`
}
