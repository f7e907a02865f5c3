// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth = "auth" // sign-in, sign-up, sign-out
	CategoryOrg  = "org"  // mutations inside an organization
)

// Auth actions
const (
	ActionLoginSuccess = "auth.login_success"
	ActionLoginFailed  = "auth.login_failed"
	ActionLogout       = "auth.logout"
	ActionRegistered   = "auth.registered"
	ActionProfileSaved = "auth.profile_updated"
	ActionPasswordSet  = "auth.password_changed"
)

// Organization actions
const (
	ActionOrgCreated            = "organization.created"
	ActionTicketCreated         = "ticket.created"
	ActionTicketUpdated         = "ticket.updated"
	ActionTicketStatusChanged   = "ticket.status_changed"
	ActionTicketCommented       = "ticket.commented"
	ActionCategoryCreated       = "ticket_category.created"
	ActionCategoryDeleted       = "ticket_category.deleted"
	ActionFractionCreated       = "fraction.created"
	ActionFractionJoinRequested = "fraction.join_requested"
	ActionUserFractionApproved  = "user_fraction.approved"
	ActionUserFractionRejected  = "user_fraction.rejected"
	ActionSupplierCreated       = "supplier.created"
	ActionSupplierDeleted       = "supplier.deleted"
	ActionMaintenanceCreated    = "maintenance.created"
	ActionInviteCreated         = "invite.created"
	ActionInviteAccepted        = "invite.accepted"
	ActionMemberRoleChanged     = "member.role_changed"
)

// Entity types
const (
	EntityOrganization = "organization"
	EntityTicket       = "ticket"
	EntityCategory     = "ticket_category"
	EntityFraction     = "fraction"
	EntityUserFraction = "user_fraction"
	EntitySupplier     = "supplier"
	EntityMaintenance  = "maintenance_record"
	EntityInvite       = "invite"
	EntityUser         = "user"
	EntityMember       = "member"
)

// Event is one append-only audit row.
type Event struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	CreatedAt  time.Time           `bson:"created_at"`
	Category   string              `bson:"category"`
	OrgID      *primitive.ObjectID `bson:"org_id,omitempty"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty"`
	Action     string              `bson:"action"`
	EntityType string              `bson:"entity_type,omitempty"`
	EntityID   *primitive.ObjectID `bson:"entity_id,omitempty"`
	Metadata   map[string]any      `bson:"metadata,omitempty"`
	IP         string              `bson:"ip,omitempty"`
	UserAgent  string              `bson:"user_agent,omitempty"`
}

// QueryFilter narrows Query results. Zero fields are ignored.
type QueryFilter struct {
	OrgID      *primitive.ObjectID
	UserID     *primitive.ObjectID
	EntityType string
	EntityID   *primitive.ObjectID
	Action     string
	Since      *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit rows. It only inserts and reads.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// EnsureIndexes creates the indexes used by the org audit viewer and
// entity history lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log appends an event, filling ID and CreatedAt when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) bson() bson.M {
	q := bson.M{}
	if f.OrgID != nil {
		q["org_id"] = *f.OrgID
	}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.EntityType != "" {
		q["entity_type"] = f.EntityType
	}
	if f.EntityID != nil {
		q["entity_id"] = *f.EntityID
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if f.Since != nil {
		q["created_at"] = bson.M{"$gte": *f.Since}
	}
	return q
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of events matching filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.bson())
}
