package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser inserts a user with the given name and email.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		EmailCI:   text.Fold(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateOrganization inserts an organization owned by nobody in particular.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Slug:      primitive.NewObjectID().Hex(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "organizations", org)
	return org
}

// AddMember links user to org with an organization role.
func (f *Fixtures) AddMember(ctx context.Context, org models.Organization, user models.User, role string) models.Member {
	f.t.Helper()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		OrgID:     org.ID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "members", m)
	return m
}

// CreateFraction inserts a fraction in org.
func (f *Fixtures) CreateFraction(ctx context.Context, org models.Organization, label string) models.Fraction {
	f.t.Helper()
	now := time.Now().UTC()
	fr := models.Fraction{
		ID:        primitive.NewObjectID(),
		OrgID:     org.ID,
		Label:     label,
		LabelCI:   text.Fold(label),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "fractions", fr)
	return fr
}

// LinkFraction links user to fraction with the given role and status.
// createdAt lets tests control ordering between several links.
func (f *Fixtures) LinkFraction(ctx context.Context, user models.User, fr models.Fraction, role, status string, createdAt time.Time) models.UserFraction {
	f.t.Helper()
	uf := models.UserFraction{
		ID:         primitive.NewObjectID(),
		OrgID:      fr.OrgID,
		UserID:     user.ID,
		FractionID: fr.ID,
		Role:       role,
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	f.insert(ctx, "user_fractions", uf)
	return uf
}

// CreateCategory inserts a ticket category in org.
func (f *Fixtures) CreateCategory(ctx context.Context, org models.Organization, label string) models.TicketCategory {
	f.t.Helper()
	c := models.TicketCategory{
		ID:        primitive.NewObjectID(),
		OrgID:     org.ID,
		Label:     label,
		LabelCI:   text.Fold(label),
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "ticket_categories", c)
	return c
}

// CreateTicket inserts an open ticket in org created by user.
func (f *Fixtures) CreateTicket(ctx context.Context, org models.Organization, creator models.User, title string, private bool) models.Ticket {
	f.t.Helper()
	now := time.Now().UTC()
	tk := models.Ticket{
		ID:        primitive.NewObjectID(),
		OrgID:     org.ID,
		Title:     title,
		Status:    models.TicketOpen,
		Private:   private,
		CreatedBy: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "tickets", tk)
	return tk
}
