// internal/app/services/organizations/service.go
package orgservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	organizationstore "github.com/dalemusser/zelus/internal/app/store/organizations"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/normalize"
	"github.com/dalemusser/zelus/internal/app/system/txn"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("organization name is required")
	ErrCityRequired = errors.New("organization city is required")
)

// maxSlugAttempts bounds the "-2", "-3", ... suffix search.
const maxSlugAttempts = 50

// Service creates organizations and answers membership questions that span
// organizations (onboarding, invites).
type Service struct {
	client  *mongo.Client
	orgs    *organizationstore.Store
	members *memberstore.Store
	audit   *auditlog.Logger
	log     *zap.Logger
}

func New(client *mongo.Client, db *mongo.Database, auditLog *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		orgs:    organizationstore.New(db),
		members: memberstore.New(db),
		audit:   auditLog,
		log:     logger,
	}
}

// Create makes a new organization with a unique slug derived from name and
// records ownerID as its owner. The organization and the owner membership
// are written together.
func (s *Service) Create(ctx context.Context, name, city string, ownerID primitive.ObjectID) (models.Organization, error) {
	name = normalize.Name(name)
	city = normalize.Name(city)
	if name == "" {
		return models.Organization{}, ErrNameRequired
	}
	if city == "" {
		return models.Organization{}, ErrCityRequired
	}

	slug, err := s.freeSlug(ctx, normalize.Slug(name))
	if err != nil {
		return models.Organization{}, err
	}

	var org models.Organization
	err = txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		var err error
		org, err = s.orgs.Create(ctx, models.Organization{
			Name:      name,
			Slug:      slug,
			City:      city,
			CreatedBy: ownerID,
		})
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		if _, err := s.members.Add(ctx, org.ID, ownerID, models.MemberRoleOwner); err != nil {
			return fmt.Errorf("add owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Organization{}, err
	}

	s.audit.Record(ctx, org.ID, ownerID, audit.ActionOrgCreated, audit.EntityOrganization, org.ID,
		map[string]any{"name": org.Name, "slug": org.Slug})
	return org, nil
}

// freeSlug returns base, or base with the first free numeric suffix.
func (s *Service) freeSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "condominio"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := s.orgs.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return base + "-" + primitive.NewObjectID().Hex()[18:], nil
}

// Get returns the organization, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, orgID primitive.ObjectID) (*models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Membership returns the user's member row in orgID, or nil.
func (s *Service) Membership(ctx context.Context, orgID, userID primitive.ObjectID) (*models.Member, error) {
	return s.members.Get(ctx, orgID, userID)
}

// FirstMembership returns the user's oldest membership, or nil when the user
// belongs to no organization.
func (s *Service) FirstMembership(ctx context.Context, userID primitive.ObjectID) (*models.Member, error) {
	ms, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return &ms[0], nil
}

// IsAdmin reports whether userID is an owner or admin member of orgID.
func (s *Service) IsAdmin(ctx context.Context, orgID, userID primitive.ObjectID) (bool, error) {
	m, err := s.members.Get(ctx, orgID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.Role == models.MemberRoleOwner || m.Role == models.MemberRoleAdmin, nil
}
