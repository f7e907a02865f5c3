// internal/app/services/invites/service.go
package inviteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zelus/internal/app/store/audit"
	fractionstore "github.com/dalemusser/zelus/internal/app/store/fractions"
	invitestore "github.com/dalemusser/zelus/internal/app/store/invites"
	memberstore "github.com/dalemusser/zelus/internal/app/store/members"
	userfractionstore "github.com/dalemusser/zelus/internal/app/store/userfractions"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/txn"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultTTL is how long an invite stays valid when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrInvalidRole      = errors.New("invalid invite role")
	ErrFractionRequired = errors.New("fraction invites need a fraction")
	ErrUnknownFraction  = errors.New("fraction does not belong to this organization")
	ErrNotFound         = errors.New("invite not found")
	ErrAlreadyAccepted  = errors.New("invite was already accepted")
	ErrExpired          = errors.New("invite has expired")
	ErrEmailMismatch    = errors.New("invite was sent to a different email")
)

// CreateInput describes a new invite.
type CreateInput struct {
	Email      string
	Role       string
	FractionID *primitive.ObjectID
}

// Service issues invites and turns accepted ones into memberships.
type Service struct {
	client    *mongo.Client
	invites   *invitestore.Store
	members   *memberstore.Store
	links     *userfractionstore.Store
	fractions *fractionstore.Store
	audit     *auditlog.Logger
	ttl       time.Duration
	log       *zap.Logger
}

func New(client *mongo.Client, db *mongo.Database, auditLog *auditlog.Logger, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		invites:   invitestore.New(db),
		members:   memberstore.New(db),
		links:     userfractionstore.New(db),
		fractions: fractionstore.New(db),
		audit:     auditLog,
		ttl:       ttl,
		log:       logger,
	}
}

// TTL returns how long new invites stay valid.
func (s *Service) TTL() time.Duration { return s.ttl }

// Create issues an invite in orgID. An org_admin invite ignores any
// fraction; a fraction-role invite must name a fraction of the organization.
func (s *Service) Create(ctx context.Context, orgID, invitedBy primitive.ObjectID, in CreateInput) (models.Invite, error) {
	if !models.IsValidInviteRole(in.Role) {
		return models.Invite{}, ErrInvalidRole
	}

	inv := models.Invite{
		OrgID:     orgID,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
		InvitedBy: invitedBy,
	}
	if in.Role == models.InviteRoleOrgAdmin {
		inv.Type = models.InviteTypeOrg
	} else {
		if in.FractionID == nil {
			return models.Invite{}, ErrFractionRequired
		}
		f, err := s.fractions.Get(ctx, orgID, *in.FractionID)
		if err != nil {
			return models.Invite{}, fmt.Errorf("load fraction: %w", err)
		}
		if f == nil {
			return models.Invite{}, ErrUnknownFraction
		}
		inv.Type = models.InviteTypeFraction
		inv.FractionID = &f.ID
	}

	saved, err := s.invites.Create(ctx, inv, s.ttl)
	if err != nil {
		return models.Invite{}, fmt.Errorf("create invite: %w", err)
	}

	meta := map[string]any{"email": saved.Email, "role": saved.Role}
	if saved.FractionID != nil {
		meta["fraction_id"] = saved.FractionID.Hex()
	}
	s.audit.Record(ctx, orgID, invitedBy, audit.ActionInviteCreated, audit.EntityInvite, saved.ID, meta)
	return saved, nil
}

// List returns the organization's invites after expiring stale ones.
func (s *Service) List(ctx context.Context, orgID primitive.ObjectID) ([]models.Invite, error) {
	if n, err := s.invites.ExpireStale(ctx, orgID); err != nil {
		return nil, fmt.Errorf("expire stale invites: %w", err)
	} else if n > 0 {
		s.log.Debug("invites expired", zap.String("org_id", orgID.Hex()), zap.Int64("count", n))
	}
	return s.invites.ListByOrg(ctx, orgID)
}

// Lookup returns the invite for token with its status checked against the
// clock, or ErrNotFound.
func (s *Service) Lookup(ctx context.Context, token string) (models.Invite, error) {
	inv, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return models.Invite{}, err
	}
	if inv == nil {
		return models.Invite{}, ErrNotFound
	}
	if inv.Status == models.InvitePending && !time.Now().Before(inv.ExpiresAt) {
		inv.Status = models.InviteExpired
	}
	return *inv, nil
}

// Accept redeems token for the signed-in user. The invite is marked
// accepted and the membership (and fraction link) written together. An
// invite can be accepted once, before it expires, and only by the invited
// email address.
func (s *Service) Accept(ctx context.Context, token string, userID primitive.ObjectID, email string) (models.Invite, error) {
	inv, err := s.Lookup(ctx, token)
	if err != nil {
		return models.Invite{}, err
	}
	switch inv.Status {
	case models.InviteAccepted:
		return models.Invite{}, ErrAlreadyAccepted
	case models.InviteExpired:
		return models.Invite{}, ErrExpired
	}
	if text.Fold(email) != inv.EmailCI {
		return models.Invite{}, ErrEmailMismatch
	}

	memberRole := models.MemberRoleMember
	if inv.Role == models.InviteRoleOrgAdmin {
		memberRole = models.MemberRoleAdmin
	}

	err = txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		ok, err := s.invites.MarkAccepted(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("mark accepted: %w", err)
		}
		if !ok {
			return ErrAlreadyAccepted
		}
		// A write error aborts the whole transaction, so an existing
		// membership is kept through an upsert rather than a failed insert.
		if _, err := s.members.Ensure(ctx, inv.OrgID, userID, memberRole); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		if inv.FractionID != nil {
			invitedBy := inv.InvitedBy
			err := s.links.Upsert(ctx, models.UserFraction{
				OrgID:      inv.OrgID,
				UserID:     userID,
				FractionID: *inv.FractionID,
				Role:       inv.Role,
				Status:     models.UserFractionApproved,
				InvitedBy:  &invitedBy,
			})
			if err != nil {
				return fmt.Errorf("link fraction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Invite{}, err
	}

	now := time.Now().UTC()
	inv.Status = models.InviteAccepted
	inv.AcceptedAt = &now
	s.audit.Record(ctx, inv.OrgID, userID, audit.ActionInviteAccepted, audit.EntityInvite, inv.ID,
		map[string]any{"role": inv.Role})
	return inv, nil
}
