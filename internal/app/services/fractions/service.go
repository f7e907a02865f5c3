// internal/app/services/fractions/service.go
package fractionservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	fractionstore "github.com/dalemusser/zelus/internal/app/store/fractions"
	userfractionstore "github.com/dalemusser/zelus/internal/app/store/userfractions"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrLabelRequired   = errors.New("label is required")
	ErrDuplicateLabel  = fractionstore.ErrDuplicateLabel
	ErrUnknownFraction = errors.New("fraction does not belong to this organization")
	ErrInvalidRole     = errors.New("invalid fraction role")
	ErrAlreadyLinked   = userfractionstore.ErrDuplicateLink
)

// MemberItem is one user linked to a fraction.
type MemberItem struct {
	models.UserFraction
	UserName string
}

// FractionItem is a fraction with its approved members.
type FractionItem struct {
	models.Fraction
	Members []MemberItem
}

// PendingItem is a join request awaiting an org admin's decision.
type PendingItem struct {
	models.UserFraction
	UserName      string
	FractionLabel string
}

// Service manages fractions and the user-fraction links that grant
// fraction-level roles.
type Service struct {
	fractions *fractionstore.Store
	links     *userfractionstore.Store
	users     *userstore.Store
	audit     *auditlog.Logger
}

func New(db *mongo.Database, auditLog *auditlog.Logger) *Service {
	return &Service{
		fractions: fractionstore.New(db),
		links:     userfractionstore.New(db),
		users:     userstore.New(db),
		audit:     auditLog,
	}
}

// Create adds one fraction to orgID.
func (s *Service) Create(ctx context.Context, orgID primitive.ObjectID, label, description string, userID primitive.ObjectID) (models.Fraction, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.Fraction{}, ErrLabelRequired
	}
	f, err := s.fractions.Create(ctx, models.Fraction{
		OrgID:       orgID,
		Label:       label,
		Description: htmlsanitize.StripTags(description),
	})
	if err != nil {
		return models.Fraction{}, err
	}
	s.audit.Record(ctx, orgID, userID, audit.ActionFractionCreated, audit.EntityFraction, f.ID,
		map[string]any{"label": f.Label})
	return f, nil
}

// CreateMany adds a fraction per non-blank label, skipping labels that
// already exist. It returns the fractions it created.
func (s *Service) CreateMany(ctx context.Context, orgID primitive.ObjectID, labels []string, userID primitive.ObjectID) ([]models.Fraction, error) {
	var out []models.Fraction
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		f, err := s.Create(ctx, orgID, l, "", userID)
		if errors.Is(err, ErrDuplicateLabel) {
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

// List returns orgID's fractions ordered by label, each with its approved
// members.
func (s *Service) List(ctx context.Context, orgID primitive.ObjectID) ([]FractionItem, error) {
	var (
		fracs    []models.Fraction
		approved []models.UserFraction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fracs, err = s.fractions.ListByOrg(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		approved, err = s.links.ListByOrgStatus(gctx, orgID, models.UserFractionApproved)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list fractions: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(approved))
	for _, uf := range approved {
		ids = append(ids, uf.UserID)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("member names: %w", err)
	}

	byFraction := make(map[primitive.ObjectID][]MemberItem)
	for _, uf := range approved {
		byFraction[uf.FractionID] = append(byFraction[uf.FractionID], MemberItem{UserFraction: uf, UserName: names[uf.UserID]})
	}
	out := make([]FractionItem, 0, len(fracs))
	for _, f := range fracs {
		out = append(out, FractionItem{Fraction: f, Members: byFraction[f.ID]})
	}
	return out, nil
}

// Count returns the number of fractions in orgID.
func (s *Service) Count(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return s.fractions.Count(ctx, orgID)
}

// RequestJoin records a pending request by userID to join fractionID with
// role. An org admin must approve it before it grants anything.
func (s *Service) RequestJoin(ctx context.Context, orgID, fractionID, userID primitive.ObjectID, role string) (models.UserFraction, error) {
	if !models.IsValidFractionRole(role) {
		return models.UserFraction{}, ErrInvalidRole
	}
	f, err := s.fractions.Get(ctx, orgID, fractionID)
	if err != nil {
		return models.UserFraction{}, err
	}
	if f == nil {
		return models.UserFraction{}, ErrUnknownFraction
	}
	uf, err := s.links.Create(ctx, models.UserFraction{
		OrgID:      orgID,
		UserID:     userID,
		FractionID: fractionID,
		Role:       role,
		Status:     models.UserFractionPending,
	})
	if err != nil {
		return models.UserFraction{}, err
	}
	s.audit.Record(ctx, orgID, userID, audit.ActionFractionJoinRequested, audit.EntityUserFraction, uf.ID,
		map[string]any{"fraction_id": fractionID.Hex(), "role": role})
	return uf, nil
}

// Pending lists join requests awaiting a decision, oldest first.
func (s *Service) Pending(ctx context.Context, orgID primitive.ObjectID) ([]PendingItem, error) {
	rows, err := s.links.ListByOrgStatus(ctx, orgID, models.UserFractionPending)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	userIDs := make([]primitive.ObjectID, 0, len(rows))
	fracIDs := make([]primitive.ObjectID, 0, len(rows))
	for _, uf := range rows {
		userIDs = append(userIDs, uf.UserID)
		fracIDs = append(fracIDs, uf.FractionID)
	}

	var names, labels map[primitive.ObjectID]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		names, err = s.users.NamesByIDs(gctx, userIDs)
		return err
	})
	g.Go(func() (err error) {
		labels, err = s.fractions.LabelsByIDs(gctx, orgID, fracIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pending labels: %w", err)
	}

	out := make([]PendingItem, 0, len(rows))
	for _, uf := range rows {
		out = append(out, PendingItem{UserFraction: uf, UserName: names[uf.UserID], FractionLabel: labels[uf.FractionID]})
	}
	return out, nil
}

// Mine returns userID's links in orgID, whatever their status.
func (s *Service) Mine(ctx context.Context, orgID, userID primitive.ObjectID) ([]models.UserFraction, error) {
	return s.links.ListByUser(ctx, orgID, userID)
}

// Approve grants a pending request. It reports false when the request does
// not exist in orgID or was already decided.
func (s *Service) Approve(ctx context.Context, orgID, linkID, actorID primitive.ObjectID) (bool, error) {
	return s.decide(ctx, orgID, linkID, actorID, models.UserFractionApproved, audit.ActionUserFractionApproved)
}

// Reject declines a pending request. Same reporting as Approve.
func (s *Service) Reject(ctx context.Context, orgID, linkID, actorID primitive.ObjectID) (bool, error) {
	return s.decide(ctx, orgID, linkID, actorID, models.UserFractionRejected, audit.ActionUserFractionRejected)
}

func (s *Service) decide(ctx context.Context, orgID, linkID, actorID primitive.ObjectID, status, action string) (bool, error) {
	ok, err := s.links.SetStatus(ctx, orgID, linkID, status)
	if err != nil || !ok {
		return false, err
	}
	s.audit.Record(ctx, orgID, actorID, action, audit.EntityUserFraction, linkID, nil)
	return true, nil
}
