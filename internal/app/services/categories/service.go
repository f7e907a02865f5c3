// internal/app/services/categories/service.go
package categoryservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	categorystore "github.com/dalemusser/zelus/internal/app/store/categories"
	ticketstore "github.com/dalemusser/zelus/internal/app/store/tickets"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/txn"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrCategoryInUse is returned by Delete while tickets still reference the
// category. The message is shown to users as is.
var ErrCategoryInUse = errors.New("Categoria em uso. Remova a categoria dos tickets antes de apagar.")

var (
	ErrLabelRequired  = errors.New("label is required")
	ErrDuplicateLabel = categorystore.ErrDuplicateLabel
)

// Service manages an organization's ticket categories.
type Service struct {
	client     *mongo.Client
	categories *categorystore.Store
	tickets    *ticketstore.Store
	audit      *auditlog.Logger
	log        *zap.Logger
}

func New(client *mongo.Client, db *mongo.Database, auditLog *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:     client,
		categories: categorystore.New(db),
		tickets:    ticketstore.New(db),
		audit:      auditLog,
		log:        logger,
	}
}

// List returns orgID's categories ordered by label.
func (s *Service) List(ctx context.Context, orgID primitive.ObjectID) ([]models.TicketCategory, error) {
	return s.categories.ListByOrg(ctx, orgID)
}

// Create adds a category and audits its label.
func (s *Service) Create(ctx context.Context, orgID primitive.ObjectID, label string, userID primitive.ObjectID) (models.TicketCategory, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.TicketCategory{}, ErrLabelRequired
	}
	c, err := s.categories.Create(ctx, orgID, label)
	if err != nil {
		return models.TicketCategory{}, err
	}
	s.audit.Record(ctx, orgID, userID, audit.ActionCategoryCreated, audit.EntityCategory, c.ID,
		map[string]any{"label": c.Label})
	return c, nil
}

// Delete removes a category nothing references. It returns ErrCategoryInUse
// while any ticket in orgID still points at it, and (false, nil) when the
// category does not exist in orgID.
func (s *Service) Delete(ctx context.Context, orgID, categoryID, userID primitive.ObjectID) (bool, error) {
	var deleted *models.TicketCategory
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		deleted = nil
		c, err := s.categories.Get(ctx, orgID, categoryID)
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}
		if c == nil {
			return nil
		}
		n, err := s.tickets.CountByCategory(ctx, orgID, categoryID)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		if n > 0 {
			return ErrCategoryInUse
		}
		ok, err := s.categories.Delete(ctx, orgID, categoryID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if ok {
			deleted = c
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted == nil {
		return false, nil
	}
	s.audit.Record(ctx, orgID, userID, audit.ActionCategoryDeleted, audit.EntityCategory, categoryID,
		map[string]any{"label": deleted.Label})
	return true, nil
}
