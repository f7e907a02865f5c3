// internal/app/services/tickets/service.go
package ticketservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	categorystore "github.com/dalemusser/zelus/internal/app/store/categories"
	commentstore "github.com/dalemusser/zelus/internal/app/store/comments"
	fractionstore "github.com/dalemusser/zelus/internal/app/store/fractions"
	notificationstore "github.com/dalemusser/zelus/internal/app/store/notifications"
	ticketeventstore "github.com/dalemusser/zelus/internal/app/store/ticketevents"
	ticketstore "github.com/dalemusser/zelus/internal/app/store/tickets"
	userstore "github.com/dalemusser/zelus/internal/app/store/users"
	"github.com/dalemusser/zelus/internal/app/system/auditlog"
	"github.com/dalemusser/zelus/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zelus/internal/app/system/metrics"
	"github.com/dalemusser/zelus/internal/app/system/txn"
	"github.com/dalemusser/zelus/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidStatus   = errors.New("invalid ticket status")
	ErrInvalidPriority = errors.New("invalid ticket priority")
	ErrUnknownCategory = errors.New("category does not belong to this organization")
	ErrUnknownFraction = errors.New("fraction does not belong to this organization")
	ErrEmptyComment    = errors.New("comment is empty")
	ErrTitleRequired   = errors.New("title is required")
)

/*─────────────────────────────────────────────────────────────────────────────*
| Inputs and results                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// CreateInput holds the fields of a new ticket. Nil pointers mean "absent".
type CreateInput struct {
	Title       string
	Description string
	CategoryID  *primitive.ObjectID
	FractionID  *primitive.ObjectID
	Priority    *string
	Private     bool
}

// Filters are ANDed equality constraints on top of visibility. Empty fields
// are ignored.
type Filters struct {
	Status     string
	Priority   string
	CategoryID *primitive.ObjectID
	FractionID *primitive.ObjectID
}

// Patch is a partial update. A nil field is left unchanged. For the
// optional references, a zero ObjectID (or an empty Priority) clears the
// value.
type Patch struct {
	Title       *string
	Description *string
	CategoryID  *primitive.ObjectID
	FractionID  *primitive.ObjectID
	Priority    *string
	Private     *bool
}

// Item is a ticket joined with the labels shown in lists and detail pages.
type Item struct {
	models.Ticket
	CategoryLabel string
	FractionLabel string
	CreatorName   string
}

// CommentItem is a comment with its author's name.
type CommentItem struct {
	models.TicketComment
	AuthorName string
}

// EventItem is a status change with the acting user's name.
type EventItem struct {
	models.TicketEvent
	UserName string
}

// StatusChange describes a completed status update.
type StatusChange struct {
	Ticket models.Ticket
	Event  models.TicketEvent
}

/*─────────────────────────────────────────────────────────────────────────────*
| Service                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Service implements ticket operations for one deployment. Every operation
// is scoped to an organization and to what the acting user may see.
type Service struct {
	client        *mongo.Client
	tickets       *ticketstore.Store
	events        *ticketeventstore.Store
	comments      *commentstore.Store
	categories    *categorystore.Store
	fractions     *fractionstore.Store
	users         *userstore.Store
	notifications *notificationstore.Store
	audit         *auditlog.Logger
	log           *zap.Logger
}

// New builds a Service. client may be nil, in which case status updates run
// without a transaction.
func New(client *mongo.Client, db *mongo.Database, auditLog *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:        client,
		tickets:       ticketstore.New(db),
		events:        ticketeventstore.New(db),
		comments:      commentstore.New(db),
		categories:    categorystore.New(db),
		fractions:     fractionstore.New(db),
		users:         userstore.New(db),
		notifications: notificationstore.New(db),
		audit:         auditLog,
		log:           logger,
	}
}

// VisibilityFilter returns the Mongo filter selecting tickets in orgID that
// userID may see: every public ticket plus the user's own private ones.
func VisibilityFilter(orgID, userID primitive.ObjectID, f Filters) bson.M {
	q := bson.M{
		"org_id": orgID,
		"$or": bson.A{
			bson.M{"private": false},
			bson.M{"private": true, "created_by": userID},
		},
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if f.CategoryID != nil {
		q["category_id"] = *f.CategoryID
	}
	if f.FractionID != nil {
		q["fraction_id"] = *f.FractionID
	}
	return q
}

func visibleByID(orgID, ticketID, userID primitive.ObjectID) bson.M {
	q := VisibilityFilter(orgID, userID, Filters{})
	q["_id"] = ticketID
	return q
}

// inOrg matches a ticket by id within one organization, whoever created it.
func inOrg(orgID, ticketID primitive.ObjectID) bson.M {
	return bson.M{"org_id": orgID, "_id": ticketID}
}

func (s *Service) checkRefs(ctx context.Context, orgID primitive.ObjectID, categoryID, fractionID *primitive.ObjectID) error {
	if categoryID != nil && !categoryID.IsZero() {
		c, err := s.categories.Get(ctx, orgID, *categoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrUnknownCategory
		}
	}
	if fractionID != nil && !fractionID.IsZero() {
		f, err := s.fractions.Get(ctx, orgID, *fractionID)
		if err != nil {
			return err
		}
		if f == nil {
			return ErrUnknownFraction
		}
	}
	return nil
}

// Create stores a new open ticket created by userID.
func (s *Service) Create(ctx context.Context, orgID primitive.ObjectID, in CreateInput, userID primitive.ObjectID) (models.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Ticket{}, ErrTitleRequired
	}
	if in.Priority != nil && !models.IsValidTicketPriority(*in.Priority) {
		return models.Ticket{}, ErrInvalidPriority
	}
	if err := s.checkRefs(ctx, orgID, in.CategoryID, in.FractionID); err != nil {
		return models.Ticket{}, err
	}

	t, err := s.tickets.Insert(ctx, models.Ticket{
		OrgID:       orgID,
		FractionID:  in.FractionID,
		CategoryID:  in.CategoryID,
		Title:       title,
		Description: htmlsanitize.Sanitize(in.Description),
		Status:      models.TicketOpen,
		Priority:    in.Priority,
		Private:     in.Private,
		CreatedBy:   userID,
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}

	metrics.TicketsCreated.WithLabelValues(strconv.FormatBool(t.Private)).Inc()
	s.audit.Record(ctx, orgID, userID, audit.ActionTicketCreated, audit.EntityTicket, t.ID,
		map[string]any{"title": t.Title})
	return t, nil
}

// List returns the tickets userID may see in orgID, newest first, with
// category, fraction and creator labels.
func (s *Service) List(ctx context.Context, orgID, userID primitive.ObjectID, f Filters) ([]Item, error) {
	rows, err := s.tickets.Find(ctx, VisibilityFilter(orgID, userID, f), 0)
	if err != nil {
		return nil, fmt.Errorf("find tickets: %w", err)
	}
	return s.join(ctx, orgID, rows)
}

// Recent returns at most limit visible tickets, newest first.
func (s *Service) Recent(ctx context.Context, orgID, userID primitive.ObjectID, limit int64) ([]Item, error) {
	rows, err := s.tickets.Find(ctx, VisibilityFilter(orgID, userID, Filters{}), limit)
	if err != nil {
		return nil, fmt.Errorf("find tickets: %w", err)
	}
	return s.join(ctx, orgID, rows)
}

// Count returns how many tickets matching f userID may see.
func (s *Service) Count(ctx context.Context, orgID, userID primitive.ObjectID, f Filters) (int64, error) {
	return s.tickets.Count(ctx, VisibilityFilter(orgID, userID, f))
}

// join resolves labels with one batch lookup per collection, run
// concurrently. Missing categories and fractions leave the label empty.
func (s *Service) join(ctx context.Context, orgID primitive.ObjectID, rows []models.Ticket) ([]Item, error) {
	var catIDs, fracIDs, userIDs []primitive.ObjectID
	for _, t := range rows {
		if t.CategoryID != nil {
			catIDs = append(catIDs, *t.CategoryID)
		}
		if t.FractionID != nil {
			fracIDs = append(fracIDs, *t.FractionID)
		}
		userIDs = append(userIDs, t.CreatedBy)
	}

	var cats, fracs, names map[primitive.ObjectID]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = s.categories.LabelsByIDs(gctx, orgID, catIDs)
		return err
	})
	g.Go(func() (err error) {
		fracs, err = s.fractions.LabelsByIDs(gctx, orgID, fracIDs)
		return err
	})
	g.Go(func() (err error) {
		names, err = s.users.NamesByIDs(gctx, userIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("join ticket labels: %w", err)
	}

	out := make([]Item, 0, len(rows))
	for _, t := range rows {
		it := Item{Ticket: t, CreatorName: names[t.CreatedBy]}
		if t.CategoryID != nil {
			it.CategoryLabel = cats[*t.CategoryID]
		}
		if t.FractionID != nil {
			it.FractionLabel = fracs[*t.FractionID]
		}
		out = append(out, it)
	}
	return out, nil
}

// Get returns the ticket if it exists in orgID and userID may see it.
// A private ticket of someone else is reported exactly like a missing one:
// (nil, nil).
func (s *Service) Get(ctx context.Context, orgID, ticketID, userID primitive.ObjectID) (*Item, error) {
	t, err := s.tickets.FindOne(ctx, visibleByID(orgID, ticketID, userID))
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	if t == nil {
		return nil, nil
	}
	items, err := s.join(ctx, orgID, []models.Ticket{*t})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Update applies p to the ticket with ticketID in orgID. It returns
// (nil, nil) when the ticket is absent or belongs to another organization;
// only a matched update is audited, with the changed fields as metadata.
// Visibility and edit rights are checked by the caller through Get.
func (s *Service) Update(ctx context.Context, orgID, ticketID primitive.ObjectID, p Patch, userID primitive.ObjectID) (*models.Ticket, error) {
	set := bson.M{}
	var unset []string
	changes := map[string]any{}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		set["title"] = title
		changes["title"] = title
	}
	if p.Description != nil {
		desc := htmlsanitize.Sanitize(*p.Description)
		set["description"] = desc
		changes["description"] = desc
	}
	if p.Priority != nil {
		switch {
		case *p.Priority == "":
			unset = append(unset, "priority")
			changes["priority"] = nil
		case models.IsValidTicketPriority(*p.Priority):
			set["priority"] = *p.Priority
			changes["priority"] = *p.Priority
		default:
			return nil, ErrInvalidPriority
		}
	}
	if p.Private != nil {
		set["private"] = *p.Private
		changes["private"] = *p.Private
	}
	if err := s.checkRefs(ctx, orgID, p.CategoryID, p.FractionID); err != nil {
		return nil, err
	}
	if p.CategoryID != nil {
		if p.CategoryID.IsZero() {
			unset = append(unset, "category_id")
			changes["category_id"] = nil
		} else {
			set["category_id"] = *p.CategoryID
			changes["category_id"] = p.CategoryID.Hex()
		}
	}
	if p.FractionID != nil {
		if p.FractionID.IsZero() {
			unset = append(unset, "fraction_id")
			changes["fraction_id"] = nil
		} else {
			set["fraction_id"] = *p.FractionID
			changes["fraction_id"] = p.FractionID.Hex()
		}
	}

	updated, err := s.tickets.Set(ctx, inOrg(orgID, ticketID), set, unset)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if updated == nil {
		return nil, nil
	}
	s.audit.Record(ctx, orgID, userID, audit.ActionTicketUpdated, audit.EntityTicket, ticketID, changes)
	return updated, nil
}

// UpdateStatus moves the ticket with ticketID in orgID to newStatus. Any status may follow
// any other, including itself. The status swap is a single atomic write
// whose pre-image supplies the event's from-status, and the event insert
// shares a transaction with it when the deployment supports transactions.
// Every successful call appends exactly one TicketEvent. Returns (nil, nil)
// when the ticket is absent or belongs to another organization. Privacy is
// not checked here; callers that act for a member check it with Get.
func (s *Service) UpdateStatus(ctx context.Context, orgID, ticketID primitive.ObjectID, newStatus string, userID primitive.ObjectID) (*StatusChange, error) {
	if !models.IsValidTicketStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	var change *StatusChange
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		change = nil
		before, err := s.tickets.SwapStatus(ctx, inOrg(orgID, ticketID), newStatus)
		if err != nil {
			return fmt.Errorf("swap status: %w", err)
		}
		if before == nil {
			return nil
		}
		ev, err := s.events.Insert(ctx, models.TicketEvent{
			OrgID:      orgID,
			TicketID:   ticketID,
			UserID:     userID,
			FromStatus: before.Status,
			ToStatus:   newStatus,
		})
		if err != nil {
			return fmt.Errorf("insert ticket event: %w", err)
		}
		after := *before
		after.Status = newStatus
		after.UpdatedAt = ev.CreatedAt
		change = &StatusChange{Ticket: after, Event: ev}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, nil
	}

	metrics.TicketStatusChanges.WithLabelValues(newStatus).Inc()
	s.audit.Record(ctx, orgID, userID, audit.ActionTicketStatusChanged, audit.EntityTicket, ticketID,
		map[string]any{"from": change.Event.FromStatus, "to": change.Event.ToStatus})

	if change.Ticket.CreatedBy != userID {
		s.notify(ctx, models.Notification{
			OrgID:   orgID,
			UserID:  change.Ticket.CreatedBy,
			Type:    models.NotificationTicketStatus,
			Title:   "Ocorrência atualizada",
			Message: fmt.Sprintf("%q passou para %s.", change.Ticket.Title, models.StatusLabel(newStatus)),
			Metadata: map[string]any{
				"ticket_id": ticketID.Hex(),
				"from":      change.Event.FromStatus,
				"to":        change.Event.ToStatus,
			},
		})
	}
	return change, nil
}

// AddComment posts content on a visible ticket. Returns (nil, nil) when the
// ticket is absent or hidden.
func (s *Service) AddComment(ctx context.Context, orgID, ticketID, userID primitive.ObjectID, content string) (*models.TicketComment, error) {
	content = htmlsanitize.Sanitize(strings.TrimSpace(content))
	if strings.TrimSpace(htmlsanitize.StripTags(content)) == "" {
		return nil, ErrEmptyComment
	}
	t, err := s.tickets.FindOne(ctx, visibleByID(orgID, ticketID, userID))
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	if t == nil {
		return nil, nil
	}

	c, err := s.comments.Insert(ctx, models.TicketComment{
		OrgID:    orgID,
		TicketID: ticketID,
		UserID:   userID,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	s.audit.Record(ctx, orgID, userID, audit.ActionTicketCommented, audit.EntityTicket, ticketID,
		map[string]any{"comment_id": c.ID.Hex()})

	if t.CreatedBy != userID {
		s.notify(ctx, models.Notification{
			OrgID:    orgID,
			UserID:   t.CreatedBy,
			Type:     models.NotificationTicketComment,
			Title:    "Novo comentário",
			Message:  fmt.Sprintf("Há um novo comentário em %q.", t.Title),
			Metadata: map[string]any{"ticket_id": ticketID.Hex()},
		})
	}
	return &c, nil
}

// ListComments returns a visible ticket's comments, oldest first, or nil
// when the ticket is absent or hidden.
func (s *Service) ListComments(ctx context.Context, orgID, ticketID, userID primitive.ObjectID) ([]CommentItem, error) {
	ok, err := s.visible(ctx, orgID, ticketID, userID)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.comments.ListByTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.UserID)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("comment authors: %w", err)
	}
	out := make([]CommentItem, 0, len(rows))
	for _, c := range rows {
		out = append(out, CommentItem{TicketComment: c, AuthorName: names[c.UserID]})
	}
	return out, nil
}

// ListEvents returns a visible ticket's status history, oldest first, or
// nil when the ticket is absent or hidden.
func (s *Service) ListEvents(ctx context.Context, orgID, ticketID, userID primitive.ObjectID) ([]EventItem, error) {
	ok, err := s.visible(ctx, orgID, ticketID, userID)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.events.ListByTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.UserID)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("event users: %w", err)
	}
	out := make([]EventItem, 0, len(rows))
	for _, e := range rows {
		out = append(out, EventItem{TicketEvent: e, UserName: names[e.UserID]})
	}
	return out, nil
}

func (s *Service) visible(ctx context.Context, orgID, ticketID, userID primitive.ObjectID) (bool, error) {
	n, err := s.tickets.Count(ctx, visibleByID(orgID, ticketID, userID))
	if err != nil {
		return false, fmt.Errorf("find ticket: %w", err)
	}
	return n > 0, nil
}

// notify stores a notification. Failures are logged; the ticket change has
// already happened.
func (s *Service) notify(ctx context.Context, n models.Notification) {
	if _, err := s.notifications.Create(ctx, n); err != nil {
		s.log.Warn("failed to store notification",
			zap.Error(err),
			zap.String("user_id", n.UserID.Hex()),
			zap.String("type", n.Type))
	}
}
