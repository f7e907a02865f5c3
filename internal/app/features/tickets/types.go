// internal/app/features/tickets/types.go
package tickets

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	ticketservice "github.com/dalemusser/zelus/internal/app/services/tickets"
	"github.com/dalemusser/zelus/internal/app/system/formutil"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
	"github.com/dalemusser/zelus/internal/domain/models"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// option is one entry of a <select>.
type option struct {
	Value    string
	Label    string
	Selected bool
}

// ticketRow is a ticket as shown in lists.
type ticketRow struct {
	ID            string
	Title         string
	Status        string
	StatusLabel   string
	Priority      string
	PriorityLabel string
	CategoryLabel string
	FractionLabel string
	CreatorName   string
	Private       bool
	Age           string
}

func toRow(it ticketservice.Item) ticketRow {
	row := ticketRow{
		ID:            it.ID.Hex(),
		Title:         it.Title,
		Status:        it.Status,
		StatusLabel:   models.StatusLabel(it.Status),
		CategoryLabel: it.CategoryLabel,
		FractionLabel: it.FractionLabel,
		CreatorName:   it.CreatorName,
		Private:       it.Private,
		Age:           humanize.Time(it.CreatedAt),
	}
	if it.Priority != nil {
		row.Priority = *it.Priority
		row.PriorityLabel = models.PriorityLabel(*it.Priority)
	}
	return row
}

type listData struct {
	viewdata.BaseVM

	Rows       []ticketRow
	Count      int
	Statuses   []option
	Priorities []option
	Categories []option
	Fractions  []option
	Filtered   bool
}

// formData backs both the new and the edit form.
type formData struct {
	viewdata.BaseVM
	formutil.Errors

	Action      string
	TicketID    string
	Title       string
	Description string
	Private     bool
	Priorities  []option
	Categories  []option
	Fractions   []option
}

type commentRow struct {
	AuthorName string
	Content    template.HTML
	Age        string
}

type eventRow struct {
	UserName  string
	FromLabel string
	ToLabel   string
	Age       string
}

type showData struct {
	viewdata.BaseVM
	formutil.Errors

	Ticket      ticketRow
	Description template.HTML
	CanEdit     bool
	Statuses    []option
	Comments    []commentRow
	Events      []eventRow
	Comment     string
}

// ticketInput is the validated shape of the new and edit forms.
type ticketInput struct {
	Title       string `validate:"required,max=200" label:"Título"`
	Description string `validate:"max=5000" label:"Descrição"`
	CategoryID  string `validate:"omitempty,objectid" label:"Categoria"`
	FractionID  string `validate:"omitempty,objectid" label:"Fração"`
	Priority    string `validate:"omitempty,ticketpriority" label:"Prioridade"`
}

func readInput(r *http.Request) ticketInput {
	return ticketInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		CategoryID:  strings.TrimSpace(r.FormValue("category")),
		FractionID:  strings.TrimSpace(r.FormValue("fraction")),
		Priority:    strings.TrimSpace(r.FormValue("priority")),
	}
}

// optionalID parses a possibly empty hex id. An empty string yields nil.
func optionalID(s string) *primitive.ObjectID {
	if s == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil
	}
	return &id
}

// clearableID is optionalID for patches: empty means clear, expressed as a
// zero ObjectID.
func clearableID(s string) *primitive.ObjectID {
	if id := optionalID(s); id != nil {
		return id
	}
	zero := primitive.NilObjectID
	return &zero
}

func statusOptions(selected string) []option {
	out := make([]option, 0, len(models.TicketStatuses))
	for _, s := range models.TicketStatuses {
		out = append(out, option{Value: s, Label: models.StatusLabel(s), Selected: s == selected})
	}
	return out
}

func priorityOptions(selected string) []option {
	out := make([]option, 0, len(models.TicketPriorities))
	for _, p := range models.TicketPriorities {
		out = append(out, option{Value: p, Label: models.PriorityLabel(p), Selected: p == selected})
	}
	return out
}

// refOptions loads the organization's categories and fractions for the
// selects, concurrently.
func (h *Handler) refOptions(ctx context.Context, orgID primitive.ObjectID, category, fraction string) (cats, fracs []option, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := h.Categories.List(gctx, orgID)
		if err != nil {
			return err
		}
		for _, c := range rows {
			id := c.ID.Hex()
			cats = append(cats, option{Value: id, Label: c.Label, Selected: id == category})
		}
		return nil
	})
	g.Go(func() error {
		rows, err := h.Fractions.List(gctx, orgID)
		if err != nil {
			return err
		}
		for _, f := range rows {
			id := f.ID.Hex()
			fracs = append(fracs, option{Value: id, Label: f.Label, Selected: id == fraction})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cats, fracs, nil
}
