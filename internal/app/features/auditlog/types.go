// internal/app/features/auditlog/types.go
package auditlog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dalemusser/zelus/internal/app/store/audit"
	"github.com/dalemusser/zelus/internal/app/system/paging"
	"github.com/dalemusser/zelus/internal/app/system/viewdata"
)

// listItem represents a single audit event row for display.
type listItem struct {
	When      string
	Age       string
	ActorName string
	Action    string
	Entity    string
	Details   string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Action string
	Entity string

	// Filter options
	Actions  []option
	Entities []option

	Page paging.Range

	// Pager links, filters included.
	PrevURL string
	NextURL string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

var actionLabels = map[string]string{
	audit.ActionOrgCreated:            "Condomínio criado",
	audit.ActionTicketCreated:         "Ocorrência criada",
	audit.ActionTicketUpdated:         "Ocorrência editada",
	audit.ActionTicketStatusChanged:   "Estado alterado",
	audit.ActionTicketCommented:       "Comentário",
	audit.ActionCategoryCreated:       "Categoria criada",
	audit.ActionCategoryDeleted:       "Categoria removida",
	audit.ActionFractionCreated:       "Fração criada",
	audit.ActionFractionJoinRequested: "Pedido de associação",
	audit.ActionUserFractionApproved:  "Associação aprovada",
	audit.ActionUserFractionRejected:  "Associação rejeitada",
	audit.ActionSupplierCreated:       "Fornecedor criado",
	audit.ActionSupplierDeleted:       "Fornecedor removido",
	audit.ActionMaintenanceCreated:    "Manutenção registada",
	audit.ActionInviteCreated:         "Convite enviado",
	audit.ActionInviteAccepted:        "Convite aceite",
	audit.ActionMemberRoleChanged:     "Papel de membro alterado",
}

var entityLabels = map[string]string{
	audit.EntityOrganization: "Condomínio",
	audit.EntityTicket:       "Ocorrência",
	audit.EntityCategory:     "Categoria",
	audit.EntityFraction:     "Fração",
	audit.EntityUserFraction: "Associação",
	audit.EntitySupplier:     "Fornecedor",
	audit.EntityMaintenance:  "Manutenção",
	audit.EntityInvite:       "Convite",
	audit.EntityMember:       "Membro",
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// options returns labels as select options sorted by label.
func options(labels map[string]string, selected string) []option {
	out := make([]option, 0, len(labels))
	for v, l := range labels {
		out = append(out, option{Value: v, Label: l, Selected: v == selected})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// formatMetadata renders metadata as "key=value" pairs in key order.
func formatMetadata(md map[string]any) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, md[k]))
	}
	return strings.Join(parts, ", ")
}
